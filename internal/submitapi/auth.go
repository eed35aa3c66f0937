package submitapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims carries the submitting team's identity; no role concept
// survives here since every bearer token represents one team, not a
// user with a role.
type claims struct {
	TeamName string `json:"team_name"`
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token for teamName, valid for expiration.
func IssueToken(teamName, secret string, expiration time.Duration) (string, error) {
	c := claims{
		TeamName: teamName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// ValidateToken returns the team name embedded in a bearer token.
func ValidateToken(tokenString, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if c, ok := token.Claims.(*claims); ok && token.Valid {
		return c.TeamName, nil
	}
	return "", fmt.Errorf("invalid token")
}
