// Package submitapi implements the bot submission HTTP surface: team
// source upload, listing, removal, and a validate-only dry run,
// built around internal/loader as its one small struct of
// collaborators, passed to each handler the way a gin service layer
// typically wires its dependencies.
package submitapi

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/arcane-tourneys/botarena/internal/cache"
	"github.com/arcane-tourneys/botarena/internal/loader"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config carries the submission API's own settings, independent of the
// rest of the engine's configuration surface.
type Config struct {
	BotsDirectory   string
	TemplatesDir    string
	JWTSecret       string
	JWTExpiration   time.Duration
	RateLimitPerMin int
	ClaimTTL        time.Duration
}

// Server bundles the submission API's collaborators.
type Server struct {
	cfg    Config
	loader *loader.Loader
	cache  *cache.Service
	logger *zap.SugaredLogger
}

func NewServer(cfg Config, ld *loader.Loader, cacheSvc *cache.Service, logger *zap.SugaredLogger) *Server {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 10 * time.Minute
	}
	return &Server{cfg: cfg, loader: ld, cache: cacheSvc, logger: logger}
}

// submittedFile is the wire shape of one source file in a JSON
// submission body; Code is base64-encoded so arbitrary bot source can
// travel inside a JSON request.
type submittedFile struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"`
}

type submitRequest struct {
	TeamName  string          `json:"teamName"`
	Files     []submittedFile `json:"files"`
	Overwrite bool            `json:"overwrite"`
}

type submitBatchRequest struct {
	Submissions []submitRequest `json:"submissions"`
}

// submitResponse is the wire shape of a successful or rejected
// submission: {success, submissionId, errors}.
type submitResponse struct {
	Success      bool     `json:"success"`
	SubmissionID string   `json:"submissionId,omitempty"`
	Errors       []string `json:"errors"`
}

func rejected(errs ...string) submitResponse {
	return submitResponse{Success: false, Errors: errs}
}

func decodeFiles(in []submittedFile) ([]loader.SourceFile, error) {
	out := make([]loader.SourceFile, 0, len(in))
	for _, f := range in {
		code, err := base64.StdEncoding.DecodeString(f.Code)
		if err != nil {
			return nil, fmt.Errorf("file %s: invalid base64 content: %w", f.FileName, err)
		}
		out = append(out, loader.SourceFile{FileName: f.FileName, Code: code})
	}
	return out, nil
}

func fingerprint(teamName string, files []loader.SourceFile) string {
	h := sha256.New()
	h.Write([]byte(teamName))
	sorted := append([]loader.SourceFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FileName < sorted[j].FileName })
	for _, f := range sorted {
		h.Write([]byte(f.FileName))
		h.Write(f.Code)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// teamExists reports whether teamName already has a staged submission
// on disk, the overwrite-conflict check Submit runs before writing.
func (s *Server) teamExists(teamName string) bool {
	entries, err := os.ReadDir(filepath.Join(s.cfg.BotsDirectory, teamName))
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func (s *Server) stageDir(teamName string, files []loader.SourceFile) (string, error) {
	dir := filepath.Join(s.cfg.BotsDirectory, teamName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create submission directory: %w", err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.FileName), f.Code, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", f.FileName, err)
		}
	}
	return dir, nil
}

// Submit handles POST /api/bots/submit: one team's full source set.
// Wire contract: 200 {success, submissionId, errors:[]} on success, 400
// for validation, 409 for conflict when overwrite is false and the team
// already has a submission, 413 for an oversize submission.
func (s *Server) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, rejected(err.Error()))
		return
	}
	if !loader.ValidTeamName(req.TeamName) {
		c.JSON(http.StatusBadRequest, rejected("teamName must match [A-Za-z0-9_-]+"))
		return
	}

	files, err := decodeFiles(req.Files)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejected(err.Error()))
		return
	}

	if !req.Overwrite && s.teamExists(req.TeamName) {
		c.JSON(http.StatusConflict, rejected(fmt.Sprintf("team %s already has a submission; set overwrite to replace it", req.TeamName)))
		return
	}

	if s.cache != nil {
		claimed, err := s.cache.ClaimOnce(c.Request.Context(), fingerprint(req.TeamName, files), s.cfg.ClaimTTL)
		if err == nil && !claimed {
			c.JSON(http.StatusConflict, rejected("duplicate submission already in flight"))
			return
		}
	}

	dir, err := s.stageDir(req.TeamName, files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, rejected(err.Error()))
		return
	}

	if _, err := s.loader.LoadTeam(req.TeamName, dir); err != nil {
		if errors.Is(err, loader.ErrSubmissionTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, rejected(err.Error()))
			return
		}
		c.JSON(http.StatusUnprocessableEntity, rejected(err.Error()))
		return
	}

	c.JSON(http.StatusOK, submitResponse{Success: true, SubmissionID: uuid.NewString(), Errors: []string{}})
}

// batchResult is one submission's outcome within a submit-batch
// response, analogous to submitResponse but carrying the team name it
// belongs to.
type batchResult struct {
	TeamName string `json:"teamName"`
	submitResponse
}

// SubmitBatch handles POST /api/bots/submit-batch: several teams in
// one request, each absorbed independently (and applying the same
// validation, conflict and size rules as Submit) so one bad submission
// doesn't fail the rest.
func (s *Server) SubmitBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, rejected(err.Error()))
		return
	}

	results := make([]batchResult, 0, len(req.Submissions))

	for _, sub := range req.Submissions {
		if !loader.ValidTeamName(sub.TeamName) {
			results = append(results, batchResult{TeamName: sub.TeamName, submitResponse: rejected("teamName must match [A-Za-z0-9_-]+")})
			continue
		}
		files, err := decodeFiles(sub.Files)
		if err != nil {
			results = append(results, batchResult{TeamName: sub.TeamName, submitResponse: rejected(err.Error())})
			continue
		}
		if !sub.Overwrite && s.teamExists(sub.TeamName) {
			results = append(results, batchResult{TeamName: sub.TeamName, submitResponse: rejected(fmt.Sprintf("team %s already has a submission; set overwrite to replace it", sub.TeamName))})
			continue
		}
		dir, err := s.stageDir(sub.TeamName, files)
		if err != nil {
			results = append(results, batchResult{TeamName: sub.TeamName, submitResponse: rejected(err.Error())})
			continue
		}
		if _, err := s.loader.LoadTeam(sub.TeamName, dir); err != nil {
			results = append(results, batchResult{TeamName: sub.TeamName, submitResponse: rejected(err.Error())})
			continue
		}
		results = append(results, batchResult{TeamName: sub.TeamName, submitResponse: submitResponse{Success: true, SubmissionID: uuid.NewString(), Errors: []string{}}})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// verifyResponse is the wire shape of a dry-run validity check:
// {isValid, errors, warnings, message}.
type verifyResponse struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Message  string   `json:"message"`
}

// Verify handles POST /api/bots/verify: validates and builds a
// submission without registering it or touching disk.
func (s *Server) Verify(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, verifyResponse{Errors: []string{err.Error()}, Warnings: []string{}, Message: "malformed request body"})
		return
	}
	if !loader.ValidTeamName(req.TeamName) {
		c.JSON(http.StatusBadRequest, verifyResponse{Errors: []string{"teamName must match [A-Za-z0-9_-]+"}, Warnings: []string{}, Message: "invalid team name"})
		return
	}

	files, err := decodeFiles(req.Files)
	if err != nil {
		c.JSON(http.StatusBadRequest, verifyResponse{Errors: []string{err.Error()}, Warnings: []string{}, Message: "invalid file content"})
		return
	}

	if err := s.loader.Verify(req.TeamName, files); err != nil {
		c.JSON(http.StatusOK, verifyResponse{IsValid: false, Errors: []string{err.Error()}, Warnings: []string{}, Message: "submission failed validation"})
		return
	}
	c.JSON(http.StatusOK, verifyResponse{IsValid: true, Errors: []string{}, Warnings: []string{}, Message: "submission is valid"})
}

// List handles GET /api/bots/list.
func (s *Server) List(c *gin.Context) {
	entries, err := os.ReadDir(s.cfg.BotsDirectory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"teams": names})
}

// Delete handles DELETE /api/bots/:teamName.
func (s *Server) Delete(c *gin.Context) {
	teamName := c.Param("teamName")
	if !loader.ValidTeamName(teamName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team name"})
		return
	}
	dir := filepath.Join(s.cfg.BotsDirectory, teamName)
	if err := os.RemoveAll(dir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Template handles GET /api/resources/templates/:name, serving a
// starter source file teams can build their submission from.
func (s *Server) Template(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	path := filepath.Join(s.cfg.TemplatesDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.File(path)
}
