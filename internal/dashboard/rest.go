package dashboard

import (
	"net/http"

	"github.com/arcane-tourneys/botarena/internal/live"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the dashboard's read-only REST surface: a
// current-state snapshot plus the per-group and per-event drill-downs
// the websocket feed doesn't replay on its own.
func RegisterRoutes(router gin.IRouter, hub *Hub, aggregator *live.Aggregator) {
	router.GET("/live/tournament", func(c *gin.Context) {
		c.JSON(http.StatusOK, aggregator.TakeSnapshot())
	})

	router.GET("/live/event/:gameType", func(c *gin.Context) {
		c.JSON(http.StatusOK, aggregator.OverallLeaders())
	})

	router.GET("/live/group/:eventId/:groupId", func(c *gin.Context) {
		standings := aggregator.GroupStandings(c.Param("eventId"), c.Param("groupId"))
		c.JSON(http.StatusOK, standings)
	})

	router.GET("/live/matches/recent", func(c *gin.Context) {
		eventID := c.Query("eventId")
		if eventID == "" {
			eventID = aggregator.CurrentEvent()
		}
		c.JSON(http.StatusOK, aggregator.RecentMatches(eventID))
	})

	router.GET("/ws", HandleConnection(hub))
}
