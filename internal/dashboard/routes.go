package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yonetim/opsdesk/internal/chat"
	"github.com/yonetim/opsdesk/internal/models"
	"github.com/yonetim/opsdesk/internal/store"
)

// sessionView is one row of the session list, the aggregator state plus
// the claim flag.
type sessionView struct {
	chat.Session
	Claimed bool `json:"claimed"`
}

// registerRoutes sets up the JSON API on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	api := router.Group("/api")

	api.GET("/state", handleState(opts))
	api.GET("/sessions", handleSessions(opts))
	api.GET("/sessions/:id/messages", handleMessages(opts))
	api.POST("/sessions/:id/reply", handleReply(opts))
	api.POST("/sessions/:id/claim", handleClaim(opts))
	api.POST("/sessions/:id/seen", handleSeen(opts))
	api.DELETE("/sessions/:id", handleDeleteSession(opts))

	api.GET("/requests", handleRequests(opts))
	api.PATCH("/requests/:id/status", handleRequestStatus(opts))

	api.GET("/events", handleSSE(opts))
}

// handleState reports the live-feed state and the current banner.
func handleState(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := gin.H{"feed": "disconnected"}
		if opts.Listener != nil {
			out["feed"] = opts.Listener.State().String()
			if b, ok := opts.Listener.CurrentBanner(); ok {
				out["banner"] = b
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

func handleSessions(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := opts.Agg.Sessions()
		views := make([]sessionView, 0, len(sessions))
		for _, s := range sessions {
			v := sessionView{Session: s}
			if opts.Claims != nil {
				v.Claimed = opts.Claims.IsClaimed(c.Request.Context(), s.SessionID)
			}
			views = append(views, v)
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleMessages(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := opts.Gateway.MessagesBySession(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

// handleReply stores an admin message and merges it into the session map
// without waiting for the next poll.
func handleReply(opts StartOpts) gin.HandlerFunc {
	type replyBody struct {
		Content string `json:"content" binding:"required"`
	}
	return func(c *gin.Context) {
		var body replyBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
			return
		}
		msg, err := opts.Gateway.InsertMessage(c.Request.Context(), c.Param("id"), models.SenderAdmin, body.Content)
		if err != nil {
			abortStoreError(c, err)
			return
		}
		opts.Agg.ApplyIncoming(*msg)
		if opts.Broker != nil {
			opts.Broker.Publish(*msg)
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func handleClaim(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Claims == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "claim tracking is not enabled"})
			return
		}
		id := c.Param("id")
		err := opts.Claims.Claim(c.Request.Context(), id)
		// The local claim holds even when the store write failed; report
		// both facts.
		out := gin.H{"session_id": id, "claimed": true}
		if err != nil {
			out["warning"] = err.Error()
		}
		c.JSON(http.StatusOK, out)
	}
}

// handleSeen marks a session as the open one and clears its unseen flag.
func handleSeen(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		opts.Agg.SetOpen(id)
		opts.Agg.MarkSeen(id)
		c.Status(http.StatusNoContent)
	}
}

func handleDeleteSession(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := opts.Gateway.DeleteSession(c.Request.Context(), id); err != nil {
			abortStoreError(c, err)
			return
		}
		opts.Agg.Remove(id)
		c.Status(http.StatusNoContent)
	}
}

func handleRequests(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := opts.Gateway.Requests(c.Request.Context())
		if err != nil {
			abortStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, reqs)
	}
}

func handleRequestStatus(opts StartOpts) gin.HandlerFunc {
	type statusBody struct {
		Status string `json:"status" binding:"required"`
	}
	return func(c *gin.Context) {
		var body statusBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		if err := opts.Gateway.UpdateRequestStatus(c.Request.Context(), c.Param("id"), body.Status); err != nil {
			abortStoreError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// abortStoreError maps store error kinds to HTTP statuses.
func abortStoreError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case store.IsNotFound(err):
		status = http.StatusNotFound
	case store.IsTimeout(err):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
