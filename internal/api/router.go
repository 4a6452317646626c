package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

type userResolver interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type poller interface {
	PollNow(ctx context.Context)
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Tickets     *TicketHandlers
	Attachments *AttachmentHandler
	Users       userResolver
	Poller      poller
	WSHandler   gin.HandlerFunc
	Logger      *log.Logger
}

const userContextKey = "currentUser"

// NewRouter assembles the gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.WSHandler != nil {
		r.GET("/ws", deps.WSHandler)
	}

	v1 := r.Group("/api/v1")
	v1.Use(requireUser(deps.Users))
	{
		v1.GET("/tickets", deps.Tickets.listActive)
		v1.GET("/tickets/status/:status", deps.Tickets.listByStatus)
		v1.GET("/tickets/assigned", deps.Tickets.listAssigned)
		v1.GET("/tickets/unassigned", deps.Tickets.listUnassigned)
		v1.GET("/tickets/filter", deps.Tickets.listFiltered)
		v1.GET("/tickets/uid/:uid", deps.Tickets.getByUID)
		v1.POST("/tickets/attachments", deps.Attachments.upload)
		v1.POST("/mailcheck/poll", pollHandler(deps.Poller))
	}

	return r
}

// requireUser resolves the authenticated user set by the outer auth layer.
// Session handling lives outside this core; the identity arrives as a
// header from the proxy in front.
func requireUser(users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-Id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		user, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func pollHandler(p poller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mail check not configured"})
			return
		}
		go p.PollNow(context.Background())
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
