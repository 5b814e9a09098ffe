// Package web serves the network trigger endpoint and read-only status pages.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/ghost-host/internal/api/grpc/prop"
	"github.com/oshokin/ghost-host/internal/audio"
	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
)

// Service abstracts the orchestrator operations the endpoint depends on.
type Service interface {
	Trigger(ctx context.Context, req domain.TriggerRequest) error
	Status(ctx context.Context) domain.Status
}

// ClipLister lists the playable clips.
type ClipLister interface {
	List() ([]audio.Clip, error)
}

// Options configures the router.
type Options struct {
	// Service receives triggers.
	Service Service
	// Triggers are the remotely callable triggers.
	Triggers []config.NetworkTrigger
	// Clips optionally backs GET /api/clips.
	Clips ClipLister
	// Metrics optionally backs GET /metrics.
	Metrics http.Handler
}

// playRequest is the optional body of a play call.
type playRequest struct {
	Clip string `json:"audio_file"`
}

// handler holds the request handlers.
type handler struct {
	// ctx carries the logger.
	ctx context.Context
	// service receives triggers.
	service Service
	// triggers maps ids to their configuration.
	triggers map[string]config.NetworkTrigger
	// clips lists clips when set.
	clips ClipLister
}

// errNoService is returned when the router is built without a service.
var errNoService = errors.New("trigger service must be provided")

// NewRouter builds the gin engine serving the endpoint.
func NewRouter(ctx context.Context, opts *Options) (*gin.Engine, error) {
	if opts == nil || opts.Service == nil {
		return nil, errNoService
	}

	gin.SetMode(gin.ReleaseMode)

	h := &handler{
		ctx:      logger.WithName(ctx, "http"),
		service:  opts.Service,
		triggers: make(map[string]config.NetworkTrigger, len(opts.Triggers)),
		clips:    opts.Clips,
	}

	for _, t := range opts.Triggers {
		h.triggers[t.ID] = t
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests)

	r.POST("/api/trigger/:id/play", h.play)
	r.GET("/api/status", h.status)

	if h.clips != nil {
		r.GET("/api/clips", h.listClips)
	}

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	return r, nil
}

func (h *handler) logRequests(c *gin.Context) {
	started := time.Now()

	c.Next()

	logger.DebugKV(h.ctx, "Request served",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(started))
}

func (h *handler) play(c *gin.Context) {
	id := c.Param("id")

	trigger, ok := h.triggers[id]
	if !ok || !trigger.IsEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown trigger"})

		return
	}

	if trigger.Secret != "" && !authorized(c, trigger.Secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})

		return
	}

	var body playRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

			return
		}
	}

	req := domain.TriggerRequest{
		Source: domain.SourceNetwork,
		Clip:   trigger.Clip,
		Actor:  "http:" + id + "@" + c.ClientIP(),
	}

	if body.Clip != "" {
		req.Clip = body.Clip
	}

	err := h.service.Trigger(c.Request.Context(), req)
	if err == nil {
		reply := gin.H{"accepted": true}
		if session := h.service.Status(c.Request.Context()).Session; session != nil {
			reply["session_id"] = session.ID
		}

		c.JSON(http.StatusOK, reply)

		return
	}

	reason, rejected := domain.ReasonOf(err)

	switch {
	case rejected && (reason == domain.ReasonAlreadyActive || reason == domain.ReasonInCooldown):
		c.JSON(http.StatusConflict, gin.H{"accepted": false, "reason": reason.String()})
	case rejected:
		c.JSON(http.StatusBadRequest, gin.H{"accepted": false, "reason": reason.String(), "error": err.Error()})
	default:
		logger.WarnKV(h.ctx, "Network trigger failed", "trigger", id, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"accepted": false, "error": err.Error()})
	}
}

// authorized accepts the secret as a bearer token or a token query parameter.
func authorized(c *gin.Context, secret string) bool {
	presented := c.Query("token")

	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		presented = strings.TrimSpace(bearer)
	}

	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, prop.ToProtoStatus(h.service.Status(c.Request.Context())).AsMap())
}

func (h *handler) listClips(c *gin.Context) {
	clips, err := h.clips.List()
	if err != nil {
		logger.ErrorKV(h.ctx, "Failed to list clips", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list clips"})

		return
	}

	items := make([]gin.H, 0, len(clips))
	for _, clip := range clips {
		items = append(items, gin.H{
			"name":        clip.Name,
			"size":        clip.Size,
			"duration_ms": clip.Duration.Milliseconds(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"clips": items})
}
