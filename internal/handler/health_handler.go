package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type OutboxStats interface {
	Stats(ctx context.Context) (map[string]int, error)
}

type HealthHandler struct {
	db     Pinger
	outbox OutboxStats
	log    zerolog.Logger
}

func NewHealthHandler(log zerolog.Logger, db Pinger) *HealthHandler {
	return &HealthHandler{db: db, log: log.With().Str("component", "health").Logger()}
}

// Injects the outbox worker so health reports its backlog.
func (h *HealthHandler) SetOutbox(outbox OutboxStats) {
	h.outbox = outbox
}

// Handles GET /health - 503 when the database is unreachable.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error().Err(err).Msg("database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "down"})
		return
	}

	body := gin.H{"status": "healthy", "database": "up"}
	if h.outbox != nil {
		if stats, err := h.outbox.Stats(ctx); err == nil {
			body["outbox"] = stats
		}
	}
	c.JSON(http.StatusOK, body)
}
