// Package api serves the read-only RSVP dashboard endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/cache"
	"wedding-rsvp/internal/logging"
	"wedding-rsvp/internal/models"
)

// GuestReader is the part of the guest store the dashboard reads.
type GuestReader interface {
	ListGuests(ctx context.Context) ([]models.Guest, error)
	ListUndelivered(ctx context.Context) ([]models.UndeliveredMessage, error)
}

type Handler struct {
	guests GuestReader
	cache  cache.SummaryCache
	log    zerolog.Logger
}

// NewHandler creates the dashboard handler. summaryCache may be nil.
func NewHandler(guests GuestReader, summaryCache cache.SummaryCache, log zerolog.Logger) *Handler {
	return &Handler{
		guests: guests,
		cache:  summaryCache,
		log:    logging.Component(log, "API"),
	}
}

func (h *Handler) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getRSVPSummaryHandler returns guests grouped by status with per-group totals.
func (h *Handler) getRSVPSummaryHandler(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		summary, ok, err := h.cache.Get(ctx)
		if err != nil {
			h.log.Warn().Err(err).Msg("Summary cache read failed")
		} else if ok {
			c.JSON(http.StatusOK, summary)
			return
		}
	}

	guests, err := h.guests.ListGuests(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list guests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(guests) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No RSVP data found"})
		return
	}

	summary := models.Summarize(guests)
	if h.cache != nil {
		if err := h.cache.Set(ctx, summary); err != nil {
			h.log.Warn().Err(err).Msg("Summary cache write failed")
		}
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getUndeliveredHandler(c *gin.Context) {
	undelivered, err := h.guests.ListUndelivered(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list undelivered messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if undelivered == nil {
		undelivered = []models.UndeliveredMessage{}
	}
	c.JSON(http.StatusOK, undelivered)
}
