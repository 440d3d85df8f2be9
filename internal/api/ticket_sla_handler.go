package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/services/sla"
)

func ticketID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid ticket id",
		})
		return 0, false
	}
	return id, true
}

// handleTicketSLA returns the ticket's SLA view, lazily creating the
// tracking record. A ticket with no applicable configuration gets an
// informational payload, not an error.
func (h *Handlers) handleTicketSLA(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}

	view, err := h.Tracker.Status(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sla.ErrNoConfiguration):
			c.JSON(http.StatusOK, gin.H{
				"success":    true,
				"applicable": false,
				"message":    "No SLA configured for this ticket's priority and category",
			})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Ticket not found",
			})
		default:
			h.Logger.Printf("api: ticket %d sla status: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to load SLA status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"applicable": true,
		"data":       view,
	})
}

type slaEventInput struct {
	Action    string     `json:"action" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

// handleTicketSLAEvent records one lifecycle event and returns the
// updated tracking record.
func (h *Handlers) handleTicketSLAEvent(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}

	var input slaEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Action is required",
		})
		return
	}
	action := sla.Action(input.Action)
	if !action.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Unknown action: " + input.Action,
		})
		return
	}

	ctx := c.Request.Context()

	// Lazily create the tracking record so the first recorded event
	// does not depend on a prior GET.
	if _, _, err := h.Tracker.GetOrCreate(ctx, id); err != nil {
		switch {
		case errors.Is(err, sla.ErrNoConfiguration):
			c.JSON(http.StatusOK, gin.H{
				"success":    true,
				"applicable": false,
				"message":    "No SLA configured for this ticket's priority and category",
			})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Ticket not found",
			})
		default:
			h.Logger.Printf("api: ticket %d sla upsert: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to load SLA tracking",
			})
		}
		return
	}

	tracking, err := h.Tracker.RecordEvent(ctx, id, action, input.Timestamp, h.SystemUserID)
	if err != nil {
		switch {
		case errors.Is(err, sla.ErrNotPaused):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "SLA clock is not paused",
			})
		default:
			h.Logger.Printf("api: ticket %d sla event %s: %v", id, action, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to record SLA event",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tracking,
	})
}
