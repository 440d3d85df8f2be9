package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slakit-io/slakit/internal/services/escalation"
)

// handleRunEscalations triggers one escalation cycle. The response is
// always structured: callers inspect the per-ticket results for partial
// action failures rather than relying on the status code.
func (h *Handlers) handleRunEscalations(c *gin.Context) {
	result, err := h.Engine.RunCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, escalation.ErrCycleRunning) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"skipped": true,
				"message": "An escalation cycle is already running",
			})
			return
		}
		h.Logger.Printf("api: escalation cycle: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Escalation cycle failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"run_id":    result.RunID,
		"processed": result.Processed,
		"executed":  result.Executed,
		"results":   result.Results,
	})
}

// handleTicketEscalations lists the escalation log for one ticket.
func (h *Handlers) handleTicketEscalations(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}

	entries, err := h.Logs.ListByTicket(c.Request.Context(), id)
	if err != nil {
		h.Logger.Printf("api: ticket %d escalation log: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load escalation log",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}
