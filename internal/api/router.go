// Package api exposes the HTTP surface: ticket SLA views and events,
// the escalation cycle trigger, and admin CRUD for configurations and
// rules.
package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slakit-io/slakit/internal/middleware"
	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/services/sla"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleResult, error)
}

type jobLister interface {
	Jobs() []*models.ScheduledJob
}

// Handlers carries the services the HTTP layer delegates to.
type Handlers struct {
	Tracker      *sla.Tracker
	Engine       cycleRunner
	SLAs         repository.SLAStore
	Rules        repository.RuleStore
	Logs         repository.EscalationLogStore
	Scheduler    jobLister // optional
	SystemUserID int
	Logger       *log.Logger
}

// NewRouter builds the gin engine with all routes attached.
func NewRouter(h *Handlers) *gin.Engine {
	if h.Logger == nil {
		h.Logger = log.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(h.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/tickets/:id/sla", h.handleTicketSLA)
		v1.POST("/tickets/:id/sla", h.handleTicketSLAEvent)
		v1.GET("/tickets/:id/escalations", h.handleTicketEscalations)
		v1.POST("/escalations/run", h.handleRunEscalations)

		admin := v1.Group("/admin")
		{
			admin.GET("/sla-configurations", h.handleListConfigurations)
			admin.POST("/sla-configurations", h.handleCreateConfiguration)
			admin.GET("/sla-configurations/:id", h.handleGetConfiguration)
			admin.PUT("/sla-configurations/:id", h.handleUpdateConfiguration)
			admin.DELETE("/sla-configurations/:id", h.handleDeleteConfiguration)

			admin.GET("/escalation-rules", h.handleListRules)
			admin.POST("/escalation-rules", h.handleCreateRule)
			admin.GET("/escalation-rules/:id", h.handleGetRule)
			admin.PUT("/escalation-rules/:id", h.handleUpdateRule)
			admin.DELETE("/escalation-rules/:id", h.handleDeleteRule)

			admin.GET("/jobs", h.handleListJobs)
		}
	}
	return r
}

func (h *Handlers) handleListJobs(c *gin.Context) {
	if h.Scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.Scheduler.Jobs()})
}
