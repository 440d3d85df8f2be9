package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/services/calendar"
)

type slaConfigurationInput struct {
	Name               string `json:"name" binding:"required"`
	Priority           string `json:"priority" binding:"required"`
	CategoryID         *int   `json:"category_id"`
	FirstResponseTime  int    `json:"first_response_time"`
	ResolutionTime     int    `json:"resolution_time"`
	BusinessHoursOnly  bool   `json:"business_hours_only"`
	BusinessHoursStart string `json:"business_hours_start"`
	BusinessHoursEnd   string `json:"business_hours_end"`
	WorkingDays        []int  `json:"working_days"`
	AlertPercentage    int    `json:"alert_percentage"`
	IsActive           *bool  `json:"is_active"`
}

// toModel validates the input and builds the configuration, including a
// calendar compile so malformed business hours are rejected on write,
// never at target computation.
func (in *slaConfigurationInput) toModel(actorID int) (*models.SLAConfiguration, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("name is required")
	}
	priority, ok := models.ParsePriority(in.Priority)
	if !ok {
		return nil, errors.New("unknown priority: " + in.Priority)
	}
	if in.FirstResponseTime <= 0 || in.ResolutionTime <= 0 {
		return nil, errors.New("first_response_time and resolution_time must be positive minutes")
	}
	if in.AlertPercentage < 0 || in.AlertPercentage > 100 {
		return nil, errors.New("alert_percentage must be between 0 and 100")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	cfg := &models.SLAConfiguration{
		Name:               in.Name,
		CategoryID:         in.CategoryID,
		Priority:           priority,
		FirstResponseTime:  in.FirstResponseTime,
		ResolutionTime:     in.ResolutionTime,
		BusinessHoursOnly:  in.BusinessHoursOnly,
		BusinessHoursStart: in.BusinessHoursStart,
		BusinessHoursEnd:   in.BusinessHoursEnd,
		WorkingDays:        in.WorkingDays,
		AlertPercentage:    in.AlertPercentage,
		IsActive:           active,
		CreateBy:           actorID,
		ChangeBy:           actorID,
	}
	if _, err := calendar.Compile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *Handlers) handleListConfigurations(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	configs, err := h.SLAs.ListConfigurations(c.Request.Context(), activeOnly)
	if err != nil {
		h.Logger.Printf("api: list sla configurations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list SLA configurations",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": configs})
}

func (h *Handlers) handleGetConfiguration(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid id"})
		return
	}
	cfg, err := h.SLAs.GetConfiguration(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "SLA configuration not found"})
			return
		}
		h.Logger.Printf("api: get sla configuration %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load SLA configuration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cfg})
}

func (h *Handlers) handleCreateConfiguration(c *gin.Context) {
	var input slaConfigurationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name and priority are required"})
		return
	}
	cfg, err := input.toModel(h.SystemUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := h.SLAs.CreateConfiguration(c.Request.Context(), cfg); err != nil {
		h.Logger.Printf("api: create sla configuration: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create SLA configuration"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "SLA configuration created",
		"data":    cfg,
	})
}

func (h *Handlers) handleUpdateConfiguration(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid id"})
		return
	}
	var input slaConfigurationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name and priority are required"})
		return
	}
	cfg, err := input.toModel(h.SystemUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	cfg.ID = id
	if err := h.SLAs.UpdateConfiguration(c.Request.Context(), cfg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "SLA configuration not found"})
			return
		}
		h.Logger.Printf("api: update sla configuration %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update SLA configuration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "SLA configuration updated", "data": cfg})
}

func (h *Handlers) handleDeleteConfiguration(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid id"})
		return
	}
	if err := h.SLAs.DeleteConfiguration(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "SLA configuration not found"})
			return
		}
		h.Logger.Printf("api: delete sla configuration %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete SLA configuration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "SLA configuration deleted"})
}
