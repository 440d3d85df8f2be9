package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
)

type escalationRuleInput struct {
	Name          string                `json:"name" binding:"required"`
	Priority      int                   `json:"priority"`
	IsActive      *bool                 `json:"is_active"`
	TimeCondition string                `json:"time_condition" binding:"required"`
	TimeThreshold int                   `json:"time_threshold"`
	Conditions    models.RuleConditions `json:"conditions"`
	Actions       models.RuleActions    `json:"actions"`
	FireOnce      bool                  `json:"fire_once"`
}

func (in *escalationRuleInput) toModel() (*models.EscalationRule, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("name is required")
	}
	tc := models.TimeCondition(in.TimeCondition)
	if !tc.Valid() {
		return nil, errors.New("unknown time_condition: " + in.TimeCondition)
	}
	if in.TimeThreshold <= 0 {
		return nil, errors.New("time_threshold must be positive minutes")
	}
	for _, p := range in.Conditions.Priority {
		if !p.Valid() {
			return nil, errors.New("unknown priority in conditions")
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &models.EscalationRule{
		Name:          in.Name,
		Priority:      in.Priority,
		IsActive:      active,
		TimeCondition: tc,
		TimeThreshold: in.TimeThreshold,
		Conditions:    in.Conditions,
		Actions:       in.Actions,
		FireOnce:      in.FireOnce,
	}, nil
}

func (h *Handlers) handleListRules(c *gin.Context) {
	rules, err := h.Rules.List(c.Request.Context())
	if err != nil {
		h.Logger.Printf("api: list escalation rules: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list escalation rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rules})
}

func (h *Handlers) handleGetRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid id"})
		return
	}
	rule, err := h.Rules.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Escalation rule not found"})
			return
		}
		h.Logger.Printf("api: get escalation rule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load escalation rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rule})
}

func (h *Handlers) handleCreateRule(c *gin.Context) {
	var input escalationRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name and time_condition are required"})
		return
	}
	rule, err := input.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := h.Rules.Create(c.Request.Context(), rule); err != nil {
		h.Logger.Printf("api: create escalation rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create escalation rule"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Escalation rule created", "data": rule})
}

func (h *Handlers) handleUpdateRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid id"})
		return
	}
	var input escalationRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name and time_condition are required"})
		return
	}
	rule, err := input.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	rule.ID = id
	if err := h.Rules.Update(c.Request.Context(), rule); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Escalation rule not found"})
			return
		}
		h.Logger.Printf("api: update escalation rule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update escalation rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Escalation rule updated", "data": rule})
}

func (h *Handlers) handleDeleteRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid id"})
		return
	}
	if err := h.Rules.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Escalation rule not found"})
			return
		}
		h.Logger.Printf("api: delete escalation rule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete escalation rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Escalation rule deleted"})
}
