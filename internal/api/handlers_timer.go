package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snoozarr/snoozarr/internal/config"
)

// startTimerRequest is the body of POST /api/timer/start. Minutes is a
// pointer so a missing field is distinguishable from zero.
type startTimerRequest struct {
	Minutes *float64 `json:"minutes" binding:"required"`
}

// getTimer returns the current countdown state
func (s *RESTServer) getTimer(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.State())
}

// startTimer starts a countdown, replacing any running timer
func (s *RESTServer) startTimer(c *gin.Context) {
	var req startTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, false)
		return
	}

	cfg := config.Get()
	minutes := *req.Minutes
	if minutes < cfg.MinMinutes || minutes > cfg.MaxMinutes {
		respondBadRequest(c, fmt.Errorf("minutes must be between %g and %g", cfg.MinMinutes, cfg.MaxMinutes), true)
		return
	}

	state := s.engine.Start(minutes)
	c.JSON(http.StatusOK, state)
}

// cancelTimer stops the running countdown. Cancelling an idle timer is a
// no-op and still returns 200 with the idle state.
func (s *RESTServer) cancelTimer(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Cancel())
}

// getPresets returns the configured preset durations for the UI
func (s *RESTServer) getPresets(c *gin.Context) {
	cfg := config.Get()
	c.JSON(http.StatusOK, gin.H{
		"presets":     cfg.PresetMinutes,
		"min_minutes": cfg.MinMinutes,
		"max_minutes": cfg.MaxMinutes,
	})
}
