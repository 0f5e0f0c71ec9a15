package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"duckdns_agent/internal/models"
	"duckdns_agent/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "started"
	statusStopped = "stopped"

	errGetStatus       = "failed to load status"
	errInvalidBodyPref = "invalid body: "
	errInvalidInterval = "invalid interval: enter a positive number of minutes"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include the current snapshot if available (best-effort).
func (h *Handler) respondWithStatus(c *gin.Context, status string) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	if st, err := h.services.Monitoring.GetStatus(ctx); err == nil {
		resp["updater"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// startRequest mirrors the three free-text input fields of the original UI.
// The interval arrives as text in minutes and is parsed here, before any
// state transition.
type startRequest struct {
	Subdomain       string `json:"subdomain" binding:"required"`
	Token           string `json:"token" binding:"required"`
	IntervalMinutes string `json:"interval_minutes" binding:"required"`
}

// StartUpdaterRequest is an exported model for Swagger docs of the start payload.
type StartUpdaterRequest struct {
	// DuckDNS subdomain to keep up to date
	Subdomain string `json:"subdomain" example:"myhome"`
	// DuckDNS account token authorizing updates
	Token string `json:"token" example:"a7c3…"`
	// Update interval in minutes (fractional allowed)
	IntervalMinutes string `json:"interval_minutes" example:"5"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start the updater
// @Description  Subdomain, token and interval are free-text fields; the interval is minutes and must parse as a positive number.
// @Tags         updater
// @Accept       json
// @Produce      json
// @Param        body  body   StartUpdaterRequest  true  "Updater parameters"
// @Success      200   {object}  map[string]interface{}  "status, updater"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/updater/start [post]
// @Security     BearerAuth
func (h *Handler) startUpdater(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	minutes, err := strconv.ParseFloat(strings.TrimSpace(req.IntervalMinutes), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidInterval})
		return
	}

	upd := models.RequestFromMinutes(strings.TrimSpace(req.Subdomain), strings.TrimSpace(req.Token), minutes)
	if err := h.services.Runner.Start(upd); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, "failed to start updater", "updater_start_failed", err)
		}
		return
	}
	h.respondWithStatus(c, statusStarted)
}

// @Summary      Stop the updater
// @Tags         updater
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/updater/stop [post]
// @Security     BearerAuth
func (h *Handler) stopUpdater(c *gin.Context) {
	if err := h.services.Runner.Stop(); err != nil {
		if errors.Is(err, service.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to stop updater", "updater_stop_failed", err)
		return
	}
	h.respondWithStatus(c, statusStopped)
}

// @Summary      Get updater status
// @Tags         updater
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/updater/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetStatus(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "updater_get_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
