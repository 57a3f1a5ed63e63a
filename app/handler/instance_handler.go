package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"vigil/internal/model"
	"vigil/internal/service"
	"vigil/pkg/logger"
)

// InstanceHandler handles instance lifecycle reports
type InstanceHandler struct {
	registryService *service.RegistryService
}

// NewInstanceHandler creates a new instance handler
func NewInstanceHandler(registryService *service.RegistryService) *InstanceHandler {
	return &InstanceHandler{
		registryService: registryService,
	}
}

// Start registers an instance run for a logical key
// @Summary Register instance start
// @Description Registers a running instance, reactivating the record left by a crashed or stopped run of the same logical key
// @Tags instance
// @Accept json
// @Produce json
// @Param request body model.StartRequest true "Start report"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /instance/start [post]
func (h *InstanceHandler) Start(c *gin.Context) {
	var req model.StartRequest
	// An absent or unreadable body counts as empty here; the field check
	// below produces the caller-facing message.
	_ = c.ShouldBindJSON(&req)

	if req.LogicalKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "logical_key is required",
		})
		return
	}

	hostLabel := req.HostLabel
	if hostLabel == "" {
		hostLabel, _ = os.Hostname()
	}

	inst, err := h.registryService.RegisterStart(c.Request.Context(), req.LogicalKey, hostLabel)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{
				"status":  "error",
				"message": "Failed to register instance - logical key may already be running",
			})
			return
		}
		logger.ErrorCtx(c.Request.Context(), "failed to register instance: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"instance_id": inst.InstanceID,
		"logical_key": inst.LogicalKey,
		"message":     "Instance registered successfully",
	})
}

// Alive records a heartbeat for a running instance
// @Summary Record heartbeat
// @Description Updates last_heartbeat for the reported instance_id
// @Tags instance
// @Accept json
// @Produce json
// @Param request body model.HeartbeatRequest true "Heartbeat report"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /instance/alive [post]
func (h *InstanceHandler) Alive(c *gin.Context) {
	var req model.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "No data provided",
		})
		return
	}

	if req.InstanceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "instance_id is required",
		})
		return
	}

	if err := h.registryService.RecordHeartbeat(c.Request.Context(), req.InstanceID); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to update heartbeat: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to update heartbeat",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Heartbeat updated successfully",
	})
}

// Crash reports an instance failure
// @Summary Report crash
// @Description Marks the instance crashed with the reported error detail and raises a critical alert
// @Tags instance
// @Accept json
// @Produce json
// @Param request body model.CrashRequest true "Crash report"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /instance/crash [post]
func (h *InstanceHandler) Crash(c *gin.Context) {
	var req model.CrashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "No data provided",
		})
		return
	}

	if req.InstanceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "instance_id is required",
		})
		return
	}

	hostLabel := req.HostLabel
	if hostLabel == "" {
		hostLabel, _ = os.Hostname()
	}

	if err := h.registryService.RecordCrash(c.Request.Context(), req.InstanceID, req.ErrorDetail, hostLabel); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to record crash: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to update instance status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Crash reported successfully",
	})
}

// Stop reports a graceful shutdown
// @Summary Report stop
// @Description Marks the instance stopped without treating it as a failure
// @Tags instance
// @Accept json
// @Produce json
// @Param request body model.StopRequest true "Stop report"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /instance/stop [post]
func (h *InstanceHandler) Stop(c *gin.Context) {
	var req model.StopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "No data provided",
		})
		return
	}

	if req.InstanceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "instance_id is required",
		})
		return
	}

	hostLabel := req.HostLabel
	if hostLabel == "" {
		hostLabel, _ = os.Hostname()
	}

	if err := h.registryService.RecordStop(c.Request.Context(), req.InstanceID, hostLabel); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to record stop: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to update instance status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Stop reported successfully",
	})
}

// List returns every known instance, newest first
// @Summary List instances
// @Description Returns all instance records ordered by creation time, newest first
// @Tags instance
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /instances [get]
func (h *InstanceHandler) List(c *gin.Context) {
	instances, err := h.registryService.ListInstances(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list instances: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"instances": instances,
		"count":     len(instances),
	})
}
