package handler

import (
	"net/http"

	"ideaportal/internal/middleware"
	"ideaportal/internal/service"
	"ideaportal/pkg/pagination"
	"ideaportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SettingHandler struct {
	settingService service.SettingService
	auditService   service.AuditService
}

func NewSettingHandler(settingService service.SettingService, auditService service.AuditService) *SettingHandler {
	return &SettingHandler{settingService: settingService, auditService: auditService}
}

func (h *SettingHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	settings := router.Group("/api/settings", requireAuth)
	{
		settings.GET("/high-value-threshold", h.GetThreshold)
		settings.PUT("/high-value-threshold", middleware.RequireSuperAdmin(), h.UpdateThreshold)
		settings.GET("/audit-logs", middleware.RequireSuperAdmin(), h.ListAuditLogs)
	}
}

// GetThreshold returns the saving cost at which ideas take the HIGH_VALUE track
// @Summary      Get the high value threshold
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ThresholdResponse}
// @Router       /api/settings/high-value-threshold [get]
func (h *SettingHandler) GetThreshold(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.settingService.GetHighValueThreshold(c.Request.Context())))
}

// UpdateThreshold changes the threshold for ideas submitted from now on
// @Summary      Update the high value threshold
// @Description  Existing ideas keep the track they were classified into
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateThresholdRequest  true  "New threshold"
// @Success      200      {object}  response.Response{data=service.ThresholdResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/settings/high-value-threshold [put]
func (h *SettingHandler) UpdateThreshold(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}

	var req service.UpdateThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	updated, err := h.settingService.UpdateHighValueThreshold(c.Request.Context(), employeeID, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// ListAuditLogs returns configuration changes, newest first
// @Summary      Settings audit log
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int     false  "Page"
// @Param        limit     query     int     false  "Page size"
// @Param        action    query     string  false  "Audit action"
// @Param        actor_id  query     string  false  "Acting employee id, or \"system\""
// @Success      200       {object}  response.Response{data=[]service.AuditLogResponse}
// @Failure      400       {object}  response.Response
// @Failure      403       {object}  response.Response
// @Router       /api/settings/audit-logs [get]
func (h *SettingHandler) ListAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)
	query := service.AuditLogQuery{Action: c.Query("action")}
	switch actor := c.Query("actor_id"); actor {
	case "":
	case "system":
		query.System = true
	default:
		id, err := uuid.Parse(actor)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid actor_id"))
			return
		}
		query.ActorID = &id
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), query, params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, params.Meta(total)))
}
