package handler

import (
	"net/http"

	"ideaportal/internal/service"
	"ideaportal/pkg/pagination"
	"ideaportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	notifications := router.Group("/api/notifications", requireAuth)
	{
		notifications.GET("", h.ListMine)
		notifications.PUT("/:id/read", h.MarkRead)
	}
}

// ListMine returns the caller's notifications, newest first
// @Summary      My notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread  query     bool  false  "Only unread"
// @Param        page    query     int   false  "Page"
// @Param        limit   query     int   false  "Page size"
// @Success      200     {object}  response.Response{data=[]model.Notification}
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListMine(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	unreadOnly := c.Query("unread") == "true"
	items, total, err := h.notificationService.ListMine(c.Request.Context(), employeeID, unreadOnly, params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, items, params.Meta(total)))
}

// MarkRead flags one of the caller's notifications as read
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, employeeID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"read": id}))
}
