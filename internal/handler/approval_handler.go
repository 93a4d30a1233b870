package handler

import (
	"net/http"
	"strings"

	"ideaportal/internal/middleware"
	"ideaportal/internal/service"
	"ideaportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ApprovalHandler struct {
	workflowService service.WorkflowService
}

func NewApprovalHandler(workflowService service.WorkflowService) *ApprovalHandler {
	return &ApprovalHandler{workflowService: workflowService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	approvals := router.Group("/api/approvals", requireAuth, middleware.RequireApprover())
	{
		approvals.GET("/pending", h.ListPending)
		approvals.POST("/:id/approve", h.Approve)
		approvals.POST("/:id/reject", h.Reject)
		approvals.POST("/:id/request-info", h.RequestInfo)
	}
}

// ListPending returns the ideas waiting for the caller's decision
// @Summary      Pending approvals
// @Description  Ideas whose next stage the caller's role approves, limited to the caller's scope, oldest first
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Idea}
// @Failure      403  {object}  response.Response
// @Router       /api/approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}

	ideas, err := h.workflowService.GetPendingApprovalsForUser(c.Request.Context(), employeeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ideas))
}

// Approve advances an idea by one stage
// @Summary      Approve the current stage
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true   "Idea ID"
// @Param        payload  body      service.ApproveRequest  false  "Comments and validated saving cost"
// @Success      200      {object}  response.Response{data=model.Idea}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	in := service.AdvanceInput{IdeaID: id, ApproverEmployeeID: employeeID, Comments: req.Comments}
	if req.ValidatedSavingCost != nil && strings.TrimSpace(*req.ValidatedSavingCost) != "" {
		cost, err := decimal.NewFromString(strings.TrimSpace(*req.ValidatedSavingCost))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "validated_saving_cost is not a number"))
			return
		}
		in.ValidatedSavingCost = &cost
	}

	idea, err := h.workflowService.Advance(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}

// Reject stops an idea at its current stage
// @Summary      Reject an idea
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Idea ID"
// @Param        payload  body      service.RejectRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=model.Idea}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, service.ErrReasonRequired.Error()))
		return
	}

	idea, err := h.workflowService.Reject(c.Request.Context(), service.RejectInput{
		IdeaID:             id,
		ApproverEmployeeID: employeeID,
		Reason:             req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}

// RequestInfo sends the idea back to its initiator with a question
// @Summary      Request more information
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Idea ID"
// @Param        payload  body      service.RequestInfoRequest  true  "Question for the initiator"
// @Success      200      {object}  response.Response{data=model.Idea}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/request-info [post]
func (h *ApprovalHandler) RequestInfo(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.RequestInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	idea, err := h.workflowService.RequestMoreInfo(c.Request.Context(), service.RequestInfoInput{
		IdeaID:             id,
		ApproverEmployeeID: employeeID,
		InfoRequest:        req.InfoRequest,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}
