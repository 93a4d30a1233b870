package handler

import (
	"net/http"

	"ideaportal/internal/service"
	"ideaportal/pkg/pagination"
	"ideaportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type IdeaHandler struct {
	ideaService service.IdeaService
}

func NewIdeaHandler(ideaService service.IdeaService) *IdeaHandler {
	return &IdeaHandler{ideaService: ideaService}
}

func (h *IdeaHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	ideas := router.Group("/api/ideas", requireAuth)
	{
		ideas.POST("", h.CreateIdea)
		ideas.GET("/mine", h.ListMyIdeas)
		ideas.GET("/:id", h.GetIdea)
		ideas.DELETE("/:id", h.DeleteIdea)
		ideas.POST("/:id/resubmit", h.Resubmit)
		ideas.GET("/:id/history", h.GetHistory)
	}
}

// CreateIdea submits a new idea for the caller
// @Summary      Submit an idea
// @Description  Classifies the idea by saving cost, stores it at stage 0 and notifies the first approver
// @Tags         ideas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateIdeaRequest  true  "Idea"
// @Success      201      {object}  response.Response{data=model.Idea}
// @Failure      400      {object}  response.Response
// @Router       /api/ideas [post]
func (h *IdeaHandler) CreateIdea(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}

	var req service.CreateIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	idea, err := h.ideaService.CreateIdea(c.Request.Context(), employeeID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, idea))
}

// ListMyIdeas returns the caller's ideas, newest first
// @Summary      List my ideas
// @Tags         ideas
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response{data=[]model.Idea}
// @Router       /api/ideas/mine [get]
func (h *IdeaHandler) ListMyIdeas(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	ideas, total, err := h.ideaService.ListMyIdeas(c.Request.Context(), employeeID, params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, ideas, params.Meta(total)))
}

// GetIdea returns one idea
// @Summary      Get an idea
// @Tags         ideas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Idea ID"
// @Success      200  {object}  response.Response{data=model.Idea}
// @Failure      404  {object}  response.Response
// @Router       /api/ideas/{id} [get]
func (h *IdeaHandler) GetIdea(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	idea, err := h.ideaService.GetIdea(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}

// DeleteIdea withdraws a submitted idea
// @Summary      Delete an idea
// @Description  Only the initiator may delete, and only while the idea is Submitted with no approval history
// @Tags         ideas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Idea ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/ideas/{id} [delete]
func (h *IdeaHandler) DeleteIdea(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ideaService.DeleteIdea(c.Request.Context(), id, employeeID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id}))
}

// Resubmit answers a request for more information
// @Summary      Resubmit an idea
// @Description  Returns an idea in More Info Required to the approver of its current stage
// @Tags         ideas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Idea ID"
// @Param        payload  body      service.ResubmitRequest  true  "Answer"
// @Success      200      {object}  response.Response{data=model.Idea}
// @Failure      409      {object}  response.Response
// @Router       /api/ideas/{id}/resubmit [post]
func (h *IdeaHandler) Resubmit(c *gin.Context) {
	employeeID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	idea, err := h.ideaService.Resubmit(c.Request.Context(), id, employeeID, req.Response)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}

// GetHistory returns the audit trail of an idea, oldest first
// @Summary      Approval history
// @Tags         ideas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Idea ID"
// @Success      200  {object}  response.Response{data=[]model.ApprovalHistory}
// @Failure      404  {object}  response.Response
// @Router       /api/ideas/{id}/history [get]
func (h *IdeaHandler) GetHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.ideaService.GetHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
