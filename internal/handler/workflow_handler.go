package handler

import (
	"net/http"
	"strconv"

	"ideaportal/internal/model"
	"ideaportal/internal/service"
	"ideaportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type NextApproverResponse struct {
	IdeaID   string          `json:"idea_id"`
	Stage    int             `json:"stage"`
	Approver *model.Employee `json:"approver"` // null when nobody is eligible
}

type WorkflowHandler struct {
	classifier service.WorkflowClassifier
	resolver   service.ApproverResolver
	ideas      service.IdeaService
}

func NewWorkflowHandler(classifier service.WorkflowClassifier, resolver service.ApproverResolver, ideas service.IdeaService) *WorkflowHandler {
	return &WorkflowHandler{classifier: classifier, resolver: resolver, ideas: ideas}
}

func (h *WorkflowHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	workflow := router.Group("/api/workflow", requireAuth)
	{
		workflow.GET("/classify", h.Classify)
		workflow.GET("/next-approver/:id", h.NextApprover)
	}
}

// Classify previews the track a saving cost would get today
// @Summary      Classify a saving cost
// @Tags         workflow
// @Produce      json
// @Security     BearerAuth
// @Param        saving_cost  query     string  true  "Declared saving cost"
// @Success      200          {object}  response.Response{data=service.Classification}
// @Failure      400          {object}  response.Response
// @Router       /api/workflow/classify [get]
func (h *WorkflowHandler) Classify(c *gin.Context) {
	cost, err := decimal.NewFromString(c.Query("saving_cost"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "saving_cost must be a number"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.classifier.ClassifyWorkflow(c.Request.Context(), cost)))
}

// NextApprover shows who would approve a stage of an idea
// @Summary      Resolve the approver of a stage
// @Description  Defaults to the stage after the idea's current one
// @Tags         workflow
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Idea ID"
// @Param        stage  query     int     false  "Target stage"
// @Success      200    {object}  response.Response{data=NextApproverResponse}
// @Failure      404    {object}  response.Response
// @Router       /api/workflow/next-approver/{id} [get]
func (h *WorkflowHandler) NextApprover(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var stage int
	if raw := c.Query("stage"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "stage must be a positive integer"))
			return
		}
		stage = parsed
	} else {
		idea, err := h.ideas.GetIdea(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		stage = idea.CurrentStage + 1
	}

	approver, err := h.resolver.GetNextApprover(c.Request.Context(), id, stage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, NextApproverResponse{
		IdeaID:   id.String(),
		Stage:    stage,
		Approver: approver,
	}))
}
