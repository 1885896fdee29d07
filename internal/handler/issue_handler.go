package handler

import (
	"net/http"

	"issue-service/internal/model"
	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type IssueHandler struct {
	issueService  *service.IssueService
	upvoteService *service.UpvoteService
	log           zerolog.Logger
}

func NewIssueHandler(log zerolog.Logger, issueService *service.IssueService, upvoteService *service.UpvoteService) *IssueHandler {
	return &IssueHandler{
		issueService:  issueService,
		upvoteService: upvoteService,
		log:           log.With().Str("component", "issue_handler").Logger(),
	}
}

// Handles POST /issues - files a new issue and routes it to its authorities.
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	var req model.CreateIssueRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	issue, err := h.issueService.Create(c.Request.Context(), &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Issue created successfully",
		"issue":   issue,
	})
}

// Handles GET /issues - filtered, paginated listing with optional full-text q.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	q := &queryParams{c: c}
	f := model.IssueFilter{
		Status:        model.IssueStatus(c.Query("status")),
		Priority:      model.Priority(c.Query("priority")),
		CategoryID:    q.uuidParam("categoryId"),
		SubcategoryID: q.uuidParam("subcategoryId"),
		Query:         c.Query("q"),
		Sort:          c.Query("sort"),
		Page:          q.intParam("page"),
		Limit:         q.intParam("limit"),
	}
	if err := q.err(); err != nil {
		writeError(c, h.log, err)
		return
	}

	resp, err := h.issueService.List(c.Request.Context(), f, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Handles GET /issues/mine - the caller's own issues.
func (h *IssueHandler) MyIssues(c *gin.Context) {
	q := &queryParams{c: c}
	page, limit := q.intParam("page"), q.intParam("limit")
	if err := q.err(); err != nil {
		writeError(c, h.log, err)
		return
	}

	resp, err := h.issueService.Mine(c.Request.Context(), identity(c), page, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IssueHandler) GetIssue(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	issue, err := h.issueService.Get(c.Request.Context(), id, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (h *IssueHandler) UpdateIssue(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.UpdateIssueRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	issue, err := h.issueService.Update(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// Handles PATCH /issues/:id/status - one lifecycle transition.
func (h *IssueHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.UpdateStatusRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	issue, err := h.issueService.UpdateStatus(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Status updated successfully",
		"issue":   issue,
	})
}

func (h *IssueHandler) Escalate(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.EscalateRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	issue, err := h.issueService.Escalate(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (h *IssueHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.CreateCommentRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	comment, err := h.issueService.AddComment(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Handles POST /issues/:id/upvote - no body; the voter is the session user
// or the client IP.
func (h *IssueHandler) Upvote(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	resp, err := h.upvoteService.Upvote(c.Request.Context(), id, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IssueHandler) UpvoteStatus(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	resp, err := h.upvoteService.Status(c.Request.Context(), id, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IssueHandler) RecountUpvotes(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	resp, err := h.upvoteService.Recount(c.Request.Context(), id, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
