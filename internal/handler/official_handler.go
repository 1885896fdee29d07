package handler

import (
	"net/http"

	"issue-service/internal/model"
	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type OfficialHandler struct {
	officialService *service.OfficialService
	log             zerolog.Logger
}

func NewOfficialHandler(log zerolog.Logger, officialService *service.OfficialService) *OfficialHandler {
	return &OfficialHandler{
		officialService: officialService,
		log:             log.With().Str("component", "official_handler").Logger(),
	}
}

func (h *OfficialHandler) ListOfficials(c *gin.Context) {
	q := &queryParams{c: c}
	f := model.OfficialFilter{
		CategoryID: q.uuidParam("categoryId"),
		Department: c.Query("department"),
		ActiveOnly: !identity(c).IsAdmin() || !q.boolParam("includeInactive"),
		Page:       q.intParam("page"),
		Limit:      q.intParam("limit"),
	}
	if err := q.err(); err != nil {
		writeError(c, h.log, err)
		return
	}
	resp, err := h.officialService.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Handles GET /officials/suggest?categoryId&limit - fastest resolvers first.
func (h *OfficialHandler) SuggestOfficials(c *gin.Context) {
	q := &queryParams{c: c}
	categoryID := q.uuidParam("categoryId")
	limit := q.intParam("limit")
	if c.Query("categoryId") == "" {
		q.errs = append(q.errs, service.FieldError{Field: "categoryId", Message: "is required"})
	}
	if err := q.err(); err != nil {
		writeError(c, h.log, err)
		return
	}
	officials, err := h.officialService.Suggest(c.Request.Context(), *categoryID, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"officials": officials})
}

func (h *OfficialHandler) GetOfficial(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	official, err := h.officialService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, official)
}

func (h *OfficialHandler) CreateOfficial(c *gin.Context) {
	var req model.OfficialRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	official, err := h.officialService.Create(c.Request.Context(), &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, official)
}

func (h *OfficialHandler) UpdateOfficial(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.OfficialRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	official, err := h.officialService.Update(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, official)
}

func (h *OfficialHandler) DeactivateOfficial(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	if err := h.officialService.Deactivate(c.Request.Context(), id, identity(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
