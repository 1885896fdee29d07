package handler

import (
	"net/http"

	"issue-service/internal/model"
	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AuthorityHandler struct {
	authorityService *service.AuthorityService
	log              zerolog.Logger
}

func NewAuthorityHandler(log zerolog.Logger, authorityService *service.AuthorityService) *AuthorityHandler {
	return &AuthorityHandler{
		authorityService: authorityService,
		log:              log.With().Str("component", "authority_handler").Logger(),
	}
}

func (h *AuthorityHandler) ListAuthorities(c *gin.Context) {
	q := &queryParams{c: c}
	subcategoryID := q.uuidParam("subcategoryId")
	if err := q.err(); err != nil {
		writeError(c, h.log, err)
		return
	}
	authorities, err := h.authorityService.List(c.Request.Context(), subcategoryID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if authorities == nil {
		authorities = []model.Authority{}
	}
	c.JSON(http.StatusOK, gin.H{"authorities": authorities})
}

func (h *AuthorityHandler) GetAuthority(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	authority, err := h.authorityService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, authority)
}

// Handles POST /authorities - level may also arrive as authorityLevel or name.
func (h *AuthorityHandler) CreateAuthority(c *gin.Context) {
	var req model.AuthorityRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	authority, err := h.authorityService.Create(c.Request.Context(), &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, authority)
}

func (h *AuthorityHandler) UpdateAuthority(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.AuthorityRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	authority, err := h.authorityService.Update(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, authority)
}

func (h *AuthorityHandler) DeleteAuthority(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	if err := h.authorityService.Delete(c.Request.Context(), id, identity(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
