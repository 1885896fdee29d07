package handler

import (
	"net/http"

	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type LocationHandler struct {
	locationService *service.LocationService
	log             zerolog.Logger
}

func NewLocationHandler(log zerolog.Logger, locationService *service.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		log:             log.With().Str("component", "location_handler").Logger(),
	}
}

// Handles POST /locations/resolve - always answers with an address, falling
// back to the coordinates when every provider fails.
func (h *LocationHandler) Resolve(c *gin.Context) {
	var req service.CoordinatesRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	loc, err := h.locationService.Resolve(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Handles GET /locations/search?q= - forward geocoding of a place or pincode.
func (h *LocationHandler) Search(c *gin.Context) {
	req := service.SearchRequest{Query: c.Query("q")}
	loc, err := h.locationService.Search(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": loc})
}

// Handles GET /locations/constituencies?lat&lng - empty lists when the
// lookup is unavailable.
func (h *LocationHandler) Constituencies(c *gin.Context) {
	var req service.CoordinatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, h.log, service.Invalid(
			service.FieldError{Field: "lat", Message: "must be a number"},
			service.FieldError{Field: "lng", Message: "must be a number"},
		))
		return
	}
	result, err := h.locationService.Constituencies(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assembly_constituencies":   result.Assembly,
		"parliament_constituencies": result.Parliament,
		"representatives":           result.Representatives(),
	})
}
