package handler

import (
	"net/http"
	"strconv"

	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var statusByCode = map[service.ErrorCode]int{
	service.CodeValidation:        http.StatusBadRequest,
	service.CodeForbidden:         http.StatusForbidden,
	service.CodeUnauthorized:      http.StatusUnauthorized,
	service.CodeConflict:          http.StatusConflict,
	service.CodeNotFound:          http.StatusNotFound,
	service.CodeInvalidTransition: http.StatusConflict,
	service.CodeRateLimited:       http.StatusTooManyRequests,
}

// writeError renders a DomainError with its HTTP status. Anything else is
// logged and hidden behind a 500.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	de, ok := service.AsDomainError(err)
	if !ok {
		log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status, ok := statusByCode[de.Code]
	if !ok {
		status = http.StatusBadRequest
	}
	body := gin.H{"error": de.Message, "code": de.Code}
	if len(de.Details) > 0 {
		body["details"] = de.Details
	}
	c.JSON(status, body)
}

// bindJSON decodes the request body; validation happens in the services.
func bindJSON(c *gin.Context, log zerolog.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, log, service.Invalid(service.FieldError{Field: "body", Message: "must be valid JSON"}))
		return false
	}
	return true
}

// pathID parses the :name route parameter as a UUID.
func pathID(c *gin.Context, log zerolog.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, log, service.Invalid(service.FieldError{Field: name, Message: "must be a valid UUID"}))
		return uuid.Nil, false
	}
	return id, true
}

// queryParams accumulates field errors while reading query parameters so
// every bad one is reported together.
type queryParams struct {
	c    *gin.Context
	errs []service.FieldError
}

func (q *queryParams) uuidParam(name string) *uuid.UUID {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.errs = append(q.errs, service.FieldError{Field: name, Message: "must be a valid UUID"})
		return nil
	}
	return &id
}

func (q *queryParams) intParam(name string) int {
	raw := q.c.Query(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.errs = append(q.errs, service.FieldError{Field: name, Message: "must be an integer"})
		return 0
	}
	return n
}

func (q *queryParams) boolParam(name string) bool {
	raw := q.c.Query(name)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.errs = append(q.errs, service.FieldError{Field: name, Message: "must be true or false"})
	}
	return b
}

func (q *queryParams) err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return service.Invalid(q.errs...)
}
