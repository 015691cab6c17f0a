package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Error codes carried in the "code" field of error responses.
const (
	CodeInvalidField   = "INVALID_FIELD"
	CodeInvalidMethod  = "INVALID_METHOD"
	CodeEmptyData      = "EMPTY_DATA"
	CodeInvalidBound   = "INVALID_BOUND"
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodeInternal       = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// check validates request parameters and reports failures as domain errors
// so they map to client error responses.
func (s *Server) check(params any) error {
	err := s.validate.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidField, name)
	case "min":
		return fmt.Errorf("%w: %s must be >= %s, got %v", domain.ErrInvalidBound, name, fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%w: %s must be > %s, got %v", domain.ErrInvalidBound, name, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%w: %s failed %s", domain.ErrInvalidBound, name, fe.Tag())
	}
}

// errorStatus maps domain error kinds to an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidField):
		return http.StatusBadRequest, CodeInvalidField
	case errors.Is(err, domain.ErrInvalidMethod):
		return http.StatusBadRequest, CodeInvalidMethod
	case errors.Is(err, domain.ErrEmptyData):
		return http.StatusBadRequest, CodeEmptyData
	case errors.Is(err, domain.ErrInvalidBound):
		return http.StatusBadRequest, CodeInvalidBound
	case errors.Is(err, domain.ErrSchemaMismatch):
		return http.StatusInternalServerError, CodeSchemaMismatch
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		msg = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, Code: code})
}
