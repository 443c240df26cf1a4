package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/niksmo/storefront/internal/core/domain"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnverified):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidPriceRange),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Server side failures are logged and
// their details are not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusOf(err)
	log := slog.With("op", op, "requestID", middleware.GetReqID(r.Context()))

	msg := http.StatusText(status)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "err", err)
	} else {
		log.Debug("request rejected", "status", status, "err", err)
		msg = sentinelText(err, msg)
	}

	writeJSON(w, r, status, ErrorResponse{Error: msg})
}

func sentinelText(err error, fallback string) string {
	for _, s := range []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidCredentials,
		domain.ErrInvalidToken,
		domain.ErrUnverified,
		domain.ErrInvalidPriceRange,
		domain.ErrInvalidArgument,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return fallback
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: "validation failed"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			resp.Fields = append(resp.Fields, FieldError{
				Field: e.Field(),
				Tag:   e.Tag(),
			})
		}
	}
	writeJSON(w, r, http.StatusBadRequest, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body",
			"requestID", middleware.GetReqID(r.Context()), "err", err)
	}
}

// decodeJSON decodes and validates the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeValidationError(w, r, err)
		return false
	}
	return true
}
