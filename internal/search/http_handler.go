package search

import (
	"encoding/json"
	"errors"
	"net/http"

	"medialib/internal/httpx"
	"medialib/internal/media"

	"github.com/go-playground/validator/v10"
)

type HTTPHandler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc, validate: validator.New()}
}

type searchRequest struct {
	Type  string `json:"type" validate:"required,oneof=Book Movie_TV"`
	Query string `json:"query" validate:"required"`
}

// Search handles POST /search
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid search request", validationDetails(err))
		return
	}

	mediaType, err := media.ParseType(req.Type)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_TYPE", "Unsupported media type", nil)
		return
	}

	results := h.svc.Search(r.Context(), mediaType, req.Query)
	httpx.JSONSuccess(w, r, results, map[string]any{
		"count": len(results),
	})
}

func validationDetails(err error) []httpx.ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]httpx.ErrorDetail, 0, len(verrs))
	for _, ve := range verrs {
		details = append(details, httpx.ErrorDetail{
			Field:   ve.Field(),
			Message: "failed on " + ve.Tag(),
		})
	}
	return details
}
