package library

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
	// The library owner. Until the service grows real accounts there is
	// exactly one, configured at startup.
	userID string
}

func NewHTTPHandler(svc *Service, userID string) *HTTPHandler {
	return &HTTPHandler{svc: svc, validate: validator.New(), userID: userID}
}

// The search results form can submit either the split fields or the legacy
// "Type:ID" selection string.
type addItemRequest struct {
	Type      string `json:"type" validate:"required_without=Selection"`
	ID        string `json:"id" validate:"required_without=Selection"`
	Selection string `json:"selection"`
}

// AddItem handles POST /library/items
func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid add request", validationDetails(err))
		return
	}

	var (
		mediaType media.Type
		itemID    string
		err       error
	)
	if req.Selection != "" {
		mediaType, itemID, err = media.ParseSelection(req.Selection)
	} else {
		mediaType, err = media.ParseType(req.Type)
		itemID = req.ID
	}
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_SELECTION", "Invalid item selection", nil)
		return
	}

	if err := h.svc.Ingest(r.Context(), mediaType, itemID, h.userID); err != nil {
		switch {
		case errors.Is(err, media.ErrInvalidType):
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_TYPE", "Unsupported media type", nil)
		case errors.Is(err, media.ErrProviderUnavailable):
			httpx.JSONError(w, r, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "Media provider is unavailable", nil)
		case errors.Is(err, media.ErrMalformedResponse):
			httpx.JSONError(w, r, http.StatusBadGateway, "PROVIDER_ERROR", "Media provider returned an unusable response", nil)
		default:
			httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not add item to library", nil)
		}
		return
	}

	httpx.JSONSuccessCreated(w, r, map[string]any{
		"type": mediaType,
		"id":   itemID,
	})
}

// Library handles GET /library
func (h *HTTPHandler) Library(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ReadLibrary(r.Context(), h.userID)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not read library", nil)
		return
	}
	httpx.JSONSuccess(w, r, items, map[string]any{
		"count": len(items),
	})
}

// GetItem handles GET /library/items/{type}/{id}
func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	mediaType, err := media.ParseType(r.PathValue("type"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_TYPE", "Unsupported media type", nil)
		return
	}
	itemID := r.PathValue("id")
	if itemID == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Item id is required", nil)
		return
	}

	item, err := h.svc.GetItem(r.Context(), mediaType, itemID)
	if err != nil {
		if errors.Is(err, media.ErrMissingRelatedRow) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Item not found in library", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not read item", nil)
		return
	}
	httpx.JSONSuccess(w, r, item, nil)
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
