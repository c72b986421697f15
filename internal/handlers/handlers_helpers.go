package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/services"
	"chatrelay-backend/internal/store"
	"chatrelay-backend/internal/validation"
	"chatrelay-backend/pkg/httputil"
)

// maxJSONBody caps request bodies decoded as JSON.
const maxJSONBody = 1 << 20

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// It writes a 400 and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// uuidParam parses a chi URL parameter. It writes a 400 and returns false on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service and store errors to status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrUnavailable):
		logging.Warn().Err(err).Str("path", r.URL.Path).Msg("[Handlers] Store unavailable")
		httputil.RespondError(w, http.StatusServiceUnavailable, "Storage is temporarily unavailable")
	default:
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("[Handlers] Request failed")
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
