// Package handler provides HTTP handlers for the tripfeed API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tripfeed/tripfeed/internal/api/models"
	"github.com/tripfeed/tripfeed/internal/api/response"
	"github.com/tripfeed/tripfeed/internal/transit"
	"github.com/tripfeed/tripfeed/internal/tripupdates"
)

// CacheControl is sent with every successful feed response. Feeds change
// every few seconds, so clients must revalidate.
const CacheControl = "public, max-age=0, must-revalidate"

// TripUpdatesService produces normalized feeds.
type TripUpdatesService interface {
	TripUpdates(ctx context.Context, mode transit.Mode) (*tripupdates.Result, error)
}

// TripUpdatesHandler serves normalized trip-update feeds.
type TripUpdatesHandler struct {
	service TripUpdatesService
}

// NewTripUpdatesHandler creates a new TripUpdatesHandler.
func NewTripUpdatesHandler(service TripUpdatesService) *TripUpdatesHandler {
	return &TripUpdatesHandler{service: service}
}

// GetTripUpdates handles GET /api/gtfs/{mode}/trip-updates and
// GET /api/gtfs/trip-updates?mode=. The query parameter wins over the path.
func (h *TripUpdatesHandler) GetTripUpdates(w http.ResponseWriter, r *http.Request) {
	mode, err := transit.ResolveMode(r.URL.Query().Get("mode"), chi.URLParam(r, "mode"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	result, err := h.service.TripUpdates(r.Context(), mode)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", CacheControl)

	if isDebug(r) {
		response.JSON(w, r, http.StatusOK,
			models.NewDebugResponse(mode.String(), result.Feed, result.RedactedURL, result.AuthScheme))
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewTripUpdatesResponse(mode.String(), result.Feed))
}

func isDebug(r *http.Request) bool {
	switch r.URL.Query().Get("debug") {
	case "1", "true":
		return true
	}
	return false
}
