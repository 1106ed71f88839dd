package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tripfeed/tripfeed/internal/api/models"
	"github.com/tripfeed/tripfeed/internal/api/response"
)

// EchoHandler reflects routing details for connectivity checks. It only
// echoes two harmless headers so nothing sensitive reaches logs.
type EchoHandler struct {
	now func() time.Time
}

// NewEchoHandler creates a new EchoHandler.
func NewEchoHandler() *EchoHandler {
	return &EchoHandler{now: time.Now}
}

// Echo handles GET /api/gtfs/{mode}/echo, /api/gtfs/echo and /api/echo.
// The mode is echoed raw, without validation.
func (h *EchoHandler) Echo(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	mode := values.Get("mode")
	if mode == "" {
		mode = chi.URLParam(r, "mode")
	}

	query := make(map[string]string, len(values))
	for k := range values {
		query[k] = values.Get(k)
	}

	response.JSON(w, r, http.StatusOK, models.EchoResponse{
		OK:    true,
		Mode:  mode,
		Path:  r.URL.RequestURI(),
		Query: query,
		Headers: models.EchoHeaders{
			UserAgent: r.Header.Get("User-Agent"),
			VercelID:  r.Header.Get("X-Vercel-Id"),
		},
		Timestamp: models.Timestamp(h.now().UTC()),
	})
}
