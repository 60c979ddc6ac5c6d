package diagram

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/structai/structai/backend/internal/render"
)

// Handler serves the display surface's current artifact.
type Handler struct {
	surface *render.Surface
}

// New creates the diagram handler.
func New(surface *render.Surface) *Handler {
	return &Handler{surface: surface}
}

// RegisterRoutes registers the artifact route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/diagram", h.handleArtifact)
}

// handleArtifact writes the mounted artifact: the rendered diagram on
// success, the inline fallback after a failed render, 204 when cleared.
func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, ok := h.surface.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("X-Diagram-Container", artifact.ContainerID)
	if artifact.Failed {
		w.Header().Set("X-Diagram-Status", render.StatusFailed)
	} else {
		w.Header().Set("X-Diagram-Status", render.StatusRendered)
	}
	_, _ = w.Write(artifact.Body)
}
