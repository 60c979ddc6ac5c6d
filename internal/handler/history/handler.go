package history

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	model "github.com/structai/structai/backend/internal/model/conversation"
	"github.com/structai/structai/backend/internal/render"
	conversation "github.com/structai/structai/backend/internal/service/conversation"
)

const summaryLimit = 70

// Handler serves the conversation history and owns the session's selection
// state. The selection lives for the process lifetime and is never
// persisted; changing it re-renders the resolved entry's diagram so the
// display surface always tracks the current entry.
type Handler struct {
	history  *conversation.Service
	renderer *render.Renderer
	surface  *render.Surface

	mu       sync.Mutex
	selected int
}

// New creates the history handler with no selection.
func New(history *conversation.Service, renderer *render.Renderer, surface *render.Surface) *Handler {
	return &Handler{
		history:  history,
		renderer: renderer,
		surface:  surface,
		selected: conversation.NoSelection,
	}
}

// RegisterRoutes registers history and selection routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleList)
	r.Get("/history/current", h.handleCurrent)
	r.Put("/history/selection", h.handleSelect)
	r.Delete("/history/selection", h.handleClearSelection)
}

// historyItem augments an entry with the sidebar summary.
type historyItem struct {
	model.Entry
	Summary string `json:"summary"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries := h.history.Entries()
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{Entry: e, Summary: summarize(e.Question)})
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	current, ok := conversation.ResolveCurrent(h.history.Entries(), h.Selection())
	if !ok {
		respondError(w, http.StatusNotFound, "no conversation yet")
		return
	}
	respondJSON(w, http.StatusOK, current)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Index < 0 {
		respondError(w, http.StatusBadRequest, "index must not be negative")
		return
	}

	h.setSelection(payload.Index)
	current := h.refreshSurface(r.Context())
	respondJSON(w, http.StatusOK, current)
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.setSelection(conversation.NoSelection)
	h.refreshSurface(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Selection returns the current selection index, or NoSelection.
func (h *Handler) Selection() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

func (h *Handler) setSelection(index int) {
	h.mu.Lock()
	h.selected = index
	h.mu.Unlock()
}

// refreshSurface re-renders the resolved entry's diagram, clearing the
// surface when the entry has none. Returns the resolved entry, or nil when
// the history is empty.
func (h *Handler) refreshSurface(ctx context.Context) *model.Entry {
	current, ok := conversation.ResolveCurrent(h.history.Entries(), h.Selection())
	if !ok {
		if err := h.renderer.Render(ctx, "", h.surface); err != nil {
			log.Printf("[history] %v", err)
		}
		return nil
	}

	if err := h.renderer.Render(ctx, current.Diagram, h.surface); err != nil {
		log.Printf("[history] %v", err)
	}
	return &current
}

func summarize(question string) string {
	if len(question) <= summaryLimit {
		return question
	}
	return question[:summaryLimit] + "..."
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
