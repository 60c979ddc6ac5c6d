package query

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	model "github.com/structai/structai/backend/internal/model/conversation"
	queryService "github.com/structai/structai/backend/internal/service/query"
)

// Handler serves question submissions.
type Handler struct {
	orch *queryService.Orchestrator
}

// New creates the query handler.
func New(orch *queryService.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// RegisterRoutes registers the submission route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.handleQuery)
}

type queryPayload struct {
	Question         string `json:"question"`
	LearningStyle    string `json:"learning_style"`
	PreviousEntryID  int64  `json:"previous_entry_id"`
	PreviousQuestion string `json:"previous_question"`
	PreviousAnswer   string `json:"previous_answer"`
}

// followUpContext rebuilds the snapshot attached by the client, or nil for
// a fresh question.
func (p queryPayload) followUpContext() *model.FollowUpContext {
	if p.PreviousQuestion == "" && p.PreviousAnswer == "" && p.PreviousEntryID == 0 {
		return nil
	}
	return &model.FollowUpContext{
		EntryID:  p.PreviousEntryID,
		Question: p.PreviousQuestion,
		Answer:   p.PreviousAnswer,
	}
}

type queryResponse struct {
	Answer  string      `json:"answer"`
	Diagram string      `json:"diagram,omitempty"`
	Entry   model.Entry `json:"entry"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload queryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.Question = strings.TrimSpace(payload.Question)
	if payload.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	style, err := model.ParseLearningStyle(payload.LearningStyle)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.orch.Submit(r.Context(), payload.Question, style, payload.followUpContext())
	if err != nil {
		var te *queryService.TransportError
		if errors.As(err, &te) {
			respondJSON(w, te.Status, map[string]any{
				"error":       te.Description,
				"status":      te.Status,
				"description": te.Description,
				"detail":      detailOf(te),
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, queryResponse{
		Answer:  outcome.Answer,
		Diagram: outcome.Diagram,
		Entry:   outcome.Entry,
	})
}

func detailOf(te *queryService.TransportError) string {
	if te.Err == nil {
		return ""
	}
	return te.Err.Error()
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
