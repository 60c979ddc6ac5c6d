package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/structai/structai/backend/internal/handler/diagram"
	"github.com/structai/structai/backend/internal/handler/events"
	historyHandler "github.com/structai/structai/backend/internal/handler/history"
	queryHandler "github.com/structai/structai/backend/internal/handler/query"
	"github.com/structai/structai/backend/internal/handler/stream"
	middlewarePkg "github.com/structai/structai/backend/internal/middleware"
	model "github.com/structai/structai/backend/internal/model/conversation"
	"github.com/structai/structai/backend/internal/render"
	aiService "github.com/structai/structai/backend/internal/service/ai"
	conversationService "github.com/structai/structai/backend/internal/service/conversation"
	queryService "github.com/structai/structai/backend/internal/service/query"
	"github.com/structai/structai/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. The tutor and orchestrator
// are nil when no model credentials are configured; the history and diagram
// surfaces keep working without them.
func NewRouter(history *conversationService.Service, orch *queryService.Orchestrator, tutor *aiService.Service, renderer *render.Renderer, surface *render.Surface) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	histHandler := historyHandler.New(history, renderer, surface)
	diagramHandler := diagram.New(surface)
	eventsHandler := events.New(surface)

	var streamHandler *stream.Handler
	if tutor != nil && orch != nil {
		streamHandler = stream.New(tutor, orch, history)
	}

	r.Route("/api", func(api chi.Router) {
		histHandler.RegisterRoutes(api)
		diagramHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)

		if orch != nil {
			queryHandler.New(orch).RegisterRoutes(api)
		} else {
			api.Post("/query", func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "tutor service unavailable")
			})
		}

		api.Get("/query/stream", func(w http.ResponseWriter, r *http.Request) {
			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "tutor streaming unavailable")
				return
			}

			question := strings.TrimSpace(r.URL.Query().Get("question"))
			if question == "" {
				utils.RespondError(w, http.StatusBadRequest, "question query parameter is required")
				return
			}

			style, err := model.ParseLearningStyle(r.URL.Query().Get("learning_style"))
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, question, style, followUpFromQuery(r)); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}

// followUpFromQuery rebuilds the follow-up snapshot from query parameters,
// or nil for a fresh question.
func followUpFromQuery(r *http.Request) *model.FollowUpContext {
	q := r.URL.Query()
	prevQuestion := q.Get("previous_question")
	prevAnswer := q.Get("previous_answer")
	prevID, _ := strconv.ParseInt(q.Get("previous_entry_id"), 10, 64)

	if prevQuestion == "" && prevAnswer == "" && prevID == 0 {
		return nil
	}
	return &model.FollowUpContext{EntryID: prevID, Question: prevQuestion, Answer: prevAnswer}
}
