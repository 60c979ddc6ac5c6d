package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"

	model "github.com/structai/structai/backend/internal/model/conversation"
	"github.com/structai/structai/backend/internal/service/ai"
	conversation "github.com/structai/structai/backend/internal/service/conversation"
	queryService "github.com/structai/structai/backend/internal/service/query"
	"github.com/structai/structai/backend/pkg/utils"
)

// Handler streams tutor answers via Server-Sent Events. The streamed chunks
// are assembled into the same result a plain submission produces and routed
// through the orchestrator once the stream completes.
type Handler struct {
	tutor   *ai.Service
	orch    *queryService.Orchestrator
	history *conversation.Service
}

// New creates a stream handler.
func New(tutor *ai.Service, orch *queryService.Orchestrator, history *conversation.Service) *Handler {
	return &Handler{tutor: tutor, orch: orch, history: history}
}

// StreamEvent is one SSE chunk sent to the client.
type StreamEvent struct {
	Event    string       `json:"event"`
	Content  string       `json:"content,omitempty"`
	Diagram  string       `json:"diagram,omitempty"`
	Entry    *model.Entry `json:"entry,omitempty"`
	Finished bool         `json:"finished,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// HandleStreamRequest runs one streamed submission.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, question string, style model.LearningStyle, followUp *model.FollowUpContext) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	req := queryService.Request{
		Question:      question,
		LearningStyle: style,
		History:       h.history.Entries(),
	}
	if followUp != nil {
		req.PreviousQuestion = followUp.Question
		req.PreviousAnswer = followUp.Answer
	}

	utils.SendSSEChunk(w, flusher, StreamEvent{Event: "start"})

	response, err := h.streamAnswer(ctx, w, flusher, req)
	if err != nil {
		h.sendError(w, flusher, fmt.Sprintf("answer generation failed: %v", err))
		return err
	}

	answer, diagram := ai.SplitDiagram(response.Content)
	outcome := h.orch.Apply(ctx, question, style, followUp, queryService.Result{Answer: answer, Diagram: diagram})

	resultEvent := StreamEvent{Event: "result", Content: answer, Diagram: diagram}
	if !outcome.MergeMiss {
		entry := outcome.Entry
		resultEvent.Entry = &entry
	}
	utils.SendSSEChunk(w, flusher, resultEvent)
	utils.SendSSEChunk(w, flusher, StreamEvent{Event: "end", Finished: true})

	log.Printf("[stream] completed streamed answer, style=%s, diagram=%v", style, diagram != "")
	return nil
}

func (h *Handler) streamAnswer(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, req queryService.Request) (*schema.Message, error) {
	stream, err := h.tutor.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEChunk(w, flusher, StreamEvent{Event: "delta", Content: chunk.Content})
		}
	}

	return schema.ConcatMessages(chunks)
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, msg string) {
	utils.SendSSEChunk(w, flusher, StreamEvent{Event: "error", Error: msg})
}
