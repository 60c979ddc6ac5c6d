// Package query coordinates a single user submission: it builds the
// outgoing request, invokes the tutor service once, routes the result into
// the conversation history and hands any returned diagram to the renderer.
package query

import (
	"context"
	"log"

	model "github.com/structai/structai/backend/internal/model/conversation"
	"github.com/structai/structai/backend/internal/render"
	conversation "github.com/structai/structai/backend/internal/service/conversation"
)

// Request is the payload sent to the tutor service. History carries the
// full prior conversation; the previous question/answer pair is set only
// when the submission follows up on an existing entry.
type Request struct {
	Question         string              `json:"question"`
	LearningStyle    model.LearningStyle `json:"learning_style"`
	History          []model.Entry       `json:"history"`
	PreviousQuestion string              `json:"previous_question,omitempty"`
	PreviousAnswer   string              `json:"previous_answer,omitempty"`
}

// Result is the tutor service's successful response.
type Result struct {
	Answer  string `json:"answer"`
	Diagram string `json:"diagram,omitempty"`
}

// Service is the remote tutoring collaborator invoked once per submission.
type Service interface {
	Query(ctx context.Context, req Request) (Result, error)
}

// Outcome reports a completed submission back to the caller. Answer and
// Diagram carry the tutor's raw response; Entry is the created or merged
// history entry (zero-valued on a merge miss).
type Outcome struct {
	Answer    string
	Diagram   string
	Entry     model.Entry
	History   []model.Entry
	MergeMiss bool
}

// Orchestrator wires the tutor service, the conversation history and the
// diagram renderer together. It does not serialize submissions; the caller
// keeps at most one in flight.
type Orchestrator struct {
	tutor    Service
	history  *conversation.Service
	renderer *render.Renderer
	surface  *render.Surface
}

// NewOrchestrator builds an orchestrator around its collaborators.
func NewOrchestrator(tutor Service, history *conversation.Service, renderer *render.Renderer, surface *render.Surface) *Orchestrator {
	return &Orchestrator{tutor: tutor, history: history, renderer: renderer, surface: surface}
}

// Submit runs one question round trip.
//
// On success the result lands in the history — a fresh entry when no
// follow-up context is given, an in-place merge of the matched entry when
// it is — and a returned diagram is rendered onto the display surface. On
// failure the history is untouched and a *TransportError is returned. The
// follow-up context is consumed either way; it never outlives a round trip.
func (o *Orchestrator) Submit(ctx context.Context, question string, style model.LearningStyle, followUp *model.FollowUpContext) (Outcome, error) {
	req := Request{
		Question:      question,
		LearningStyle: style,
		History:       o.history.Entries(),
	}
	if followUp != nil {
		req.PreviousQuestion = followUp.Question
		req.PreviousAnswer = followUp.Answer
	}

	result, err := o.tutor.Query(ctx, req)
	if err != nil {
		return Outcome{}, AsTransportError(err)
	}

	return o.Apply(ctx, question, style, followUp, result), nil
}

// Apply routes an already-obtained result into the history and the display
// surface. Submit calls it after the remote round trip; the streaming
// handler calls it directly once the streamed answer is assembled.
func (o *Orchestrator) Apply(ctx context.Context, question string, style model.LearningStyle, followUp *model.FollowUpContext, result Result) Outcome {
	outcome := Outcome{Answer: result.Answer, Diagram: result.Diagram}
	if followUp != nil {
		entries, merged, ok := o.history.ApplyFollowUp(*followUp, question, result.Answer)
		outcome.History = entries
		outcome.MergeMiss = !ok
		if ok {
			outcome.Entry = merged
		} else {
			// The snapshot no longer matches any entry; the response is
			// dropped rather than misattached to an unrelated question.
			log.Printf("[query] follow-up merge miss for question %q", followUp.Question)
		}
	} else {
		entry := o.history.NewEntry(question, result.Answer, result.Diagram, style, false)
		outcome.Entry = entry
		outcome.History = o.history.ApplyNewEntry(entry)
	}

	if result.Diagram != "" {
		if err := o.renderer.Render(ctx, result.Diagram, o.surface); err != nil {
			// Render failures stay inline on the surface; the answer itself
			// already succeeded.
			log.Printf("[query] %v", err)
		}
	}

	return outcome
}
