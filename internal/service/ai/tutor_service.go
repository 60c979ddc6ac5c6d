package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/structai/structai/backend/internal/config"
	"github.com/structai/structai/backend/internal/service/query"
)

// Service answers tutoring questions through a composed LLM chain. It is
// the concrete tutor behind the orchestrator's query.Service port.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	prompts   *PromptManager
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the tutoring chain on top of the configured model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile tutor chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		prompts:   NewPromptManager(),
		chain:     runnable,
	}, nil
}

// StreamingEnabled indicates whether SSE streaming output is on.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Query runs one tutoring round trip and splits the model output into the
// explanation and an optional DOT diagram.
func (s *Service) Query(ctx context.Context, req query.Request) (query.Result, error) {
	input := s.buildChainInput(req)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return query.Result{}, fmt.Errorf("failed to run tutor chain: %w", err)
	}

	answer, diagram := SplitDiagram(response.Content)
	log.Printf("[ai] answered question, style=%s, answer=%d chars, diagram=%v", req.LearningStyle, len(answer), diagram != "")
	return query.Result{Answer: answer, Diagram: diagram}, nil
}

// Stream runs the same chain in streaming mode. Callers concatenate the
// chunks and split out the diagram themselves once the stream completes.
func (s *Service) Stream(ctx context.Context, req query.Request) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chain.Stream(ctx, s.buildChainInput(req))
	if err != nil {
		return nil, fmt.Errorf("failed to stream tutor chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) buildChainInput(req query.Request) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(req.LearningStyle),
		"history": buildHistoryMessages(req),
		"query":   req.Question,
	}
}

// buildHistoryMessages folds the prior conversation into chat turns, oldest
// first, and closes with the follow-up pair when one is attached so the
// model sees the exchange being extended as the most recent turn.
func buildHistoryMessages(req query.Request) []*schema.Message {
	const historyLimit = 10

	entries := req.History
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	history := make([]*schema.Message, 0, len(entries)*2+2)
	// History is stored newest-first; the model wants chronological order.
	for i := len(entries) - 1; i >= 0; i-- {
		if req.PreviousQuestion != "" && entries[i].Question == req.PreviousQuestion {
			continue
		}
		history = append(history, schema.UserMessage(entries[i].Question))
		history = append(history, schema.AssistantMessage(entries[i].Answer, nil))
	}

	if req.PreviousQuestion != "" || req.PreviousAnswer != "" {
		history = append(history, schema.UserMessage(req.PreviousQuestion))
		history = append(history, schema.AssistantMessage(req.PreviousAnswer, nil))
	}

	return history
}
