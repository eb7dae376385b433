package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/backend/internal/config"
)

const systemPrompt = "You are a friendly AI assistant in the chat room {roomContext}. " +
	"Several people are talking; one of them mentioned you. " +
	"Answer their question directly and keep it short and conversational."

// Service answers mention prompts with a single model call. It wraps an
// Ark chat model behind a compiled prompt-template chain.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the inference service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// Invoke runs one request/response inference call. roomContext is the
// room code, included so the model knows where it is speaking.
func (s *Service) Invoke(ctx context.Context, promptText, roomContext string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"roomContext": roomContext,
		"query":       promptText,
	})
	if err != nil {
		return "", fmt.Errorf("run ai chain: %w", err)
	}

	log.Info().Str("room", roomContext).Int("reply_len", len(response.Content)).Msg("generated ai reply")
	return response.Content, nil
}
