package application

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// SizeFallback is the advisory answer used whenever the model is unavailable
// or returns something unusable. The sizing hint must never block a booking.
const SizeFallback = "m"

const sizingPrompt = `You are helping a customer pick a package size for a return shipment.
Based on the item description below, answer with exactly one of: xs, s, m, l.
xs fits in an envelope, s is a shoebox, m is a microwave, l is anything larger.
Answer with the size code only, no explanation.

Item description: `

// SizingService suggests a package size from a free-text item description
// using Gemini. It is advisory only.
type SizingService struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewSizingService creates a SizingService. With an empty API key the client
// is nil and every suggestion is the static fallback.
func NewSizingService(ctx context.Context, apiKey, model string, logger *zap.Logger) *SizingService {
	s := &SizingService{model: model, logger: logger}
	if apiKey == "" {
		logger.Warn("gemini api key not configured, sizing hints will use the fallback")
		return s
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Error("failed to create gemini client", zap.Error(err))
		return s
	}
	s.client = client
	return s
}

// Suggest returns a package size code for the description. It always returns
// a usable answer; model errors degrade to the fallback.
func (s *SizingService) Suggest(ctx context.Context, description string) string {
	if s.client == nil || strings.TrimSpace(description) == "" {
		return SizeFallback
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	content := &genai.Content{
		Parts: []*genai.Part{
			{Text: sizingPrompt + description},
		},
	}

	result, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0.2)),
		},
	)
	if err != nil {
		s.logger.Warn("sizing suggestion failed", zap.Error(err))
		return SizeFallback
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return SizeFallback
	}

	answer := strings.ToLower(strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text))
	switch answer {
	case "xs", "s", "m", "l":
		return answer
	default:
		s.logger.Warn("unexpected sizing answer", zap.String("answer", answer))
		return SizeFallback
	}
}
