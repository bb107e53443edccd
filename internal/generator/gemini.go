package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient calls Google's Gemini models as an alternative backend.
type GeminiClient struct {
	apiKey string
	model  string
	log    *logger.Logger
}

func NewGeminiClient(apiKey, model string, log *logger.Logger) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, model: model, log: log}
}

func (c *GeminiClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(strings.TrimSpace(c.model))
	if m == nil {
		return nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.4),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
		if err != nil {
			lastErr = err
			c.log.Warn("gemini call failed", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gemini: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
			continue
		}

		txt := firstText(resp)
		if txt == "" {
			return nil, fmt.Errorf("gemini: empty response")
		}
		out := &LLMResponse{Content: txt}
		if resp.UsageMetadata != nil {
			out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		return out, nil
	}
	return nil, fmt.Errorf("gemini failed after retries: %w", lastErr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
