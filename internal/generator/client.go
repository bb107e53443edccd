package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/models"
	"golang.org/x/time/rate"
)

// ErrGeneration marks any failure to obtain a usable candidate from the
// generation service: transport, empty output or malformed JSON.
var ErrGeneration = errors.New("generation failed")

// LLMClient is the interface every generation backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Options selects and tunes the generation backend.
type Options struct {
	Provider        string // anthropic, gemini, cli or mock
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	CLIPath         string
	RPS             float64 // 0 disables client-side throttling
	Burst           int
}

// Generator turns rejected candidates into new ones through an LLMClient.
type Generator struct {
	llm     LLMClient
	model   string
	limiter *rate.Limiter
	log     *logger.Logger
}

func New(llm LLMClient, model string, limiter *rate.Limiter, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{llm: llm, model: model, limiter: limiter, log: log}
}

// NewFromOptions builds the backend named by opts.Provider.
func NewFromOptions(opts Options, log *logger.Logger) (*Generator, error) {
	if log == nil {
		log = logger.Nop()
	}
	var (
		llm   LLMClient
		model string
	)
	switch strings.ToLower(opts.Provider) {
	case "", "anthropic":
		model = opts.AnthropicModel
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		llm = NewAPIClient(opts.AnthropicAPIKey, model, log)
	case "gemini":
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires GEMINI_API_KEY")
		}
		model = opts.GeminiModel
		if model == "" {
			model = "gemini-1.5-flash"
		}
		llm = NewGeminiClient(opts.GeminiAPIKey, model, log)
	case "cli":
		cliPath := opts.CLIPath
		if cliPath == "" {
			cliPath = "claude"
		}
		llm = NewCLIClient(cliPath)
		model = "claude-cli"
	case "mock":
		llm = NewMockClient()
		model = "mock"
	default:
		return nil, fmt.Errorf("unknown generator provider %q", opts.Provider)
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	log.Info("generator configured", "provider", opts.Provider, "model", model, "rps", opts.RPS)
	return New(llm, model, limiter, log), nil
}

func (g *Generator) ModelName() string {
	return g.model
}

// Regenerate asks the generation service for a replacement of req.Previous.
// Every failure wraps ErrGeneration.
func (g *Generator) Regenerate(ctx context.Context, req RegenerationRequest) (models.Candidate, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return models.Candidate{}, fmt.Errorf("%w: rate limit wait: %w", ErrGeneration, err)
		}
	}

	start := time.Now()
	resp, err := g.llm.Generate(ctx, RegenerationSystemPrompt(), BuildRegenerationPrompt(req))
	if err != nil {
		return models.Candidate{}, fmt.Errorf("%w: %s exercise: %w", ErrGeneration, req.Kind, err)
	}
	g.log.Debug("generation response",
		"kind", req.Kind,
		"attempt", req.Attempt,
		"prompt_tokens", resp.PromptTokens,
		"output_tokens", resp.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	cand, err := ParseCandidate(req.Kind, resp.Content)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("%w: parse %s response: %w", ErrGeneration, req.Kind, err)
	}
	if cand.Title == "" {
		cand.Title = req.Previous.Title
	}
	return cand, nil
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
	log    *logger.Logger
}

func NewAPIClient(apiKey, model string, log *logger.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model, log: log}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.4),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// callWithRetry makes one retry after a short backoff. The wait is cut
// short when ctx ends so the per-call timeout stays authoritative.
func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn("retrying anthropic call", "delay", sleepDuration, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("anthropic API: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(sleepDuration):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("anthropic call failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

// MockClient answers with a fixed, well-formed exercise of the requested
// kind. It never looks at the story, so its output is expected to fail
// coherence and exercise the fallback path.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind := promptKind(userPrompt)
	body, ok := mockResponses[kind]
	if !ok {
		return nil, fmt.Errorf("mock: no canned response for kind %q", kind)
	}
	return &LLMResponse{
		Content:      body,
		PromptTokens: len(userPrompt) / 4,
		OutputTokens: len(body) / 4,
	}, nil
}

var mockResponses = map[models.Kind]string{
	models.KindOrderSentence: `{"kind":"order_sentence","title":"Ordena","words":["sol","El","brilla"],"correct":"El sol brilla."}`,
	models.KindCompleteWords: `{"kind":"complete_words","title":"Completa","sentence":"El sol ___ mucho.","correct":"brilla"}`,
	models.KindDragWords:     "```json\n" + `{"kind":"drag_words","title":"Arrastra","sentence":"El sol ___ mucho.","options":["brilla","mesa","azul"],"correct":"brilla"}` + "\n```",
	models.KindMultiChoice:   `{"kind":"multi_choice","title":"Elige","question":"¿Qué brilla?","choices":["El sol","La mesa","El libro","La silla"],"correct_index":0}`,
	models.KindFreeWriting:   `{"kind":"free_writing","title":"Escribe","prompt":"Escribe sobre el sol.","min_words":10}`,
}
