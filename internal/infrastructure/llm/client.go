package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/attrlens/backend/internal/domain"
)

// Supported providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds completion client configuration
type Config struct {
	Provider          string
	BaseURL           string
	Model             string
	APIKey            string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	JSONMode          bool
	RequestsPerSecond float64
	Burst             int
}

// Client sends prompts to a locally hosted model through langchaingo.
// It implements domain.CompletionClient and never retries.
type Client struct {
	model       llms.Model
	config      Config
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewModel builds the langchaingo model for the configured provider.
func NewModel(config Config) (llms.Model, error) {
	switch config.Provider {
	case "", ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		}
		if config.JSONMode {
			opts = append(opts, ollama.WithFormat("json"))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama model: %w", err)
		}
		return model, nil

	case ProviderOpenAI:
		// Local OpenAI-compatible servers usually ignore the key, but the
		// client refuses to start without one.
		token := config.APIKey
		if token == "" {
			token = "local"
		}
		model, err := openai.New(
			openai.WithModel(config.Model),
			openai.WithBaseURL(config.BaseURL),
			openai.WithToken(token),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai model: %w", err)
		}
		return model, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
}

// NewClient wraps model with rate limiting and a per-call timeout
func NewClient(model llms.Model, config Config, logger zerolog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := max(config.Burst, 1)

	return &Client{
		model:       model,
		config:      config,
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger.With().Str("component", "llm").Str("model", config.Model).Logger(),
	}
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string { return c.config.Model }

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", c.completionError(ctx, fmt.Errorf("rate limiter: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.model.GenerateContent(callCtx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, c.callOptions()...)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Debug().Err(err).Dur("elapsed", elapsed).Msg("completion failed")
		return "", c.completionError(callCtx, err)
	}

	text := ResponseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &domain.CompletionError{Model: c.config.Model, Err: domain.ErrEmptyCompletion}
	}

	c.logger.Debug().Dur("elapsed", elapsed).Int("chars", len(text)).Msg("completion received")
	return text, nil
}

func (c *Client) callOptions() []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTemperature(c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.config.MaxTokens))
	}
	if c.config.JSONMode && c.config.Provider == ProviderOpenAI {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}

// completionError classifies err; an expired deadline on ctx marks a timeout.
func (c *Client) completionError(ctx context.Context, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &domain.CompletionError{Model: c.config.Model, Timeout: timeout, Err: err}
}
