package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/attrlens/backend/internal/domain"
)

// fakeModel is an llms.Model that replies from a function
type fakeModel struct {
	mu       sync.Mutex
	generate func(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error)
	options  llms.CallOptions
	calls    int
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls++
	for _, opt := range options {
		opt(&m.options)
	}
	m.mu.Unlock()
	return m.generate(ctx, messages)
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func reply(text string) func(context.Context, []llms.MessageContent) (*llms.ContentResponse, error) {
	return func(context.Context, []llms.MessageContent) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
	}
}

func testConfig() Config {
	return Config{
		Provider:    ProviderOllama,
		BaseURL:     "http://localhost:11434",
		Model:       "mistral",
		Temperature: 0.1,
		MaxTokens:   256,
		Timeout:     time.Second,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(&fakeModel{}, Config{Model: "mistral"}, zerolog.Nop())

	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, 60*time.Second, client.config.Timeout)
	assert.Equal(t, "mistral", client.ModelName())
}

func TestComplete_Success(t *testing.T) {
	var gotPrompt string
	model := &fakeModel{generate: func(_ context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
		require.Len(t, messages, 1)
		assert.Equal(t, llms.ChatMessageTypeHuman, messages[0].Role)
		gotPrompt = messages[0].Parts[0].(llms.TextContent).Text
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"brand": "PowerMax"}`}}}, nil
	}}
	client := NewClient(model, testConfig(), zerolog.Nop())

	text, err := client.Complete(context.Background(), "extract this")

	require.NoError(t, err)
	assert.Equal(t, `{"brand": "PowerMax"}`, text)
	assert.Equal(t, "extract this", gotPrompt)
	assert.Equal(t, 0.1, model.options.Temperature)
	assert.Equal(t, 256, model.options.MaxTokens)
}

func TestComplete_JSONModeForOpenAI(t *testing.T) {
	model := &fakeModel{generate: reply("{}")}
	cfg := testConfig()
	cfg.Provider = ProviderOpenAI
	cfg.JSONMode = true
	client := NewClient(model, cfg, zerolog.Nop())

	_, err := client.Complete(context.Background(), "p")

	require.NoError(t, err)
	assert.True(t, model.options.JSONMode)
}

func TestComplete_EmptyReply(t *testing.T) {
	tests := []struct {
		name string
		resp *llms.ContentResponse
	}{
		{"nil response", nil},
		{"no choices", &llms.ContentResponse{}},
		{"blank content", &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  \n"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{generate: func(context.Context, []llms.MessageContent) (*llms.ContentResponse, error) {
				return tt.resp, nil
			}}
			client := NewClient(model, testConfig(), zerolog.Nop())

			_, err := client.Complete(context.Background(), "p")

			assert.ErrorIs(t, err, domain.ErrCompletionFailed)
			assert.ErrorIs(t, err, domain.ErrEmptyCompletion)
			assert.False(t, domain.IsTimeout(err))
		})
	}
}

func TestComplete_ModelError(t *testing.T) {
	model := &fakeModel{generate: func(context.Context, []llms.MessageContent) (*llms.ContentResponse, error) {
		return nil, errors.New("connection refused")
	}}
	client := NewClient(model, testConfig(), zerolog.Nop())

	_, err := client.Complete(context.Background(), "p")

	var ce *domain.CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mistral", ce.Model)
	assert.False(t, ce.Timeout)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestComplete_Timeout(t *testing.T) {
	model := &fakeModel{generate: func(ctx context.Context, _ []llms.MessageContent) (*llms.ContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	client := NewClient(model, cfg, zerolog.Nop())

	_, err := client.Complete(context.Background(), "p")

	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.True(t, domain.IsTimeout(err))
}

func TestComplete_CancelledContext(t *testing.T) {
	model := &fakeModel{generate: reply("{}")}
	cfg := testConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	client := NewClient(model, cfg, zerolog.Nop())

	// Drain the single token so the next call has to wait
	_, err := client.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Complete(ctx, "second")

	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.False(t, domain.IsTimeout(err))
	assert.Equal(t, 1, model.calls)
}

func TestNewModel(t *testing.T) {
	t.Run("builds ollama and openai models", func(t *testing.T) {
		for _, provider := range []string{ProviderOllama, ProviderOpenAI} {
			cfg := testConfig()
			cfg.Provider = provider
			model, err := NewModel(cfg)
			require.NoError(t, err, provider)
			assert.NotNil(t, model, provider)
		}
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = "bard"
		_, err := NewModel(cfg)
		assert.Error(t, err)
	})
}

func TestClient_AgainstOllamaServer(t *testing.T) {
	var request map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &request)

		w.Header().Set("Content-Type", "application/x-ndjson")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      "mistral",
			"created_at": time.Now().Format(time.RFC3339),
			"message":    map[string]string{"role": "assistant", "content": `{"color": "orange"}`},
			"done":       true,
		})
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BaseURL = server.URL
	cfg.JSONMode = true
	model, err := NewModel(cfg)
	require.NoError(t, err)

	client := NewClient(model, cfg, zerolog.Nop())
	text, err := client.Complete(context.Background(), "describe")

	require.NoError(t, err)
	assert.Equal(t, `{"color": "orange"}`, text)
	assert.Equal(t, "mistral", request["model"])
	assert.Equal(t, "json", request["format"])
}

func TestClient_OllamaServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BaseURL = server.URL
	model, err := NewModel(cfg)
	require.NoError(t, err)

	_, err = NewClient(model, cfg, zerolog.Nop()).Complete(context.Background(), "describe")

	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
}
