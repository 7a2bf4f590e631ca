package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/attrlens/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockCompletionClient replays canned replies. Errors are returned in order
// before any reply; replyFor, when set, picks the reply from the prompt.
type MockCompletionClient struct {
	mu       sync.Mutex
	reply    string
	errs     []error
	replyFor func(prompt string) (string, error)
	calls    int
	prompts  []string
}

func (m *MockCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	if m.replyFor != nil {
		return m.replyFor(prompt)
	}
	return m.reply, nil
}

func (m *MockCompletionClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testSchema(t *testing.T) *domain.Schema {
	t.Helper()
	schema, err := domain.NewSchema(domain.SchemaDefinition{
		Properties: map[string]domain.PropertyDefinition{
			"category": {Type: "enum", Description: "The main category of the product", Values: []string{
				"tools & home improvement", "clothing, shoes & jewelry", "electronics",
			}},
			"subcategory": {Type: "enum", Values: []string{"extension cords", "hats", "headphones"}},
			"brand":       {Type: "enum", Values: []string{"PowerMax", "HatMaster", "Sony", "Sonos"}},
			"color":       {Type: "enum", Values: []string{"orange", "black", "navy blue"}},
			"material":    {Type: "enum", Values: []string{"polyester", "rubber", "cotton"}},
			"dimensions":  {Type: "string", Description: "Product dimensions (e.g., '10x10x5 inches')"},
			"features":    {Type: "array"},
		},
		InferenceRules: []string{"Map 'big' or 'large' to 'l', 'small' to 's'."},
	})
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	return schema
}

func mustNormalizer(t *testing.T, config MatchConfig) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(config)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}
	return n
}
