package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/attrlens/backend/internal/domain"
)

// Pipeline runs one description through assemble → complete → parse →
// normalize. It shares only the read-only schema between calls.
type Pipeline struct {
	schema     *domain.Schema
	client     domain.CompletionClient
	assembler  *PromptAssembler
	normalizer *Normalizer
}

// NewPipeline wires the pipeline stages together
func NewPipeline(
	schema *domain.Schema,
	client domain.CompletionClient,
	assembler *PromptAssembler,
	normalizer *Normalizer,
) *Pipeline {
	return &Pipeline{
		schema:     schema,
		client:     client,
		assembler:  assembler,
		normalizer: normalizer,
	}
}

// Schema returns the taxonomy the pipeline validates against.
func (p *Pipeline) Schema() *domain.Schema { return p.schema }

// Normalizer returns the normalizer used by the pipeline.
func (p *Pipeline) Normalizer() *Normalizer { return p.normalizer }

// Run extracts a normalized record from description. Only the completion
// (CompletionError) and JSON location (ExtractionError) steps can fail.
func (p *Pipeline) Run(ctx context.Context, description string) (*domain.Record, error) {
	prompt, err := p.assembler.Assemble(description, p.schema)
	if err != nil {
		return nil, err
	}

	raw, err := p.client.Complete(ctx, prompt)
	if err != nil {
		var ce *domain.CompletionError
		if !errors.As(err, &ce) {
			err = &domain.CompletionError{Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
		}
		return nil, fmt.Errorf("complete: %w", err)
	}

	parsed, err := ParseCompletion(raw)
	if err != nil {
		return nil, err
	}

	return p.normalizer.Normalize(parsed, p.schema), nil
}
