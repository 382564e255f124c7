// Package advice holds the interchangeable response-generation strategies.
// Each strategy turns an enriched prompt into user-facing text and owns its
// own degradation path, so a generation failure surfaces as a friendly
// sentence instead of an error wherever the product allows it.
package advice

import (
	"context"
	"fmt"

	"github.com/vagledaren/vagledaren/internal/catalog"
	"github.com/vagledaren/vagledaren/internal/generate"
)

// Strategy kinds as registered in the Registry.
const (
	KindSchoolAdvice = "school_advice"
	KindNoResults    = "no_results"
	KindCounseling   = "counseling"
	KindTitle        = "title"
)

// Input carries everything a strategy may need. Prompt is always set;
// the remaining fields depend on the strategy.
type Input struct {
	Prompt     string
	RawMessage string
	Schools    []catalog.School
	Criteria   catalog.Criteria
}

// Generator is one response strategy.
type Generator interface {
	Kind() string
	Generate(ctx context.Context, in Input) (string, error)
}

// StreamingGenerator additionally supports chunked delivery.
type StreamingGenerator interface {
	Generator
	GenerateStream(ctx context.Context, in Input) (*generate.Stream, error)
}

// Registry holds the configured strategies keyed by kind.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry builds a registry from the given strategies.
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: make(map[string]Generator, len(gens))}
	for _, g := range gens {
		r.generators[g.Kind()] = g
	}
	return r
}

// Get returns the strategy for kind.
func (r *Registry) Get(kind string) (Generator, error) {
	g, ok := r.generators[kind]
	if !ok {
		return nil, fmt.Errorf("no generator registered for kind %q", kind)
	}
	return g, nil
}

// GetStreaming returns the strategy for kind when it supports streaming.
func (r *Registry) GetStreaming(kind string) (StreamingGenerator, error) {
	g, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	sg, ok := g.(StreamingGenerator)
	if !ok {
		return nil, fmt.Errorf("generator %q does not support streaming", kind)
	}
	return sg, nil
}

// Kinds lists the registered strategy kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.generators))
	for k := range r.generators {
		kinds = append(kinds, k)
	}
	return kinds
}
