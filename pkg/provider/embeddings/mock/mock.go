// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/hireloop/hireloop/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
//
// If Vectors is set, Embed returns Vectors[text] (and an error when the text
// is absent and Err is set, otherwise a zero vector). Set Err to force every
// call to fail, which is how tests exercise the neutral-similarity fallback.
type Provider struct {
	mu sync.Mutex

	// Vectors maps input text to the vector Embed returns for it.
	Vectors map[string][]float32

	// Err, if non-nil, is returned from Embed and EmbedBatch.
	Err error

	// Dims is returned by Dimensions. Defaults to 4 when zero.
	Dims int

	// EmbedCalls records the texts passed to Embed and EmbedBatch in order.
	EmbedCalls []string
}

// Embed records the call and returns the configured vector for text.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	if v, ok := p.Vectors[text]; ok {
		return v, nil
	}
	return make([]float32, p.dims()), nil
}

// EmbedBatch records the calls and returns configured vectors for each text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int { return p.dims() }

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return "mock" }

func (p *Provider) dims() int {
	if p.Dims > 0 {
		return p.Dims
	}
	return 4
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)
