// Package local provides a deterministic in-process embeddings provider.
//
// Vectors are built by hashing word tokens into a fixed number of buckets
// (a hashed bag-of-words) and L2-normalising the result. Texts that share
// vocabulary land close together in cosine space, which is enough for the
// engine's redundancy gate and for offline runs and tests where no embedding
// API is reachable. It is not a substitute for a learned embedding model.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/hireloop/hireloop/pkg/provider/embeddings"
)

// DefaultDimensions is the vector size used when none is given.
const DefaultDimensions = 256

// Ensure Provider implements the embeddings.Provider interface.
var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider with hashed bag-of-words vectors.
// The zero value is not usable; construct with [New].
type Provider struct {
	dims int
}

// New constructs a local Provider with the given vector size.
// If dims <= 0, DefaultDimensions is used.
func New(dims int) *Provider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Provider{dims: dims}
}

// Embed implements embeddings.Provider. It never fails.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%p.dims]++
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch implements embeddings.Provider.
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
func (p *Provider) Dimensions() int { return p.dims }

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return "local-hashed-bow" }

// tokenize lowercases text and splits it on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalize scales vec to unit length in place. Zero vectors are left as is.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
