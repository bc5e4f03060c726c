// Package score computes semantic similarity between texts.
//
// The scorer embeds both texts through the configured embeddings provider and
// returns the cosine of the two vectors, clamped to [0, 1]. Embedding
// failures never propagate: scoring happens on the answer hot path, so a
// broken embedding backend degrades to a neutral similarity instead of
// failing the interview turn.
package score

import (
	"context"
	"log/slog"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/pkg/provider/embeddings"
)

// Neutral is the similarity reported when embeddings are unavailable.
const Neutral = 0.5

// cacheSize bounds the embedding cache. Interview texts repeat heavily
// (ideal answers, asked questions), so a small cache absorbs most calls.
const cacheSize = 200

// Scorer computes text similarity over an embeddings provider.
// Safe for concurrent use.
type Scorer struct {
	provider embeddings.Provider
	cache    *lru.Cache[string, []float32]
	metrics  *observe.Metrics
}

// New creates a Scorer over the given provider.
func New(provider embeddings.Provider) *Scorer {
	cache, _ := lru.New[string, []float32](cacheSize)
	return &Scorer{
		provider: provider,
		cache:    cache,
		metrics:  observe.DefaultMetrics(),
	}
}

// Similarity returns the cosine similarity of a and b in [0, 1].
// Returns [Neutral] when either embedding fails.
func (s *Scorer) Similarity(ctx context.Context, a, b string) float64 {
	va, err := s.embed(ctx, a)
	if err != nil {
		s.reportFailure(ctx, err)
		return Neutral
	}
	vb, err := s.embed(ctx, b)
	if err != nil {
		s.reportFailure(ctx, err)
		return Neutral
	}
	return Cosine(va, vb)
}

// MaxSimilarity returns the highest similarity between text and any member of
// corpus, along with the index of that member. Returns (0, -1) for an empty
// corpus and ([Neutral], -1) when embedding text fails.
func (s *Scorer) MaxSimilarity(ctx context.Context, text string, corpus []string) (float64, int) {
	if len(corpus) == 0 {
		return 0, -1
	}
	vt, err := s.embed(ctx, text)
	if err != nil {
		s.reportFailure(ctx, err)
		return Neutral, -1
	}

	best, bestIdx := 0.0, -1
	for i, c := range corpus {
		vc, err := s.embed(ctx, c)
		if err != nil {
			s.reportFailure(ctx, err)
			continue
		}
		if sim := Cosine(vt, vc); sim > best {
			best, bestIdx = sim, i
		}
	}
	return best, bestIdx
}

// embed returns the cached or freshly computed embedding for text.
func (s *Scorer) embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.cache.Get(text); ok {
		return v, nil
	}
	v, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, v)
	return v, nil
}

// reportFailure logs and counts an embedding failure.
func (s *Scorer) reportFailure(ctx context.Context, err error) {
	slog.Warn("embedding failed, using neutral similarity", "err", err)
	s.metrics.RecordProviderError(ctx, s.provider.ModelID(), "embeddings")
}

// Cosine returns the cosine similarity of two vectors, clamped to [0, 1].
// Mismatched lengths and zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Min(1, math.Max(0, cos))
}
