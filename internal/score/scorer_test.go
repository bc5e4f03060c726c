package score

import (
	"context"
	"errors"
	"math"
	"testing"

	embmock "github.com/hireloop/hireloop/pkg/provider/embeddings/mock"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite clamps to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"forty five degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityNeutralOnFailure(t *testing.T) {
	s := New(&embmock.Provider{Err: errors.New("backend down")})
	got := s.Similarity(context.Background(), "a", "b")
	if got != Neutral {
		t.Errorf("Similarity = %v, want neutral %v", got, Neutral)
	}
}

func TestSimilarityUsesCache(t *testing.T) {
	p := &embmock.Provider{
		Vectors: map[string][]float32{
			"question": {1, 0, 0, 0},
			"answer":   {1, 0, 0, 0},
		},
	}
	s := New(p)

	first := s.Similarity(context.Background(), "question", "answer")
	second := s.Similarity(context.Background(), "question", "answer")
	if first != 1 || second != 1 {
		t.Fatalf("similarities = %v, %v, want 1, 1", first, second)
	}
	if got := len(p.EmbedCalls); got != 2 {
		t.Errorf("provider saw %d embed calls, want 2 (second pass cached)", got)
	}
}

func TestMaxSimilarity(t *testing.T) {
	p := &embmock.Provider{
		Vectors: map[string][]float32{
			"new":   {1, 0, 0, 0},
			"far":   {0, 1, 0, 0},
			"close": {0.9, 0.1, 0, 0},
		},
	}
	s := New(p)

	sim, idx := s.MaxSimilarity(context.Background(), "new", []string{"far", "close"})
	if idx != 1 {
		t.Fatalf("best index = %d, want 1", idx)
	}
	if sim < 0.9 {
		t.Errorf("best similarity = %v, want >= 0.9", sim)
	}

	sim, idx = s.MaxSimilarity(context.Background(), "new", nil)
	if sim != 0 || idx != -1 {
		t.Errorf("empty corpus = (%v, %d), want (0, -1)", sim, idx)
	}
}
