// Package embedding turns text into fixed-length vectors and keeps the
// precomputed role description vectors used by the embedding scorer.
package embedding

import (
	"context"
	"math"
)

// Embedder is the fixed text-embedding function. Role descriptions and resumes
// must be encoded by the same Embedder for their similarity to be meaningful.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errUnexpectedCount(1, len(vecs))
	}
	return vecs[0], nil
}

// Cosine returns the cosine similarity of a and b, 0 when either has no magnitude.
// Vectors of different length are compared over their common prefix.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
