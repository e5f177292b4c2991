package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/spigell/resume-classifier/internal/textutil"
)

const (
	defaultDimensions = 512
	bigramWeight      = 0.5
)

// HashEmbedder is a deterministic, offline embedding: signed feature hashing of
// unigrams and bigrams into a fixed number of buckets, L2-normalised.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder; dims <= 0 selects the default size.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) ModelID() string {
	return fmt.Sprintf("hash-fnv1a-%d", h.dims)
}

// Dimensions returns the vector length.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	acc := make([]float64, h.dims)
	tokens := textutil.Tokenize(textutil.Normalize(text))
	for i, tok := range tokens {
		h.add(acc, tok, 1)
		if i > 0 {
			h.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, h.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (h *HashEmbedder) add(acc []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}
