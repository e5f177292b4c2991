package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-classifier/internal/utils"
)

const (
	defaultGeminiModel = "text-embedding-004"
	similarityTaskType = "SEMANTIC_SIMILARITY"
	maxBackoff         = 30 * time.Second
	// maxGeminiBatch is the number of texts the API accepts per request.
	maxGeminiBatch = 100
)

var backoff = func(attempt int) time.Duration {
	d := time.Second << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder embeds text with the Gemini embedding models.
type GeminiEmbedder struct {
	models     embedAPI
	model      string
	maxRetries int
	batchSize  int
	logger     *zap.Logger
}

// NewGeminiEmbedder creates an embedder for the Gemini API backend.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GeminiEmbedder{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (g *GeminiEmbedder) ModelID() string {
	return "gemini/" + g.model
}

// Embed splits texts into batches the API accepts and keeps the input order.
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	size := g.batchSize
	if size <= 0 || size > maxGeminiBatch {
		size = maxGeminiBatch
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}
	cfg := &genai.EmbedContentConfig{TaskType: similarityTaskType}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt - 1)
			g.logger.Debug("retrying gemini embedding request",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, wait); err != nil {
				return nil, err
			}
		}

		resp, err := g.models.EmbedContent(ctx, g.model, contents, cfg)
		if err != nil {
			lastErr = err
			if isTemporary(err) {
				continue
			}
			return nil, fmt.Errorf("embed content: %w", err)
		}

		if len(resp.Embeddings) != len(texts) {
			return nil, errUnexpectedCount(len(texts), len(resp.Embeddings))
		}
		out := make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("gemini api returned empty embedding at position %d", i)
			}
			out[i] = e.Values
		}
		return out, nil
	}

	return nil, fmt.Errorf("embed content after %d attempts: %w", g.maxRetries, lastErr)
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
