// Package scorer ranks catalog roles for a resume text, using the supervised
// model when one is active and embedding similarity with keyword boost otherwise.
package scorer

import (
	"context"
	"errors"
	"math"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/embedding"
	"github.com/spigell/resume-classifier/internal/logger"
	"github.com/spigell/resume-classifier/internal/model"
	"github.com/spigell/resume-classifier/internal/store"
	"github.com/spigell/resume-classifier/internal/textutil"
	"github.com/spigell/resume-classifier/internal/utils"
	"go.uber.org/zap"
)

const (
	// DefaultTopN is used when a non-positive top N is requested.
	DefaultTopN = 3
	// KeywordBoost is added to the similarity of a role per matched keyword.
	KeywordBoost = 0.01

	logPreviewLength = 120
)

// ErrEmptyText is returned for text without content.
var ErrEmptyText = errors.New("resume text is empty")

// Result is the outcome of one classification.
type Result struct {
	Label           string              `json:"label"`
	Confidence      float64             `json:"confidence"`
	TopMatches      Ranking             `json:"top_matches"`
	Similarities    Ranking             `json:"similarities"`
	MatchedKeywords map[string][]string `json:"matched_keywords"`
	Categories      map[string]string   `json:"categories"`
	Mode            store.Mode          `json:"mode"`
}

// Scorer is safe for concurrent use; it only reads the catalog and index.
type Scorer struct {
	catalog  *catalog.Catalog
	index    *embedding.Index
	embedder embedding.Embedder
	logger   *zap.Logger
}

// New builds a scorer. The index must have been built from the same catalog
// with the same embedder.
func New(c *catalog.Catalog, idx *embedding.Index, e embedding.Embedder, log *zap.Logger) *Scorer {
	return &Scorer{
		catalog:  c,
		index:    idx,
		embedder: e,
		logger:   logger.WithFields(log),
	}
}

// Catalog returns the role catalog the scorer ranks against.
func (s *Scorer) Catalog() *catalog.Catalog {
	return s.catalog
}

// Classify scores text. A nil model selects the embedding strategy.
func (s *Scorer) Classify(ctx context.Context, text string, topN int, m model.Classifier) (*Result, error) {
	if s.catalog.Len() == 0 {
		return nil, &catalog.ConfigurationError{Source: "scorer", Reason: "role catalog is empty"}
	}
	text = textutil.Normalize(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	matched := s.matchKeywords(text)

	st := s.strategyFor(m)
	out, err := st.score(ctx, text, matched)
	if err != nil {
		return nil, err
	}

	top := out.ranking
	if len(top) > topN {
		top = top[:topN]
	}
	top = append(Ranking(nil), top...)

	similarities := out.ranking
	if st.mode() == store.ModeSupervised {
		similarities = top
	}

	categories := s.catalog.Categories()
	if _, ok := categories[out.label]; !ok {
		categories[out.label] = catalog.DefaultCategory
	}

	res := &Result{
		Label:           out.label,
		Confidence:      out.confidence,
		TopMatches:      top,
		Similarities:    similarities,
		MatchedKeywords: matched,
		Categories:      categories,
		Mode:            st.mode(),
	}
	s.logger.Debug("resume classified",
		append(logger.ClassifierFields(string(res.Mode), s.embedderID()),
			zap.String("label", res.Label),
			zap.Float64("confidence", res.Confidence),
			zap.String("text", utils.TruncateForLog(text, logPreviewLength)),
		)...,
	)
	return res, nil
}

func (s *Scorer) matchKeywords(text string) map[string][]string {
	out := make(map[string][]string, s.catalog.Len())
	for _, r := range s.catalog.Roles() {
		out[r.ID] = textutil.MatchKeywords(text, r.Keywords)
	}
	return out
}

func (s *Scorer) embedderID() string {
	if s.embedder == nil {
		return ""
	}
	return s.embedder.ModelID()
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
