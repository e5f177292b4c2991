package scorer

import (
	"context"
	"fmt"
	"sort"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/embedding"
	"github.com/spigell/resume-classifier/internal/model"
	"github.com/spigell/resume-classifier/internal/store"
)

type scored struct {
	label      string
	confidence float64
	// ranking holds every candidate, best first.
	ranking Ranking
}

type strategy interface {
	mode() store.Mode
	score(ctx context.Context, text string, matched map[string][]string) (scored, error)
}

func (s *Scorer) strategyFor(m model.Classifier) strategy {
	if m != nil {
		return supervised{clf: m}
	}
	return similarity{s: s}
}

type supervised struct {
	clf model.Classifier
}

func (supervised) mode() store.Mode { return store.ModeSupervised }

func (st supervised) score(_ context.Context, text string, _ map[string][]string) (scored, error) {
	classes := st.clf.Classes()
	probs := st.clf.PredictProba(text)
	if len(probs) != len(classes) || len(classes) == 0 {
		return scored{}, fmt.Errorf("model returned %d probabilities for %d classes", len(probs), len(classes))
	}
	label := st.clf.Predict(text)

	ranking := make(Ranking, len(classes))
	for i, c := range classes {
		ranking[i] = Match{Role: c, Score: probs[i]}
	}
	sortRanking(ranking)
	roundRanking(ranking)

	confidence := 0.0
	if p, ok := ranking.Score(label); ok {
		confidence = p
	}

	return scored{label: label, confidence: confidence, ranking: ranking}, nil
}

type similarity struct {
	s *Scorer
}

func (similarity) mode() store.Mode { return store.ModeEmbedding }

func (st similarity) score(ctx context.Context, text string, matched map[string][]string) (scored, error) {
	if st.s.embedder == nil || st.s.index == nil {
		return scored{}, &catalog.ConfigurationError{Source: "scorer", Reason: "embedding index is not configured"}
	}
	vec, err := embedding.EmbedOne(ctx, st.s.embedder, text)
	if err != nil {
		return scored{}, fmt.Errorf("embed resume: %w", err)
	}

	ids := st.s.catalog.IDs()
	ranking := make(Ranking, len(ids))
	for i, id := range ids {
		roleVec, ok := st.s.index.Vector(id)
		if !ok {
			return scored{}, &catalog.ConfigurationError{Source: "scorer", Reason: fmt.Sprintf("role %q has no embedding", id)}
		}
		boost := KeywordBoost * float64(len(matched[id]))
		ranking[i] = Match{Role: id, Score: embedding.Cosine(vec, roleVec) + boost}
	}
	sortRanking(ranking)
	roundRanking(ranking)

	best := ranking[0]
	return scored{label: best.Role, confidence: best.Score, ranking: ranking}, nil
}

// roundRanking rounds scores for output once the order is fixed.
func roundRanking(r Ranking) {
	for i := range r {
		r[i].Score = round4(r[i].Score)
	}
}

// sortRanking orders by descending score; equal scores keep their input order.
func sortRanking(r Ranking) {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Score > r[j].Score
	})
}
