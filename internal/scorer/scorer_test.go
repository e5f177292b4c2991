package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/embedding"
	"github.com/spigell/resume-classifier/internal/store"
	"github.com/spigell/resume-classifier/internal/textutil"
)

// wordEmbedder counts occurrences of a fixed vocabulary.
type wordEmbedder struct {
	vocab []string
}

func (w wordEmbedder) ModelID() string { return "words" }

func (w wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(w.vocab))
		for _, tok := range textutil.Tokenize(text) {
			for j, v := range w.vocab {
				if tok == v {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

// constEmbedder maps every text to the same vector.
type constEmbedder struct{}

func (constEmbedder) ModelID() string { return "const" }

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 1}
	}
	return out, nil
}

type stubClassifier struct {
	classes []string
	probs   []float64
	label   string
}

func (s stubClassifier) Predict(string) string         { return s.label }
func (s stubClassifier) PredictProba(string) []float64 { return append([]float64(nil), s.probs...) }
func (s stubClassifier) Classes() []string             { return append([]string(nil), s.classes...) }

func scenarioCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Role{
		{ID: "Engineer", Description: "builds software", Keywords: []string{"python", "code"}, Category: "Tech"},
		{ID: "Sales", Description: "sells products", Keywords: []string{"quota", "client"}, Category: "Biz"},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newScorer(t *testing.T, c *catalog.Catalog, e embedding.Embedder) *Scorer {
	t.Helper()
	idx, err := embedding.BuildIndex(context.Background(), e, c)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	return New(c, idx, e, nil)
}

func TestEmbeddingScenario(t *testing.T) {
	t.Parallel()

	e := wordEmbedder{vocab: []string{"builds", "software", "sells", "products", "code"}}
	s := newScorer(t, scenarioCatalog(t), e)

	res, err := s.Classify(context.Background(), "I write code daily", 3, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if res.Label != "Engineer" {
		t.Fatalf("label = %q, want Engineer", res.Label)
	}
	if res.Mode != store.ModeEmbedding {
		t.Fatalf("mode = %q", res.Mode)
	}
	if !reflect.DeepEqual(res.MatchedKeywords["Engineer"], []string{"code"}) {
		t.Fatalf("Engineer keywords = %v", res.MatchedKeywords["Engineer"])
	}
	if len(res.MatchedKeywords["Sales"]) != 0 {
		t.Fatalf("Sales keywords = %v", res.MatchedKeywords["Sales"])
	}
	if res.Confidence != 0.01 {
		t.Fatalf("confidence = %v, want keyword boost only", res.Confidence)
	}
	if !reflect.DeepEqual(res.Categories, map[string]string{"Engineer": "Tech", "Sales": "Biz"}) {
		t.Fatalf("categories = %v", res.Categories)
	}
	if len(res.Similarities) != 2 {
		t.Fatalf("similarities should cover every role: %v", res.Similarities)
	}
}

func TestTopMatchesSubsetAndOrder(t *testing.T) {
	t.Parallel()

	c, err := catalog.New([]catalog.Role{
		{ID: "Backend", Description: "go services apis", Keywords: []string{"go"}},
		{ID: "Data", Description: "python pipelines", Keywords: []string{"python"}},
		{ID: "Frontend", Description: "react browser", Keywords: []string{"react"}},
		{ID: "Ops", Description: "kubernetes services", Keywords: []string{"kubernetes"}},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	e := wordEmbedder{vocab: []string{"go", "services", "apis", "python", "pipelines", "react", "browser", "kubernetes"}}
	s := newScorer(t, c, e)

	for _, topN := range []int{1, 2, 3, 10} {
		res, err := s.Classify(context.Background(), "go services on kubernetes", topN, nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		want := topN
		if want > c.Len() {
			want = c.Len()
		}
		if len(res.TopMatches) != want {
			t.Fatalf("topN=%d: got %d matches", topN, len(res.TopMatches))
		}
		for i, m := range res.TopMatches {
			score, ok := res.Similarities.Score(m.Role)
			if !ok || score != m.Score {
				t.Fatalf("top match %v not in similarities", m)
			}
			if i > 0 && res.TopMatches[i-1].Score < m.Score {
				t.Fatalf("top matches not ranked: %v", res.TopMatches)
			}
		}
		if res.Label != res.TopMatches[0].Role || res.Confidence != res.TopMatches[0].Score {
			t.Fatalf("label %q does not lead the ranking %v", res.Label, res.TopMatches)
		}
	}
}

func TestTiesKeepCatalogOrder(t *testing.T) {
	t.Parallel()

	c, err := catalog.New([]catalog.Role{
		{ID: "Zeta", Description: "first role"},
		{ID: "Alpha", Description: "second role"},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	s := newScorer(t, c, constEmbedder{})

	res, err := s.Classify(context.Background(), "anything at all", 0, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got := res.Similarities.Roles(); !reflect.DeepEqual(got, []string{"Zeta", "Alpha"}) {
		t.Fatalf("tie order = %v", got)
	}
	if res.Categories["Zeta"] != catalog.DefaultCategory {
		t.Fatalf("category fallback = %q", res.Categories["Zeta"])
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newScorer(t, scenarioCatalog(t), embedding.NewHashEmbedder(64))
	text := "Python engineer who writes code for a client portal"

	first, err := s.Classify(context.Background(), text, 2, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	second, err := s.Classify(context.Background(), text, 2, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestKeywordBoostMonotonic(t *testing.T) {
	t.Parallel()

	s := newScorer(t, scenarioCatalog(t), constEmbedder{})

	tests := []string{
		"experienced professional",
		"experienced professional with python",
		"experienced professional with python code",
	}
	prev := -1.0
	for _, text := range tests {
		res, err := s.Classify(context.Background(), text, 2, nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		score, _ := res.Similarities.Score("Engineer")
		if score < prev {
			t.Fatalf("score for %q dropped to %v from %v", text, score, prev)
		}
		prev = score
	}
	if prev != 1.02 {
		t.Fatalf("final score = %v, want 1.02", prev)
	}
}

func TestSupervisedStrategy(t *testing.T) {
	t.Parallel()

	s := newScorer(t, scenarioCatalog(t), constEmbedder{})
	clf := stubClassifier{
		classes: []string{"DevOps", "Engineer", "Manager"},
		probs:   []float64{0.2, 0.39999, 0.40001},
		label:   "Manager",
	}

	res, err := s.Classify(context.Background(), "leads teams and writes code", 2, clf)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Mode != store.ModeSupervised {
		t.Fatalf("mode = %q", res.Mode)
	}
	if res.Label != "Manager" || res.Confidence != 0.4 {
		t.Fatalf("label/confidence = %q/%v", res.Label, res.Confidence)
	}
	// Ordering uses raw probabilities even though both round to 0.4.
	if got := res.TopMatches.Roles(); !reflect.DeepEqual(got, []string{"Manager", "Engineer"}) {
		t.Fatalf("top matches = %v", got)
	}
	if !reflect.DeepEqual(res.Similarities, res.TopMatches) {
		t.Fatalf("similarities should equal top matches")
	}
	if res.Categories["Manager"] != catalog.DefaultCategory {
		t.Fatalf("unknown label category = %q", res.Categories["Manager"])
	}
	if !reflect.DeepEqual(res.MatchedKeywords["Engineer"], []string{"code"}) {
		t.Fatalf("keywords should be computed in supervised mode: %v", res.MatchedKeywords)
	}
}

func TestSupervisedTopMatchIsLabel(t *testing.T) {
	t.Parallel()

	s := newScorer(t, scenarioCatalog(t), constEmbedder{})
	clf := stubClassifier{
		classes: []string{"DevOps", "Engineer", "Manager"},
		probs:   []float64{0.2, 0.39999, 0.40001},
		label:   "Manager",
	}

	res, err := s.Classify(context.Background(), "leads teams and writes code", 1, clf)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.TopMatches) != 1 || res.TopMatches[0].Role != res.Label {
		t.Fatalf("top match %v does not hold label %q", res.TopMatches, res.Label)
	}
}

func TestClassifyErrors(t *testing.T) {
	t.Parallel()

	var cfgErr *catalog.ConfigurationError
	if _, err := New(nil, nil, constEmbedder{}, nil).Classify(context.Background(), "text", 3, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError for empty catalog, got %v", err)
	}

	s := newScorer(t, scenarioCatalog(t), constEmbedder{})
	if _, err := s.Classify(context.Background(), "  \n", 3, nil); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestRankingJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	r := Ranking{{Role: "Sales", Score: 0.9}, {Role: "Engineer", Score: 0.1}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"Sales":0.9,"Engineer":0.1}` {
		t.Fatalf("json = %s", data)
	}

	var back Ranking
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, r) {
		t.Fatalf("round trip = %v", back)
	}
	if err := json.Unmarshal([]byte(`[1]`), &back); err == nil {
		t.Fatalf("expected error for non-object ranking")
	}
}
