package retrain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/model"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, rec feedback.Record) (string, error) {
	text, ok := m[rec.Filename]
	if !ok {
		return "", fmt.Errorf("file not found")
	}
	return text, nil
}

func record(name, label string) feedback.Record {
	return feedback.Record{
		Filename:       name,
		PredictedLabel: "Engineer",
		CorrectedLabel: label,
		Confidence:     0.5,
		Timestamp:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func corpus() (mapResolver, []feedback.Record) {
	engineering := []string{
		"go backend developer building services",
		"software engineer writing golang apis",
		"distributed systems engineer with kubernetes",
		"backend developer designing databases and services",
		"golang engineer maintaining microservices",
		"platform engineer automating deployments in go",
	}
	sales := []string{
		"account executive closing enterprise deals",
		"sales manager exceeding quota every quarter",
		"business development rep prospecting clients",
		"sales lead negotiating contracts with clients",
		"regional sales director growing revenue",
		"inside sales rep booking demos and closing deals",
	}
	texts := mapResolver{}
	var records []feedback.Record
	for i := range engineering {
		eng := fmt.Sprintf("eng-%d.pdf", i)
		sal := fmt.Sprintf("sales-%d.pdf", i)
		texts[eng] = engineering[i]
		texts[sal] = sales[i]
		records = append(records, record(eng, "Engineer"), record(sal, "Sales"))
	}
	return texts, records
}

func TestTrainSucceeds(t *testing.T) {
	t.Parallel()

	texts, records := corpus()
	records = append(records, record("lost.pdf", "Sales"), record("", "Sales"), record("no-label.pdf", ""))

	out, err := New(DefaultConfig(), texts, nil).Train(context.Background(), records)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	wantSteps := []Step{
		{Name: "required_fields", Initial: 15, Dropped: 2, Left: 13},
		{Name: "resolve_text", Initial: 13, Dropped: 1, Left: 12},
	}
	if !reflect.DeepEqual(out.Steps, wantSteps) {
		t.Fatalf("steps = %+v", out.Steps)
	}
	if len(out.Unresolved) != 1 || out.Unresolved[0].Filename != "lost.pdf" {
		t.Fatalf("unresolved = %+v", out.Unresolved)
	}
	if out.TrainSize != 9 || out.TestSize != 3 || out.Report.Support != 3 {
		t.Fatalf("split = %d/%d, report support %d", out.TrainSize, out.TestSize, out.Report.Support)
	}
	if got := out.Pipeline.Classes(); !reflect.DeepEqual(got, []string{"Engineer", "Sales"}) {
		t.Fatalf("classes = %v", got)
	}
	if out.Report.String() == "" {
		t.Fatalf("empty report rendering")
	}
}

func TestTrainInsufficientData(t *testing.T) {
	t.Parallel()

	texts, _ := corpus()
	tests := []struct {
		name    string
		records []feedback.Record
	}{
		{name: "no records"},
		{name: "one valid sample", records: []feedback.Record{record("eng-0.pdf", "Engineer"), record("missing.pdf", "Sales")}},
		{name: "single label", records: []feedback.Record{record("eng-0.pdf", "Engineer"), record("eng-1.pdf", "Engineer"), record("eng-2.pdf", "Engineer")}},
		{name: "single label in training partition", records: []feedback.Record{record("eng-0.pdf", "Engineer"), record("sales-0.pdf", "Sales")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(DefaultConfig(), texts, nil).Train(context.Background(), tt.records)
			var insufficient *InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Fatalf("expected InsufficientDataError, got %v", err)
			}
		})
	}
}

func TestQualityGate(t *testing.T) {
	t.Parallel()

	texts, records := corpus()
	cfg := DefaultConfig()
	cfg.MinMacroF1 = 1.5

	out, err := New(cfg, texts, nil).Train(context.Background(), records)
	var gate *QualityGateError
	if !errors.As(err, &gate) {
		t.Fatalf("expected QualityGateError, got %v", err)
	}
	if out == nil || out.Report == nil || gate.Minimum != 1.5 {
		t.Fatalf("gate failure should still carry the report")
	}
}

func TestTrainRequiresResolver(t *testing.T) {
	t.Parallel()

	_, records := corpus()
	if _, err := New(DefaultConfig(), nil, nil).Train(context.Background(), records); err == nil {
		t.Fatalf("expected error without resolver")
	}
}

func TestSplitIsSeeded(t *testing.T) {
	t.Parallel()

	samples := make([]Sample, 10)
	for i := range samples {
		samples[i] = Sample{Record: record(fmt.Sprintf("%d.pdf", i), "x")}
	}

	trainA, testA := split(samples, 0.2, 42)
	trainB, testB := split(samples, 0.2, 42)
	if !reflect.DeepEqual(trainA, trainB) || !reflect.DeepEqual(testA, testB) {
		t.Fatalf("split is not reproducible")
	}
	if len(trainA) != 8 || len(testA) != 2 {
		t.Fatalf("split sizes = %d/%d", len(trainA), len(testA))
	}

	train, test := split(samples[:1], 0.5, 1)
	if len(train) != 1 || len(test) != 0 {
		t.Fatalf("single sample must stay in training partition")
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	r := Evaluate([]string{"a", "a", "b", "b"}, []string{"a", "b", "b", "b"})

	near := func(got, want float64) bool { return math.Abs(got-want) < 1e-9 }
	if !near(r.Accuracy, 0.75) {
		t.Fatalf("accuracy = %v", r.Accuracy)
	}
	a, b := r.Labels[0], r.Labels[1]
	if a.Label != "a" || !near(a.Precision, 1) || !near(a.Recall, 0.5) || !near(a.F1, 2.0/3) || a.Support != 2 {
		t.Fatalf("a metrics = %+v", a)
	}
	if b.Label != "b" || !near(b.Precision, 2.0/3) || !near(b.Recall, 1) || !near(b.F1, 0.8) {
		t.Fatalf("b metrics = %+v", b)
	}
	if !near(r.MacroAvg.F1, (2.0/3+0.8)/2) {
		t.Fatalf("macro F1 = %v", r.MacroAvg.F1)
	}

	empty := Evaluate(nil, nil)
	if empty.Accuracy != 0 || len(empty.Labels) != 0 {
		t.Fatalf("unexpected empty report %+v", empty)
	}
}

func TestPublishAndNotify(t *testing.T) {
	t.Parallel()

	texts, records := corpus()
	out, err := New(DefaultConfig(), texts, nil).Train(context.Background(), records)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := Publish(path, out.Pipeline); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := model.Load(path); err != nil {
		t.Fatalf("published artifact unreadable: %v", err)
	}

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path == "/broken" {
			http.Error(w, "model corrupt", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NotifyReload(context.Background(), srv.Client(), srv.URL+"/reload-model"); err != nil {
		t.Fatalf("NotifyReload: %v", err)
	}
	if err := NotifyReload(context.Background(), srv.Client(), srv.URL+"/broken"); err == nil {
		t.Fatalf("expected error from failing reload")
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}
