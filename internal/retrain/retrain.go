// Package retrain turns accumulated reviewer corrections into a new supervised
// model: it resolves document texts, trains, evaluates and publishes.
package retrain

import (
	"context"
	"fmt"

	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/model"
	"go.uber.org/zap"
)

const minSamples = 2

// Config controls a retraining run.
type Config struct {
	MaxFeatures int
	MaxIter     int
	TestRatio   float64
	Seed        int64
	// MinMacroF1 enables the quality gate when positive.
	MinMacroF1 float64
}

// DefaultConfig returns the standard split and model settings.
func DefaultConfig() Config {
	return Config{MaxFeatures: 5000, MaxIter: 1000, TestRatio: 0.2, Seed: 42}
}

// Outcome is the result of a successful Train call.
type Outcome struct {
	Pipeline   *model.Pipeline
	Report     *Report
	Steps      []Step
	Unresolved []*UnresolvedFeedbackError
	TrainSize  int
	TestSize   int
}

// Trainer runs retraining. It holds no lock on the served model.
type Trainer struct {
	cfg      Config
	resolver Resolver
	logger   *zap.Logger
}

// New creates a trainer using the default preparation steps.
func New(cfg Config, resolver Resolver, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{cfg: cfg, resolver: resolver, logger: logger}
}

// Train prepares samples from records and fits a pipeline. When the quality gate
// rejects the model the outcome is returned together with *QualityGateError.
func (t *Trainer) Train(ctx context.Context, records []feedback.Record) (*Outcome, error) {
	samples := make([]Sample, len(records))
	for i, r := range records {
		samples[i] = Sample{Record: r}
	}

	filters := DefaultSteps()
	samples, steps, err := runSteps(ctx, Deps{Resolver: t.resolver, Logger: t.logger}, filters, samples)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Steps: steps}
	for _, step := range filters {
		if r, ok := step.(interface {
			Unresolved() []*UnresolvedFeedbackError
		}); ok {
			out.Unresolved = append(out.Unresolved, r.Unresolved()...)
		}
	}

	if len(samples) < minSamples {
		return nil, &InsufficientDataError{Reason: "not enough valid samples", Samples: len(samples), Classes: distinctLabels(samples)}
	}
	if classes := distinctLabels(samples); classes < 2 {
		return nil, &InsufficientDataError{Reason: "need at least two distinct labels", Samples: len(samples), Classes: classes}
	}

	train, test := split(samples, t.cfg.TestRatio, t.cfg.Seed)
	if classes := distinctLabels(train); classes < 2 {
		return nil, &InsufficientDataError{Reason: "training partition has a single label", Samples: len(train), Classes: classes}
	}
	out.TrainSize, out.TestSize = len(train), len(test)

	docs, labels := unzip(train)
	pipeline, err := model.Fit(docs, labels, model.Options{MaxFeatures: t.cfg.MaxFeatures, MaxIter: t.cfg.MaxIter})
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	out.Pipeline = pipeline

	meta := pipeline.Metadata()
	t.logger.Info("model trained",
		zap.Int("train", len(train)),
		zap.Int("test", len(test)),
		zap.Strings("classes", pipeline.Classes()),
		zap.Int("vocabulary", meta.VocabularySize),
		zap.Int("iterations", meta.Iterations),
		zap.Bool("converged", meta.Converged),
	)

	testDocs, expected := unzip(test)
	predicted := make([]string, len(testDocs))
	for i, d := range testDocs {
		predicted[i] = pipeline.Predict(d)
	}
	out.Report = Evaluate(expected, predicted)

	if t.cfg.MinMacroF1 > 0 && (len(test) == 0 || out.Report.MacroAvg.F1 < t.cfg.MinMacroF1) {
		return out, &QualityGateError{MacroF1: out.Report.MacroAvg.F1, Minimum: t.cfg.MinMacroF1}
	}
	return out, nil
}

func unzip(samples []Sample) ([]string, []string) {
	docs := make([]string, len(samples))
	labels := make([]string, len(samples))
	for i, s := range samples {
		docs[i] = s.Text
		labels[i] = s.Label()
	}
	return docs, labels
}
