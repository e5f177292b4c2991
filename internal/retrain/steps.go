package retrain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-classifier/internal/feedback"
	"go.uber.org/zap"
)

// Resolver recovers the document text behind a feedback record.
type Resolver interface {
	Resolve(ctx context.Context, rec feedback.Record) (string, error)
}

// Sample is a feedback record paired with its document text.
type Sample struct {
	Record feedback.Record
	Text   string
}

// Label returns the corrected label used as the training target.
func (s Sample) Label() string {
	return s.Record.CorrectedLabel
}

// Step describes the result of executing a preparation step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Filter is one preparation step applied to the samples.
type Filter interface {
	Name() string
	Apply(ctx context.Context, deps Deps, samples []Sample) ([]Sample, Step, error)
}

// Deps aggregates dependencies shared across preparation steps.
type Deps struct {
	Resolver Resolver
	Logger   *zap.Logger
}

// DefaultSteps returns the preparation steps in execution order.
func DefaultSteps() []Filter {
	return []Filter{
		&requiredFieldsFilter{},
		&resolveTextFilter{},
	}
}

// runSteps executes steps sequentially and collects per-step counts.
func runSteps(ctx context.Context, deps Deps, steps []Filter, samples []Sample) ([]Sample, []Step, error) {
	infos := make([]Step, 0, len(steps))
	for _, step := range steps {
		next, info, err := step.Apply(ctx, deps, samples)
		if err != nil {
			return nil, infos, fmt.Errorf("%s: %w", step.Name(), err)
		}
		info.Name = step.Name()

		if deps.Logger != nil {
			deps.Logger.Info("retrain step",
				zap.String("name", info.Name),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}
		infos = append(infos, info)
		samples = next
	}
	return samples, infos, nil
}

// requiredFieldsFilter drops records without a file name or corrected label.
// Ledger reads already skip them; Train also accepts records from other sources.
type requiredFieldsFilter struct{}

func (f *requiredFieldsFilter) Name() string { return "required_fields" }

func (f *requiredFieldsFilter) Apply(_ context.Context, _ Deps, samples []Sample) ([]Sample, Step, error) {
	kept := samples[:0:0]
	for _, s := range samples {
		if strings.TrimSpace(s.Record.Filename) == "" || strings.TrimSpace(s.Record.CorrectedLabel) == "" {
			continue
		}
		kept = append(kept, s)
	}
	return kept, Step{Initial: len(samples), Dropped: len(samples) - len(kept), Left: len(kept)}, nil
}

type resolveTextFilter struct {
	unresolved []*UnresolvedFeedbackError
}

func (f *resolveTextFilter) Name() string { return "resolve_text" }

func (f *resolveTextFilter) Apply(ctx context.Context, deps Deps, samples []Sample) ([]Sample, Step, error) {
	if deps.Resolver == nil {
		return nil, Step{}, errors.New("text resolver is required")
	}

	f.unresolved = nil
	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return nil, Step{}, err
		}
		text, err := deps.Resolver.Resolve(ctx, s.Record)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("document has no text")
		}
		if err != nil {
			unresolved := &UnresolvedFeedbackError{Filename: s.Record.Filename, Err: err}
			f.unresolved = append(f.unresolved, unresolved)
			if deps.Logger != nil {
				deps.Logger.Warn("dropping feedback without document text",
					zap.String("file", s.Record.Filename),
					zap.Error(err),
				)
			}
			continue
		}
		s.Text = text
		kept = append(kept, s)
	}
	return kept, Step{Initial: len(samples), Dropped: len(samples) - len(kept), Left: len(kept)}, nil
}

// Unresolved returns the records dropped by the last Apply.
func (f *resolveTextFilter) Unresolved() []*UnresolvedFeedbackError {
	return f.unresolved
}
