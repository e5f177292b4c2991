// Package service ties extraction, scoring, the model store and the feedback
// ledger into the operations exposed by the HTTP, MCP and CLI surfaces.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/resume-classifier/internal/catalog"
	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/history"
	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/store"
	"go.uber.org/zap"
)

// Deps are the collaborators of a Service. Archive and History are optional.
type Deps struct {
	Scorer    *scorer.Scorer
	Store     *store.Store
	Ledger    feedback.Ledger
	Extractor *extract.Extractor
	Archive   *extract.Archive
	History   *history.Log
	Logger    *zap.Logger
	TopN      int
}

// Service is safe for concurrent use.
type Service struct {
	deps Deps
	now  func() time.Time
}

// New creates a service.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.TopN <= 0 {
		d.TopN = scorer.DefaultTopN
	}
	return &Service{deps: d, now: time.Now}
}

// Catalog returns the role catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.deps.Scorer.Catalog()
}

// Mode reports the active scoring strategy.
func (s *Service) Mode() store.Mode {
	return s.deps.Store.Mode()
}

// ClassifyText scores already extracted text after applying the minimum length policy.
func (s *Service) ClassifyText(ctx context.Context, text string, topN int) (*scorer.Result, error) {
	if err := s.deps.Extractor.CheckLength(text); err != nil {
		return nil, err
	}
	return s.classify(ctx, text, topN)
}

// ClassifyDocument extracts, archives and scores an uploaded document, then
// records it in the classification history.
func (s *Service) ClassifyDocument(ctx context.Context, filename string, data []byte, topN int) (*scorer.Result, error) {
	if !extract.Supported(filename) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupportedType, filename)
	}

	text, err := s.deps.Extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if s.deps.Archive != nil {
		if path, err := s.deps.Archive.Save(filename, data); err != nil {
			s.deps.Logger.Warn("failed to archive upload", zap.String("file", filename), zap.Error(err))
		} else {
			s.deps.Logger.Debug("upload archived", zap.String("path", path))
		}
	}

	res, err := s.classify(ctx, text, topN)
	if err != nil {
		return nil, err
	}

	if s.deps.History != nil {
		if err := s.deps.History.Append(ctx, filename, res); err != nil {
			s.deps.Logger.Warn("failed to record classification history", zap.String("file", filename), zap.Error(err))
		}
	}
	return res, nil
}

func (s *Service) classify(ctx context.Context, text string, topN int) (*scorer.Result, error) {
	if topN <= 0 {
		topN = s.deps.TopN
	}
	return s.deps.Scorer.Classify(ctx, text, topN, s.deps.Store.Get())
}

// Reload re-reads the model artifact. A failed reload keeps the active model.
func (s *Service) Reload(ctx context.Context) (store.Mode, error) {
	return s.deps.Store.Load(ctx)
}

// SubmitFeedback stamps a correction with the current time and appends it.
func (s *Service) SubmitFeedback(ctx context.Context, rec feedback.Record) (feedback.Record, error) {
	rec = rec.Stamp(s.now())
	if err := s.deps.Ledger.Append(ctx, rec); err != nil {
		return feedback.Record{}, err
	}
	s.deps.Logger.Info("feedback recorded",
		zap.String("file", rec.Filename),
		zap.String("predicted", rec.PredictedLabel),
		zap.String("corrected", rec.CorrectedLabel),
	)
	return rec, nil
}

// Feedback returns every stored correction.
func (s *Service) Feedback(ctx context.Context) (feedback.ReadResult, error) {
	return s.deps.Ledger.ReadAll(ctx)
}
