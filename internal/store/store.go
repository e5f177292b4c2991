// Package store holds the currently active supervised model and swaps it
// atomically on reload.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/spigell/resume-classifier/internal/model"
	"go.uber.org/zap"
)

// Mode reports which scoring path classification uses.
type Mode string

const (
	ModeSupervised Mode = "supervised"
	ModeEmbedding  Mode = "embedding"
)

// ModelLoadError reports an artifact that exists but cannot be used.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("loading model %q: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

type slot struct {
	clf model.Classifier
}

// Store is safe for concurrent use. Readers never block on a reload.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[slot]
}

// New returns an empty store reading artifacts from path.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger}
	s.current.Store(&slot{})
	return s
}

// Path returns the artifact location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the artifact and installs it. A missing artifact clears the active
// model and is not an error. A corrupt artifact leaves the active model untouched
// and returns *ModelLoadError.
func (s *Store) Load(ctx context.Context) (Mode, error) {
	if err := ctx.Err(); err != nil {
		return s.Mode(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := model.Load(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.current.Store(&slot{})
		s.logger.Info("model artifact not found, using embedding mode", zap.String("path", s.path))
		return ModeEmbedding, nil
	case err != nil:
		s.logger.Warn("model artifact rejected, keeping active model",
			zap.String("path", s.path),
			zap.Error(err),
			zap.String("mode", string(s.Mode())),
		)
		return s.Mode(), &ModelLoadError{Path: s.path, Err: err}
	}

	s.current.Store(&slot{clf: p})
	s.logger.Info("model artifact loaded",
		zap.String("path", s.path),
		zap.Strings("classes", p.Classes()),
		zap.Time("created_at", p.Metadata().CreatedAt),
	)
	return ModeSupervised, nil
}

// Install replaces the active model. A nil classifier switches to embedding mode.
func (s *Store) Install(clf model.Classifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&slot{clf: clf})
}

// Get returns the active model, or nil in embedding mode.
func (s *Store) Get() model.Classifier {
	return s.current.Load().clf
}

// Mode reports whether a supervised model is active.
func (s *Store) Mode() Mode {
	if s.Get() != nil {
		return ModeSupervised
	}
	return ModeEmbedding
}
