package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion is written into every artifact; Load rejects other versions.
const FormatVersion = 1

type artifact struct {
	FormatVersion int             `json:"format_version"`
	CreatedAt     time.Time       `json:"created_at"`
	Classes       []string        `json:"classes"`
	Vectorizer    vectorizerState `json:"vectorizer"`
	Weights       [][]float64     `json:"weights"`
	Bias          []float64       `json:"bias"`
	Metadata      Metadata        `json:"metadata"`
}

type vectorizerState struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// Encode writes the pipeline artifact as JSON.
func Encode(w io.Writer, p *Pipeline) error {
	a := artifact{
		FormatVersion: FormatVersion,
		CreatedAt:     p.meta.CreatedAt,
		Classes:       p.clf.Classes,
		Vectorizer:    vectorizerState{Terms: p.vectorizer.terms, IDF: p.vectorizer.idf},
		Weights:       p.clf.Weights,
		Bias:          p.clf.Bias,
		Metadata:      p.meta,
	}
	return json.NewEncoder(w).Encode(a)
}

// Decode reads and validates an artifact produced by Encode.
func Decode(r io.Reader) (*Pipeline, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		vectorizer: newVectorizer(a.Vectorizer.Terms, a.Vectorizer.IDF),
		clf: &LogisticRegression{
			Classes: a.Classes,
			Weights: a.Weights,
			Bias:    a.Bias,
		},
		meta: a.Metadata,
	}, nil
}

func (a artifact) validate() error {
	if a.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported artifact format version %d", a.FormatVersion)
	}
	if len(a.Classes) == 0 {
		return fmt.Errorf("artifact has no classes")
	}
	features := len(a.Vectorizer.Terms)
	if len(a.Vectorizer.IDF) != features {
		return fmt.Errorf("artifact has %d terms but %d idf weights", features, len(a.Vectorizer.IDF))
	}
	seen := make(map[string]struct{}, features)
	for _, t := range a.Vectorizer.Terms {
		if _, dup := seen[t]; dup {
			return fmt.Errorf("artifact vocabulary repeats term %q", t)
		}
		seen[t] = struct{}{}
	}
	if len(a.Weights) != len(a.Classes) || len(a.Bias) != len(a.Classes) {
		return fmt.Errorf("artifact weights do not match %d classes", len(a.Classes))
	}
	for i, row := range a.Weights {
		if len(row) != features {
			return fmt.Errorf("artifact weight row %d has %d features, want %d", i, len(row), features)
		}
	}
	return nil
}

// Save writes the artifact atomically: readers of path see either the previous
// artifact or the complete new one.
func Save(path string, p *Pipeline) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, p); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Load reads the artifact at path. A missing file yields an error satisfying
// errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
