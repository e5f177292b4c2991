package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/resume-classifier/internal/feedback"
)

// Archive is the directory holding original resume documents, addressed by
// base file name.
type Archive struct {
	Dir       string
	Extractor *Extractor
}

func (a *Archive) path(filename string) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid archive file name %q", filename)
	}
	return filepath.Join(a.Dir, base), nil
}

// Resolve returns the text of the document a feedback record refers to. Known
// document types are parsed; anything else is read as plain text. The minimum
// length policy does not apply.
func (a *Archive) Resolve(ctx context.Context, rec feedback.Record) (string, error) {
	path, err := a.path(rec.Filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	p, ok := parsers[extension(path)]
	if !ok {
		p = parseText
	}
	ex := a.Extractor
	if ex == nil {
		ex = New(0, 0)
	}
	return ex.run(ctx, rec.Filename, p, data)
}

// Save stores an uploaded document under its base name, replacing an older copy
// atomically. It returns the stored path.
func (a *Archive) Save(filename string, data []byte) (path string, err error) {
	path, err = a.path(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(a.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp upload: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err = errors.Join(werr, cerr); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}
