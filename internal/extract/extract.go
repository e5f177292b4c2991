// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrUnsupportedType is returned for file extensions without a parser.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooShort is returned when the extracted text is below the minimum length.
	ErrTooShort = errors.New("resume text is too short or unreadable")
)

// ExtractionError reports a document that could not be parsed.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %q: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type parser func(data []byte) (string, error)

var parsers = map[string]parser{
	".pdf":  parsePDF,
	".docx": parseDOCX,
	".txt":  parseText,
}

// Supported reports whether filename has an extension the extractor can parse.
func Supported(filename string) bool {
	_, ok := parsers[extension(filename)]
	return ok
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Extractor parses documents under a minimum-length policy and a time bound.
type Extractor struct {
	minLength int
	timeout   time.Duration
}

// New returns an extractor. A non-positive timeout disables the bound.
func New(minLength int, timeout time.Duration) *Extractor {
	return &Extractor{minLength: minLength, timeout: timeout}
}

// MinLength returns the minimum accepted text length in characters.
func (e *Extractor) MinLength() int {
	return e.minLength
}

// Extract parses data according to the extension of filename and enforces the
// minimum length on the trimmed text.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	p, ok := parsers[extension(filename)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}

	text, err := e.run(ctx, filename, p, data)
	if err != nil {
		return "", err
	}
	if err := e.CheckLength(text); err != nil {
		return "", err
	}
	return text, nil
}

// CheckLength applies the minimum-length policy to already extracted text.
func (e *Extractor) CheckLength(text string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < e.minLength {
		return fmt.Errorf("%w: %d characters, need %d", ErrTooShort, n, e.minLength)
	}
	return nil
}

// run executes p in its own goroutine so a slow parse cannot outlive the
// caller's deadline. Parser panics become extraction errors.
func (e *Extractor) run(ctx context.Context, filename string, p parser, data []byte) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("parser panic: %v", r)}
			}
		}()
		text, err := p(data)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", &ExtractionError{Filename: filename, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return "", &ExtractionError{Filename: filename, Err: r.err}
		}
		return strings.TrimSpace(r.text), nil
	}
}

func parseText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}
