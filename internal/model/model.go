// Package model implements the supervised resume classifier: a TF-IDF feature
// extractor feeding a multinomial logistic regression, trained on corrected
// labels and persisted as a single artifact.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Classifier is the contract of a trained supervised model. Classes are fixed at
// training time and need not match the role catalog.
type Classifier interface {
	// Predict returns the most probable class.
	Predict(text string) string
	// PredictProba returns one probability per class, in Classes order.
	PredictProba(text string) []float64
	// Classes returns the known labels in model order.
	Classes() []string
}

// ErrSingleClass is returned when training labels contain fewer than two classes.
var ErrSingleClass = errors.New("at least two distinct classes are required")

// Options controls training.
type Options struct {
	MaxFeatures int
	MaxIter     int
	// C is the inverse of the L2 regularisation strength.
	C float64
}

// DefaultOptions mirror the defaults of the retraining job.
func DefaultOptions() Options {
	return Options{MaxFeatures: 5000, MaxIter: 1000, C: 1.0}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = d.MaxFeatures
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.C <= 0 {
		o.C = d.C
	}
	return o
}

// Metadata describes how a pipeline was produced.
type Metadata struct {
	CreatedAt      time.Time `json:"created_at"`
	Samples        int       `json:"samples"`
	VocabularySize int       `json:"vocabulary_size"`
	Iterations     int       `json:"iterations"`
	Converged      bool      `json:"converged"`
}

// Pipeline is a fitted vectorizer plus classifier. It is immutable after Fit or
// Load and safe for concurrent use.
type Pipeline struct {
	vectorizer *Vectorizer
	clf        *LogisticRegression
	meta       Metadata
}

// Fit trains a pipeline on parallel slices of documents and labels.
func Fit(docs, labels []string, opts Options) (*Pipeline, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("got %d documents and %d labels", len(docs), len(labels))
	}
	opts = opts.withDefaults()

	classes := distinctSorted(labels)
	if len(classes) < 2 {
		return nil, ErrSingleClass
	}
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIdx[l]
	}

	vec := FitVectorizer(docs, opts.MaxFeatures)
	x := make([]SparseVector, len(docs))
	for i, d := range docs {
		x[i] = vec.Transform(d)
	}

	clf, iterations, converged := trainLogistic(x, y, classes, vec.Len(), opts)

	return &Pipeline{
		vectorizer: vec,
		clf:        clf,
		meta: Metadata{
			CreatedAt:      time.Now().UTC(),
			Samples:        len(docs),
			VocabularySize: vec.Len(),
			Iterations:     iterations,
			Converged:      converged,
		},
	}, nil
}

func (p *Pipeline) Classes() []string {
	return append([]string(nil), p.clf.Classes...)
}

func (p *Pipeline) PredictProba(text string) []float64 {
	return p.clf.proba(p.vectorizer.Transform(text))
}

// Predict returns the class with the highest probability; ties go to the lower class index.
func (p *Pipeline) Predict(text string) string {
	probs := p.PredictProba(text)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return p.clf.Classes[best]
}

// Metadata returns training information.
func (p *Pipeline) Metadata() Metadata {
	return p.meta
}

func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
