package model

import (
	"math"
	"sort"

	"github.com/spigell/resume-classifier/internal/textutil"
)

// SparseVector holds the non-zero features of a document, indices ascending.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Vectorizer maps text to L2-normalised TF-IDF vectors over a fixed vocabulary.
type Vectorizer struct {
	terms []string
	index map[string]int
	idf   []float64
}

// FitVectorizer learns the vocabulary and inverse document frequencies. The
// vocabulary keeps the maxFeatures most frequent terms of the corpus, ties broken
// alphabetically, and is indexed in alphabetical order.
func FitVectorizer(docs []string, maxFeatures int) *Vectorizer {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range textutil.Tokenize(textutil.Normalize(doc)) {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	return newVectorizer(terms, idf)
}

func newVectorizer(terms []string, idf []float64) *Vectorizer {
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
	}
	return &Vectorizer{terms: terms, index: index, idf: idf}
}

// Len returns the vocabulary size.
func (v *Vectorizer) Len() int {
	return len(v.terms)
}

// Transform vectorizes a document. Out-of-vocabulary terms are ignored.
func (v *Vectorizer) Transform(text string) SparseVector {
	counts := make(map[int]float64)
	for _, tok := range textutil.Tokenize(textutil.Normalize(text)) {
		if i, ok := v.index[tok]; ok {
			counts[i]++
		}
	}

	indices := make([]int, 0, len(counts))
	for i := range counts {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	var norm float64
	for j, i := range indices {
		values[j] = counts[i] * v.idf[i]
		norm += values[j] * values[j]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for j := range values {
			values[j] /= norm
		}
	}
	return SparseVector{Indices: indices, Values: values}
}
