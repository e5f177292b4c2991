package model

import "math"

const (
	learningRate = 0.5
	tolerance    = 1e-6
)

// LogisticRegression is a multinomial (softmax) linear classifier.
type LogisticRegression struct {
	Classes []string
	Weights [][]float64
	Bias    []float64
}

func (m *LogisticRegression) scores(x SparseVector) []float64 {
	out := make([]float64, len(m.Classes))
	for k := range m.Classes {
		s := m.Bias[k]
		w := m.Weights[k]
		for j, i := range x.Indices {
			s += w[i] * x.Values[j]
		}
		out[k] = s
	}
	return out
}

func (m *LogisticRegression) proba(x SparseVector) []float64 {
	return softmax(m.scores(x))
}

// trainLogistic minimises mean cross-entropy plus ||W||^2/(2*C*n) with full-batch
// gradient descent. It stops when the loss improves by less than the tolerance or
// after MaxIter iterations.
func trainLogistic(x []SparseVector, y []int, classes []string, features int, opts Options) (*LogisticRegression, int, bool) {
	k := len(classes)
	n := float64(len(x))
	reg := 1 / (opts.C * n)

	m := &LogisticRegression{
		Classes: append([]string(nil), classes...),
		Weights: make([][]float64, k),
		Bias:    make([]float64, k),
	}
	for c := range m.Weights {
		m.Weights[c] = make([]float64, features)
	}

	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, features)
	}
	gradB := make([]float64, k)

	prevLoss := math.Inf(1)
	for iter := 1; iter <= opts.MaxIter; iter++ {
		for c := 0; c < k; c++ {
			for i := range gradW[c] {
				gradW[c][i] = reg * m.Weights[c][i]
			}
			gradB[c] = 0
		}

		var loss float64
		for s, xs := range x {
			p := m.proba(xs)
			loss -= math.Log(math.Max(p[y[s]], 1e-300))
			for c := 0; c < k; c++ {
				diff := p[c]
				if c == y[s] {
					diff--
				}
				diff /= n
				gradB[c] += diff
				row := gradW[c]
				for j, i := range xs.Indices {
					row[i] += diff * xs.Values[j]
				}
			}
		}
		loss /= n
		var penalty float64
		for c := 0; c < k; c++ {
			for _, w := range m.Weights[c] {
				penalty += w * w
			}
		}
		loss += penalty * reg / 2

		for c := 0; c < k; c++ {
			for i := range m.Weights[c] {
				m.Weights[c][i] -= learningRate * gradW[c][i]
			}
			m.Bias[c] -= learningRate * gradB[c]
		}

		if prevLoss-loss < tolerance*math.Max(1, math.Abs(loss)) {
			return m, iter, true
		}
		prevLoss = loss
	}
	return m, opts.MaxIter, false
}
