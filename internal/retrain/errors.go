package retrain

import "fmt"

// InsufficientDataError aborts a retraining run that has too few samples or
// too few distinct labels. The served model is not touched.
type InsufficientDataError struct {
	Reason  string
	Samples int
	Classes int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: %s (samples=%d, classes=%d)", e.Reason, e.Samples, e.Classes)
}

// QualityGateError reports a trained model whose held-out macro F1 is below the
// configured minimum. Nothing is published.
type QualityGateError struct {
	MacroF1 float64
	Minimum float64
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("quality gate failed: macro F1 %.4f is below %.4f", e.MacroF1, e.Minimum)
}

// UnresolvedFeedbackError describes one feedback record whose source document
// could not be read. It is collected, never returned as the run's error.
type UnresolvedFeedbackError struct {
	Filename string
	Err      error
}

func (e *UnresolvedFeedbackError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Filename, e.Err)
}

func (e *UnresolvedFeedbackError) Unwrap() error {
	return e.Err
}
