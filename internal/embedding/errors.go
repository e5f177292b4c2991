package embedding

import "fmt"

func errUnexpectedCount(want, got int) error {
	return fmt.Errorf("embedder returned %d vectors for %d texts", got, want)
}
