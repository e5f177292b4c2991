package retrain

import (
	"math"
	"math/rand"
)

// split shuffles samples with a seeded PRNG and holds out ceil(n*ratio) of them
// for evaluation. At least one sample always stays in the training partition.
func split(samples []Sample, ratio float64, seed int64) (train, test []Sample) {
	n := len(samples)
	testSize := 0
	if ratio > 0 {
		testSize = int(math.Ceil(float64(n) * ratio))
	}
	if testSize >= n {
		testSize = n - 1
	}
	if testSize < 0 {
		testSize = 0
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = make([]Sample, 0, testSize)
	train = make([]Sample, 0, n-testSize)
	for i, p := range perm {
		if i < testSize {
			test = append(test, samples[p])
		} else {
			train = append(train, samples[p])
		}
	}
	return train, test
}

func distinctLabels(samples []Sample) int {
	seen := make(map[string]struct{})
	for _, s := range samples {
		seen[s.Label()] = struct{}{}
	}
	return len(seen)
}
