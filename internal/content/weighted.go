package content

import "math/rand"

// pickWeighted returns the index chosen by a cumulative-weight lookup over a
// uniform draw. Non-positive weights are never chosen; -1 means nothing is
// selectable.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := rng.Float64() * total
	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i
		}
	}
	// Float rounding can leave r == total.
	return last
}
