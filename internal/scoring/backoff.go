package scoring

import "math"

// backoffBase is the fraction of credit left at the edge of the tolerance window.
const backoffBase = 0.05

// Backoff scores how far a value overshoots a limit. diff is the distance
// past the limit and rng the window over which credit decays to zero:
// diff <= 0 scores 1, diff >= rng scores 0, and values in between decay
// exponentially as 0.05^(diff/rng).
func Backoff(diff, rng float64) float64 {
	switch {
	case diff <= 0:
		return 1
	case diff >= rng:
		return 0
	default:
		return math.Pow(backoffBase, diff/rng)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// meanOr returns the mean of values, or empty when there are none.
func meanOr(values []float64, empty float64) float64 {
	if len(values) == 0 {
		return empty
	}
	return mean(values)
}
