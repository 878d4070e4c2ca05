package cycle

import "slices"

// quantile interpolates the p-th percentile of values at the fractional rank
// p/100 * (n-1). Input does not need to be sorted; a copy is sorted so the
// caller's slice is never mutated.
func quantile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}

	temp := make([]float64, n)
	copy(temp, values)
	slices.Sort(temp)

	rank := p / 100 * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return temp[n-1]
	}
	frac := rank - float64(lo)
	return temp[lo] + frac*(temp[lo+1]-temp[lo])
}

func meanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
