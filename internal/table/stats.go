package table

import (
	"math"
	"slices"
)

// Statistics over the non-null values of a group. Inputs are never empty
// except where noted; callers handle the empty case.

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 {
	return sum(xs) / float64(len(xs))
}

// median sorts a copy; even-length inputs average the two middle values.
func median(xs []float64) float64 {
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// sampleStd is the n-1 standard deviation. Requires len(xs) >= 2.
func sampleStd(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// extreme returns the smallest (dir < 0) or largest (dir > 0) value.
func extreme(vs []any, dir int) any {
	var best any
	for _, v := range vs {
		if best == nil || compareValues(v, best)*dir > 0 {
			best = v
		}
	}
	return best
}
