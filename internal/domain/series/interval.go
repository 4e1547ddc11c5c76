package series

import "sort"

// EstimateInterval returns the median of the positive consecutive deltas in ms, or 0 when the
// series has fewer than two points or no positive delta. Even counts average the middle pair.
func EstimateInterval(s Series) int64 {
	if len(s) < 2 {
		return 0
	}
	deltas := make([]int64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		if d := s[i].T - s[i-1].T; d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 0
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })

	mid := len(deltas) / 2
	if len(deltas)%2 == 1 {
		return deltas[mid]
	}
	return (deltas[mid-1] + deltas[mid]) / 2
}
