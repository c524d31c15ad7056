package badge

import "sort"

// EarnStat pairs a badge code with how many users have earned it.
type EarnStat struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// MostEarned picks the badge with the highest earn count. Ties break by
// ascending code so the pick is a total order, not iteration luck.
func MostEarned(counts map[string]int) (EarnStat, bool) {
	return extremal(counts, func(a, b EarnStat) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Code < b.Code
	})
}

// RarestEarned picks the badge with the lowest non-zero earn count, ties by
// ascending code.
func RarestEarned(counts map[string]int) (EarnStat, bool) {
	return extremal(counts, func(a, b EarnStat) bool {
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Code < b.Code
	})
}

func extremal(counts map[string]int, less func(a, b EarnStat) bool) (EarnStat, bool) {
	stats := make([]EarnStat, 0, len(counts))
	for code, n := range counts {
		if n > 0 {
			stats = append(stats, EarnStat{Code: code, Count: n})
		}
	}
	if len(stats) == 0 {
		return EarnStat{}, false
	}
	sort.Slice(stats, func(i, j int) bool { return less(stats[i], stats[j]) })
	return stats[0], true
}
