package evaluator

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
)

// EvaluateProximity returns the documents in which first and second occur at
// offsets no more than maxDistance apart, in either order.
func EvaluateProximity(first, second string, maxDistance int, idx index.PositionalAccess) index.DocSet {
	matches := make(index.DocSet)
	left := idx.Positions(first)
	right := idx.Positions(second)
	if len(left) == 0 || len(right) == 0 {
		return matches
	}

	small, large := left, right
	if len(large) < len(small) {
		small, large = large, small
	}
	for docID := range small {
		if _, ok := large[docID]; !ok {
			continue
		}
		if withinDistance(ascending(left[docID]), ascending(right[docID]), maxDistance) {
			matches[docID] = struct{}{}
		}
	}
	return matches
}

// EvaluateProximityQuery is EvaluateProximity for a parsed query.
func EvaluateProximityQuery(q *query.ProximityQuery, idx index.PositionalAccess) index.DocSet {
	if q == nil {
		return index.DocSet{}
	}
	return EvaluateProximity(q.First, q.Second, q.MaxDistance, idx)
}

// withinDistance runs a two-pointer merge over ascending offsets. On a match
// the first sequence advances; otherwise the pointer at the smaller offset
// does. It returns as soon as one qualifying pair is found, since document
// membership does not depend on how many pairs qualify.
func withinDistance(a, b []int, maxDistance int) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		d := a[i] - b[j]
		if d < 0 {
			d = -d
		}
		switch {
		case d <= maxDistance:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// ascending returns offsets itself when already sorted, otherwise a sorted
// copy; the index's slices are never reordered in place.
func ascending(offsets []int) []int {
	if sort.IntsAreSorted(offsets) {
		return offsets
	}
	out := make([]int, len(offsets))
	copy(out, offsets)
	sort.Ints(out)
	return out
}
