// Package evaluator executes validated queries against index access
// interfaces. Evaluation is synchronous, performs no I/O and never fails:
// terms missing from the index contribute an empty postings set.
//
// Boolean queries fold strictly left to right with no operator precedence.
// NOT is binary set difference, not negation of a single operand:
//
//	A OR B AND C   == (A ∪ B) ∩ C
//	A AND B NOT C  == (A ∩ B) − C
//	A NOT B OR C   == (A − B) ∪ C
package evaluator

import (
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
)

// EvaluateBoolean returns the documents matching q. The result is a new set
// owned by the caller; postings returned by idx are never modified.
func EvaluateBoolean(q *query.BooleanQuery, idx index.PostingsAccess) index.DocSet {
	if q == nil || len(q.Terms) == 0 {
		return index.DocSet{}
	}
	acc := idx.Lookup(q.Terms[0]).Clone()
	for i, op := range q.Operators {
		acc = apply(op, acc, idx.Lookup(q.Terms[i+1]))
	}
	return acc
}

func apply(op query.Operator, acc, postings index.DocSet) index.DocSet {
	switch op {
	case query.OpAnd:
		return acc.Intersect(postings)
	case query.OpOr:
		return acc.Union(postings)
	case query.OpNot:
		return acc.Difference(postings)
	default:
		return index.DocSet{}
	}
}
