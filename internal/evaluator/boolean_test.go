package evaluator

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
)

func sampleIndex() *index.MemoryIndex {
	b := index.NewBuilder()
	b.AddPostings("cat", "d1", "d2")
	b.AddPostings("dog", "d2", "d3")
	b.AddPostings("a", "d1", "d2", "d3", "d4")
	b.AddPostings("b", "d2", "d3", "d5")
	b.AddPostings("c", "d3", "d4", "d6")
	return b.Build()
}

func mustParse(t *testing.T, raw string) *query.BooleanQuery {
	t.Helper()
	q, err := query.NewParser(query.Options{}).ParseBoolean(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return q
}

func eval(t *testing.T, idx index.PostingsAccess, raw string) []string {
	t.Helper()
	return EvaluateBoolean(mustParse(t, raw), idx).Sorted()
}

func TestEvaluateBooleanScenario(t *testing.T) {
	idx := sampleIndex()
	tests := []struct {
		raw  string
		want []string
	}{
		{"cat and dog", []string{"d2"}},
		{"cat or dog", []string{"d1", "d2", "d3"}},
		{"cat not dog", []string{"d1"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := eval(t, idx, tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateBooleanSingleTerm(t *testing.T) {
	idx := sampleIndex()
	for _, term := range idx.AllTerms() {
		got := EvaluateBoolean(mustParse(t, term), idx)
		if !got.Equal(idx.Lookup(term)) {
			t.Errorf("%s: got %v, want %v", term, got.Sorted(), idx.Lookup(term).Sorted())
		}
	}
}

func TestEvaluateBooleanDoesNotMutateIndex(t *testing.T) {
	idx := sampleIndex()
	res := EvaluateBoolean(mustParse(t, "cat"), idx)
	res.Add("d99")
	if idx.Lookup("cat").Contains("d99") {
		t.Fatal("result set aliases the index postings")
	}
	_ = EvaluateBoolean(mustParse(t, "cat not dog"), idx)
	if got := idx.Lookup("cat").Sorted(); !reflect.DeepEqual(got, []string{"d1", "d2"}) {
		t.Errorf("postings changed to %v", got)
	}
}

func TestEvaluateBooleanAbsentTerm(t *testing.T) {
	idx := sampleIndex()
	tests := []struct {
		raw  string
		want []string
	}{
		{"bird", []string{}},
		{"cat and bird", []string{}},
		{"cat or bird", []string{"d1", "d2"}},
		{"cat not bird", []string{"d1", "d2"}},
		{"bird or dog", []string{"d2", "d3"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := eval(t, idx, tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateBooleanCommutativity(t *testing.T) {
	idx := sampleIndex()
	pairs := [][2]string{
		{"a and b", "b and a"},
		{"a or c", "c or a"},
		{"a and a", "a"},
		{"a or a", "a"},
		{"a or b or c", "c or b or a"},
	}
	for _, p := range pairs {
		left, right := eval(t, idx, p[0]), eval(t, idx, p[1])
		if !reflect.DeepEqual(left, right) {
			t.Errorf("%q = %v but %q = %v", p[0], left, p[1], right)
		}
	}
}

func TestEvaluateBooleanSelfDifferenceIsEmpty(t *testing.T) {
	idx := sampleIndex()
	for _, term := range idx.AllTerms() {
		if got := eval(t, idx, term+" not "+term); len(got) != 0 {
			t.Errorf("%s NOT %s = %v, want empty", term, term, got)
		}
	}
}

func TestEvaluateBooleanLeftToRight(t *testing.T) {
	idx := sampleIndex()
	// (a ∪ b) ∩ c = {d3, d4}; a ∪ (b ∩ c) would be {d1, d2, d3, d4}.
	if got := eval(t, idx, "a or b and c"); !reflect.DeepEqual(got, []string{"d3", "d4"}) {
		t.Errorf("a OR b AND c = %v, want [d3 d4]", got)
	}
}

// Every two-operator combination over three terms, each expected value
// written as the explicit left-grouped set expression.
func TestEvaluateBooleanThreeTermCombinations(t *testing.T) {
	idx := sampleIndex()
	a, b, c := idx.Lookup("a"), idx.Lookup("b"), idx.Lookup("c")
	tests := []struct {
		raw  string
		want index.DocSet
	}{
		{"a and b and c", a.Intersect(b).Intersect(c)},
		{"a and b or c", a.Intersect(b).Union(c)},
		{"a or b and c", a.Union(b).Intersect(c)},
		{"a or b or c", a.Union(b).Union(c)},
		{"a and b not c", a.Intersect(b.Difference(c))},
		{"a or b not c", a.Union(b).Difference(c)},
		{"a not b and c", a.Difference(b).Intersect(c)},
		{"a not b or c", a.Difference(b).Union(c)},
		{"a not b not c", a.Difference(b).Difference(c)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := EvaluateBoolean(mustParse(t, tt.raw), idx)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.Sorted(), tt.want.Sorted())
			}
		})
	}
}

func TestEvaluateBooleanLongQuery(t *testing.T) {
	idx := sampleIndex()
	// (((a ∩ b) ∪ c) − cat) ∪ dog
	got := eval(t, idx, "a and b or c not cat or dog")
	want := []string{"d2", "d3", "d4", "d6"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEvaluateBooleanNilQuery(t *testing.T) {
	if got := EvaluateBoolean(nil, sampleIndex()); got == nil || got.Len() != 0 {
		t.Errorf("got %#v, want empty set", got)
	}
}

func BenchmarkEvaluateBoolean(b *testing.B) {
	idx := sampleIndex()
	q, _ := query.NewParser(query.Options{}).ParseBoolean("a or b and c not cat")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = EvaluateBoolean(q, idx)
	}
}
