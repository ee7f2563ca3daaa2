package dataset

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"AgriPrice/pkg/util"
)

// SimilarityThreshold is the minimum normalized edit similarity for a fuzzy candidate.
const SimilarityThreshold = 0.6

// DefaultCandidateLimit caps candidate lists.
const DefaultCandidateLimit = 5

// Candidate is one plausible value for a query.
type Candidate struct {
	Value string  `json:"value"`
	Count int     `json:"count"`
	Exact bool    `json:"exact"`
	Score float64 `json:"score"`
}

type matchOptions struct {
	item  string
	limit int
}

// MatchOption narrows a candidate lookup.
type MatchOption func(*matchOptions)

// WithinItem restricts variety and market candidates to values seen with item.
func WithinItem(item string) MatchOption {
	return func(o *matchOptions) { o.item = item }
}

// WithLimit caps the number of candidates returned (<= 0 means unlimited).
func WithLimit(n int) MatchOption {
	return func(o *matchOptions) { o.limit = n }
}

// CandidatesFor returns the distinct known values plausibly meant by query,
// exact match first, then by frequency descending, then by name.
func (a *Accessor) CandidatesFor(field Field, query string, opts ...MatchOption) []string {
	cands := a.Match(field, query, opts...)
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Value
	}
	return out
}

// Match is CandidatesFor with match details.
func (a *Accessor) Match(field Field, query string, opts ...MatchOption) []Candidate {
	o := matchOptions{limit: DefaultCandidateLimit}
	for _, opt := range opts {
		opt(&o)
	}
	q := util.Fold(query)
	if q == "" {
		return nil
	}

	var out []Candidate
	for _, s := range a.pool(field, o.item) {
		score, ok := similarity(q, s.folded)
		if !ok {
			continue
		}
		out = append(out, Candidate{Value: s.name, Count: s.count, Exact: score == 1, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Exact != out[j].Exact {
			return out[i].Exact
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if o.limit > 0 && len(out) > o.limit {
		out = out[:o.limit]
	}
	return out
}

func (a *Accessor) pool(field Field, item string) []valueStat {
	var st *itemStats
	if item != "" {
		st = a.perItem[a.canonicalItem(item)]
	}
	switch field {
	case FieldItem:
		return a.items
	case FieldVariety:
		if st != nil {
			return st.varieties
		}
		var all []valueStat
		seen := map[string]int{}
		for _, name := range sortedKeys(a.perItem) {
			for _, v := range a.perItem[name].varieties {
				if j, ok := seen[v.name]; ok {
					all[j].count += v.count
					continue
				}
				seen[v.name] = len(all)
				all = append(all, v)
			}
		}
		return all
	case FieldMarket:
		if st != nil {
			return st.markets
		}
		return a.markets
	}
	return nil
}

func sortedKeys(m map[string]*itemStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// similarity scores folded strings: 1 for equality, 0.8 for containment either way,
// otherwise 1 - distance/maxLen when that reaches SimilarityThreshold.
func similarity(q, v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	if q == v {
		return 1, true
	}
	if strings.Contains(v, q) || strings.Contains(q, v) {
		return 0.8, true
	}
	n := utf8.RuneCountInString(q)
	if m := utf8.RuneCountInString(v); m > n {
		n = m
	}
	score := 1 - float64(levenshtein.ComputeDistance(q, v))/float64(n)
	return score, score >= SimilarityThreshold
}
