// Package rank selects the final topics of a document from scored
// candidates.
package rank

import "sort"

// Scored is a candidate with its model score.
type Scored struct {
	Title string
	// Key is the candidate's normalized key.
	Key   string
	Score float64
	// Order is the candidate's first-occurrence rank in the document; it
	// breaks score ties.
	Order int
	// Correct is set during evaluation when the topic is a gold topic.
	Correct bool
}

// Select returns at most n topics with score > cutoff, by descending
// score. Equal scores keep first-occurrence order. n <= 0 means no limit.
// The input slice is not modified.
func Select(scored []Scored, n int, cutoff float64) []Scored {
	out := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Score > cutoff {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Order < out[j].Order
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
