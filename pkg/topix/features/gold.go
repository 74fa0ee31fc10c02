package features

import (
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Gold is the normalized gold topic set of one document.
type Gold struct {
	keys     map[string]bool
	concepts map[string]bool
	ordered  []string
	stats    []string
}

// NewGold normalizes topics with key. When store is set, topics naming
// a single concept also match candidates bound to that concept.
func NewGold(topics []string, key func(string) string, store *vocab.Store) Gold {
	g := Gold{keys: make(map[string]bool), concepts: make(map[string]bool)}
	seenStats := make(map[string]bool)
	for _, t := range topics {
		k := key(t)
		if k == "" || g.keys[k] {
			continue
		}
		g.keys[k] = true
		g.ordered = append(g.ordered, k)
		statsKey := k
		if store != nil {
			if senses := store.Senses(k); len(senses) == 1 {
				g.concepts[senses[0]] = true
				statsKey = conceptKey(senses[0])
			}
		}
		if !seenStats[statsKey] {
			seenStats[statsKey] = true
			g.stats = append(g.stats, statsKey)
		}
	}
	return g
}

// Count is the number of distinct gold topics.
func (g Gold) Count() int { return len(g.ordered) }

// Keys returns the distinct normalized gold keys in file order.
func (g Gold) Keys() []string { return g.ordered }

// StatsKeys returns the keys the gold topics are counted under in
// keyphraseness (see StatsKey).
func (g Gold) StatsKeys() []string { return g.stats }

// Matches reports whether the candidate is one of the gold topics.
func (g Gold) Matches(c *ingest.Candidate) bool {
	for _, k := range c.Keys {
		if g.keys[k] {
			return true
		}
	}
	if id, ok := c.Concept(); ok && g.concepts[id] {
		return true
	}
	return false
}

// StatsKey is the key a candidate is counted under in corpus statistics:
// its concept when bound to exactly one, its normalized key otherwise.
func StatsKey(c *ingest.Candidate) string {
	if id, ok := c.Concept(); ok {
		return conceptKey(id)
	}
	return c.Key
}

func conceptKey(id string) string { return "@" + id }
