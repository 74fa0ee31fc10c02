package features

import "sync"

// Keyphraseness counts, per normalized key, the training documents that
// listed it as a gold topic.
type Keyphraseness struct {
	mu     sync.RWMutex
	counts map[string]int64
}

// NewKeyphraseness creates an empty table.
func NewKeyphraseness() *Keyphraseness {
	return &Keyphraseness{counts: make(map[string]int64)}
}

// KeyphrasenessFrom restores a table from persisted counts.
func KeyphrasenessFrom(counts map[string]int64) *Keyphraseness {
	k := NewKeyphraseness()
	for key, v := range counts {
		k.counts[key] = v
	}
	return k
}

// AddDocument counts each distinct gold key of one document.
func (k *Keyphraseness) AddDocument(goldKeys []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range goldKeys {
		k.counts[key]++
	}
}

// Value returns the count for key. With leaveOneOut the current
// document's own gold annotation is not counted.
func (k *Keyphraseness) Value(key string, leaveOneOut bool) float64 {
	k.mu.RLock()
	v := k.counts[key]
	k.mu.RUnlock()
	if leaveOneOut && v > 0 {
		v--
	}
	return float64(v)
}

// Entries copies the table.
func (k *Keyphraseness) Entries() map[string]int64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]int64, len(k.counts))
	for key, v := range k.counts {
		out[key] = v
	}
	return out
}
