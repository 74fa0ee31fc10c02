package features

import (
	"errors"
	"math"
	"sync"
)

// ErrFrozen is returned when adding to a frozen dictionary.
var ErrFrozen = errors.New("dictionary is frozen")

// Dictionary holds corpus-wide document frequencies of candidate keys.
// It is filled once, frozen, and read concurrently afterwards.
type Dictionary struct {
	mu     sync.RWMutex
	n      int64            // number of documents
	df     map[string]int64 // documents containing the key
	frozen bool
}

// NewDictionary creates an empty, writable dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{df: make(map[string]int64)}
}

// DictionaryFrom restores a frozen dictionary from persisted counts.
func DictionaryFrom(docs int64, df map[string]int64) *Dictionary {
	d := &Dictionary{n: docs, df: make(map[string]int64, len(df)), frozen: true}
	for k, v := range df {
		d.df[k] = v
	}
	return d
}

// AddDocument counts each of the document's distinct keys once.
func (d *Dictionary) AddDocument(uniqueKeys []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return ErrFrozen
	}
	d.n++
	for _, k := range uniqueKeys {
		d.df[k]++
	}
	return nil
}

// Freeze makes the dictionary read-only.
func (d *Dictionary) Freeze() {
	d.mu.Lock()
	d.frozen = true
	d.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (d *Dictionary) Frozen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frozen
}

// Docs returns the number of documents counted.
func (d *Dictionary) Docs() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.n
}

// DF returns the document frequency of key.
func (d *Dictionary) DF(key string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.df[key]
}

// IDF returns -log((df+1)/(N+1)). With leaveOneOut the current document,
// which is assumed to be counted already, is taken out of both counts.
func (d *Dictionary) IDF(key string, leaveOneOut bool) float64 {
	d.mu.RLock()
	df, n := d.df[key], d.n
	d.mu.RUnlock()

	if leaveOneOut && df > 0 {
		df--
		n--
	}
	return -math.Log(float64(df+1) / float64(n+1))
}

// Entries copies the frequency table.
func (d *Dictionary) Entries() map[string]int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int64, len(d.df))
	for k, v := range d.df {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct keys.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.df)
}
