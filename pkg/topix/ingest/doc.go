// Package ingest turns documents into tokens and candidate phrases, and
// reads and writes the on-disk document collection.
package ingest

import (
	"fmt"
	"strings"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// Document is one input text with its optional gold topics.
type Document struct {
	// ID is the document file name without extension.
	ID string
	// Path is the file the text was read from (empty for in-memory docs).
	Path string
	Text string
	// Topics are the gold topics in file order; nil when unknown.
	Topics []string
}

// Validate checks that the document can be processed.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrConfiguration)
	}
	return nil
}

// HasGold reports whether gold topics are known for the document.
func (d *Document) HasGold() bool {
	return d.Topics != nil
}
