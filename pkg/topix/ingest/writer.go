package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// Topic is one line of an output file.
type Topic struct {
	Title string
	Score float64
}

// WriteOptions configures WriteTopics.
type WriteOptions struct {
	// WriteScores appends a tab and the score to every title.
	WriteScores bool
	// Encoding of the output file; nil writes UTF-8.
	Encoding encoding.Encoding
}

// OutputPath returns the topic file for a document:
// "<dir>/<id>.maui" next to the source file.
func OutputPath(doc Document) string {
	if doc.Path == "" {
		return doc.ID + OutputExt
	}
	return strings.TrimSuffix(doc.Path, filepath.Ext(doc.Path)) + OutputExt
}

// WriteTopics writes one topic per line to path. Failures are reported as
// domain.ErrIO so that callers can log and continue.
func WriteTopics(path string, topics []Topic, opts WriteOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrIO, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %v", domain.ErrIO, path, cerr)
		}
	}()

	var out io.Writer = f
	// Stateful encodings such as ISO-2022-JP emit their reset sequence on
	// Close.
	var enc io.WriteCloser
	if opts.Encoding != nil {
		enc = opts.Encoding.NewEncoder().Writer(f).(io.WriteCloser)
		out = enc
	}
	w := bufio.NewWriter(out)
	for _, t := range topics {
		line := t.Title
		if opts.WriteScores {
			line += "\t" + strconv.FormatFloat(t.Score, 'f', -1, 64)
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
		}
	}
	return nil
}
