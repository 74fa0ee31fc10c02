package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// File extensions of the document collection.
const (
	GoldExt   = ".key"
	OutputExt = ".maui"
)

var documentExts = map[string]bool{".txt": true, ".html": true, ".htm": true}

// LoadOptions configures LoadDir.
type LoadOptions struct {
	// Encoding is an IANA charset name; empty or "default" means UTF-8.
	Encoding string
	// RequireGold skips documents without a .key file.
	RequireGold bool
}

// LoadDir reads every document of dir in lexical file order. Gold topics
// are read from a sibling "<name>.key" file when present: one topic per
// line, only the text before the first tab is used.
func LoadDir(ctx context.Context, dir string, opts LoadOptions) ([]Document, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: document directory %s", domain.ErrResourceNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read directory %s: %v", domain.ErrIO, dir, err)
	}

	var docs []Document
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !documentExts[ext] {
			continue
		}

		path := filepath.Join(dir, e.Name())
		doc, err := readDocument(path, ext, enc)
		if err != nil {
			return nil, err
		}
		if opts.RequireGold && !doc.HasGold() {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LookupEncoding resolves an IANA charset name. A nil encoding means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unsupported encoding %q", domain.ErrConfiguration, name)
	}
	return enc, nil
}

func readDocument(path, ext string, enc encoding.Encoding) (Document, error) {
	raw, err := readText(path, enc)
	if err != nil {
		return Document{}, err
	}

	text := raw
	if ext != ".txt" {
		text = htmlText(raw)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	doc := Document{
		ID:   filepath.Base(base),
		Path: path,
		Text: text,
	}

	gold, err := readText(base+GoldExt, enc)
	switch {
	case errors.Is(err, domain.ErrResourceNotFound):
	case err != nil:
		return Document{}, err
	default:
		doc.Topics = parseTopics(gold)
	}
	return doc, nil
}

func readText(path string, enc encoding.Encoding) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", domain.ErrResourceNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
	if enc != nil {
		if data, err = enc.NewDecoder().Bytes(data); err != nil {
			return "", fmt.Errorf("%w: decode %s: %v", domain.ErrParse, path, err)
		}
	}
	return string(data), nil
}

// parseTopics reads a gold topic file. Duplicate topics are kept once.
func parseTopics(s string) []string {
	topics := []string{}
	seen := make(map[string]bool)
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		topic, _, _ := strings.Cut(sc.Text(), "\t")
		topic = strings.TrimSpace(topic)
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics
}

// htmlText extracts the visible text of an HTML page. Block elements end a
// sentence so that phrases do not run across them.
func htmlText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf bytes.Buffer
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			buf.WriteString(".\n")
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Title, atom.Tr, atom.Td, atom.Th,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Section, atom.Article, atom.Header, atom.Footer:
		return true
	}
	return false
}
