package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/cognicore/topix/pkg/topix/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "Rice paddies flood.")
	writeFile(t, filepath.Join(dir, "b.key"), "Rice\t0.9\nFlooding\n\nRice\n")
	writeFile(t, filepath.Join(dir, "a.txt"), "Maize prices rise.")
	writeFile(t, filepath.Join(dir, "c.html"),
		"<html><head><title>Wheat</title><script>var x = 1;</script></head>"+
			"<body><p>Wheat rust</p><p>spreads fast</p></body></html>")
	writeFile(t, filepath.Join(dir, "notes.md"), "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadDir(context.Background(), dir, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}

	ids := []string{docs[0].ID, docs[1].ID, docs[2].ID}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("Expected lexical order, got %v", ids)
	}

	if docs[0].HasGold() {
		t.Error("a has no .key file")
	}
	if !reflect.DeepEqual(docs[1].Topics, []string{"Rice", "Flooding"}) {
		t.Errorf("Topics = %v", docs[1].Topics)
	}

	html := docs[2].Text
	if strings.Contains(html, "var x") {
		t.Error("script content should be dropped")
	}
	if !strings.Contains(html, "Wheat rust") {
		t.Errorf("paragraph text missing: %q", html)
	}
	tokens := NewTokenizer().Tokenize(html)
	seg := map[string]int{}
	for _, tok := range tokens {
		seg[tok.Text] = tok.Segment
	}
	if seg["rust"] == seg["spreads"] {
		t.Error("paragraphs should not share a segment")
	}
}

func TestLoadDirRequireGold(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "text")
	writeFile(t, filepath.Join(dir, "b.txt"), "text")
	writeFile(t, filepath.Join(dir, "b.key"), "topic\n")

	docs, err := LoadDir(context.Background(), dir, LoadOptions{RequireGold: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "b" {
		t.Errorf("Expected only b, got %v", docs)
	}
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"), LoadOptions{})
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}
}

func TestLoadDirEncoding(t *testing.T) {
	dir := t.TempDir()
	latin1, err := charmap.ISO8859_1.NewEncoder().String("Café crème")
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "a.txt"), latin1)

	docs, err := LoadDir(context.Background(), dir, LoadOptions{Encoding: "ISO-8859-1"})
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].Text != "Café crème" {
		t.Errorf("Expected decoded text, got %q", docs[0].Text)
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "default", "UTF-8"} {
		enc, err := LookupEncoding(name)
		if err != nil || enc != nil {
			t.Errorf("%q: expected UTF-8 passthrough, got %v, %v", name, enc, err)
		}
	}
	if _, err := LookupEncoding("klingon-1"); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestDocumentValidate(t *testing.T) {
	d := Document{Text: "x"}
	if !errors.Is(d.Validate(), domain.ErrConfiguration) {
		t.Error("missing id should fail validation")
	}
	d.ID = "a"
	if err := d.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
