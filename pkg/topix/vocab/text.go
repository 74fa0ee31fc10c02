package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// TablePaths returns the .en, .use and .rel files of a text vocabulary.
// path may name the .en file or the shared prefix.
func TablePaths(path string) (en, use, rel string) {
	base := strings.TrimSuffix(path, ".en")
	return base + ".en", base + ".use", base + ".rel"
}

// ReadTables reads a text vocabulary:
//
//	NAME.en   "ID TERM"         one label per line (descriptors and aliases)
//	NAME.use  "ND<tab>DESC"     non-descriptor to descriptor
//	NAME.rel  "ID<tab>R1 R2 .." related ids
//
// .use rows naming more than one descriptor are skipped.
func ReadTables(path string) (Tables, error) {
	enPath, usePath, relPath := TablePaths(path)
	var t Tables

	err := readLines(enPath, func(n int, line string) error {
		id, label, ok := strings.Cut(line, " ")
		if !ok {
			return fmt.Errorf("line %d: expected \"ID TERM\"", n)
		}
		t.Labels = append(t.Labels, Label{ID: id, Label: label})
		return nil
	})
	if err != nil {
		return Tables{}, err
	}

	err = readLines(usePath, func(n int, line string) error {
		nd, desc, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("line %d: expected \"ND<tab>DESC\"", n)
		}
		if strings.Contains(desc, " ") {
			return nil
		}
		t.Use = append(t.Use, Use{NonDescriptor: nd, Descriptor: desc})
		return nil
	})
	if err != nil {
		return Tables{}, err
	}

	err = readLines(relPath, func(n int, line string) error {
		id, related, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("line %d: expected \"ID<tab>RELATED\"", n)
		}
		t.Rel = append(t.Rel, Links{ID: id, Related: strings.Fields(related)})
		return nil
	})
	if err != nil {
		return Tables{}, err
	}
	return t, nil
}

func readLines(path string, fn func(n int, line string) error) error {
	rc, err := openInput(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	sc := bufio.NewScanner(rc)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(n, line); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// openInput opens path, transparently decompressing ".gz" files.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: gzip %s: %v", domain.ErrParse, path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}
