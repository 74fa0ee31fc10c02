package vocab

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// ReadNTriples parses N-Triples into triples. Predicates are reduced to
// their local name (text after the last '#' or '/'); literal objects keep
// their language tag as "text@lang" and drop any datatype.
func ReadNTriples(r io.Reader) ([]Triple, error) {
	var triples []Triple
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		t, err := parseNTriple(text)
		if err != nil {
			return nil, fmt.Errorf("%w: n-triples line %d: %v", domain.ErrParse, line, err)
		}
		triples = append(triples, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: n-triples: %v", domain.ErrIO, err)
	}
	return triples, nil
}

func parseNTriple(line string) (Triple, error) {
	subject, rest, err := ntTerm(line)
	if err != nil {
		return Triple{}, fmt.Errorf("subject: %w", err)
	}
	predicate, rest, err := ntTerm(rest)
	if err != nil {
		return Triple{}, fmt.Errorf("predicate: %w", err)
	}
	object, rest, err := ntTerm(rest)
	if err != nil {
		return Triple{}, fmt.Errorf("object: %w", err)
	}
	if strings.TrimSpace(rest) != "." {
		return Triple{}, fmt.Errorf("expected terminating '.', got %q", rest)
	}
	return Triple{Subject: subject, Relation: Relation(localName(predicate)), Object: object}, nil
}

// ntTerm reads one IRI, blank node or literal from the front of s.
func ntTerm(s string) (term, rest string, err error) {
	s = strings.TrimLeft(s, " \t")
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated IRI")
		}
		return s[1:end], s[end+1:], nil

	case strings.HasPrefix(s, "_:"):
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			return "", "", fmt.Errorf("unterminated blank node")
		}
		return s[:end], s[end:], nil

	case strings.HasPrefix(s, `"`):
		end := 1
		for ; end < len(s); end++ {
			if s[end] == '\\' {
				end++
				continue
			}
			if s[end] == '"' {
				break
			}
		}
		if end >= len(s) {
			return "", "", fmt.Errorf("unterminated literal")
		}
		value, err := strconv.Unquote(s[:end+1])
		if err != nil {
			return "", "", fmt.Errorf("literal %s: %v", s[:end+1], err)
		}
		rest = s[end+1:]
		switch {
		case strings.HasPrefix(rest, "@"):
			stop := strings.IndexAny(rest, " \t")
			if stop < 0 {
				stop = len(rest)
			}
			value += rest[:stop]
			rest = rest[stop:]
		case strings.HasPrefix(rest, "^^<"):
			stop := strings.IndexByte(rest, '>')
			if stop < 0 {
				return "", "", fmt.Errorf("unterminated datatype")
			}
			rest = rest[stop+1:]
		}
		return value, rest, nil
	}
	return "", "", fmt.Errorf("unexpected term %q", s)
}

func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
