package vocab

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/topix/pkg/topix/domain"
)

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// ReadSKOS parses an RDF/XML document into triples.
//
// Every node element with an rdf:about (or rdf:ID / rdf:nodeID) becomes a
// subject; each child property element yields one triple whose object is
// its rdf:resource, a nested node, or its text (tagged "text@lang" when
// xml:lang is set). Predicates are reduced to their local name.
func ReadSKOS(r io.Reader) ([]Triple, error) {
	dec := xml.NewDecoder(r)
	var triples []Triple

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return triples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: rdf: %v", domain.ErrParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "RDF" {
			continue
		}
		if _, err := readNode(dec, start, &triples); err != nil {
			return nil, err
		}
	}
}

// readNode consumes a node element and returns its subject.
func readNode(dec *xml.Decoder, start xml.StartElement, out *[]Triple) (string, error) {
	subject := nodeID(start)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: rdf node %q: %v", domain.ErrParse, subject, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := readProperty(dec, subject, t, out); err != nil {
				return "", err
			}
		case xml.EndElement:
			return subject, nil
		}
	}
}

func readProperty(dec *xml.Decoder, subject string, start xml.StartElement, out *[]Triple) error {
	rel := Relation(start.Name.Local)

	if res := attr(start, rdfNS, "resource"); res != "" {
		*out = append(*out, Triple{Subject: subject, Relation: rel, Object: res})
		return dec.Skip()
	}

	lang := attr(start, "http://www.w3.org/XML/1998/namespace", "lang")
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: rdf property %s of %q: %v", domain.ErrParse, rel, subject, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			obj, err := readNode(dec, t, out)
			if err != nil {
				return err
			}
			*out = append(*out, Triple{Subject: subject, Relation: rel, Object: obj})
		case xml.EndElement:
			value := strings.TrimSpace(text.String())
			if value == "" {
				return nil
			}
			if lang != "" {
				value += "@" + lang
			}
			*out = append(*out, Triple{Subject: subject, Relation: rel, Object: value})
			return nil
		}
	}
}

func nodeID(start xml.StartElement) string {
	for _, local := range []string{"about", "ID", "nodeID"} {
		if v := attr(start, rdfNS, local); v != "" {
			return v
		}
	}
	return ""
}

// attr finds an attribute by namespace and local name. Unqualified
// attributes match on local name alone.
func attr(start xml.StartElement, space, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local && (a.Name.Space == space || a.Name.Space == "") {
			return a.Value
		}
	}
	return ""
}
