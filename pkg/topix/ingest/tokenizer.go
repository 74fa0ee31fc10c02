package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Token is one word of a document.
type Token struct {
	Text string
	// Pos is the word offset within the document.
	Pos int
	// Segment identifies the run of words between phrase boundaries.
	// Candidate phrases never span two segments.
	Segment int
}

// Tokenizer splits text into word tokens. Punctuation and pure-numeric
// words end the current segment. Case is preserved.
type Tokenizer struct{}

// NewTokenizer creates a tokenizer.
func NewTokenizer() *Tokenizer { return &Tokenizer{} }

// Tokenize returns the word tokens of text in order.
func (t *Tokenizer) Tokenize(text string) []Token {
	text = norm.NFC.String(text)

	var tokens []Token
	var current strings.Builder
	segment := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := cleanToken(current.String())
		current.Reset()
		switch {
		case word == "":
		case isNumericOnly(word):
			segment++
		default:
			tokens = append(tokens, Token{Text: word, Pos: len(tokens), Segment: segment})
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) || r == '-' || r == '\'' || r == '’':
			if r == '’' {
				r = '\''
			}
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			segment++
		}
	}
	flush()

	return tokens
}

// cleanToken strips leading/trailing hyphens and apostrophes and
// collapses repeated hyphens.
func cleanToken(token string) string {
	token = strings.Trim(token, "-'")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}
