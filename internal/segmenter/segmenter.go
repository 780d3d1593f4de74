// Package segmenter provides deterministic sentence segmentation and word
// tokenisation. The splitter's offset pre-pass and the workers' chunk
// processing both run the same Scanner over the same bytes, so per-chunk
// sentence counts can never disagree between the two passes.
package segmenter

import (
	"strings"
	"unicode"
)

// Segmenter turns raw text into ordered sentences and ordered, normalised
// word tokens. Implementations must be deterministic for the same input and
// must segment a chunk into exactly as many sentences as the Scanner finds
// boundaries in it.
type Segmenter interface {
	Sentences(text string) ([]string, error)
	Tokens(sentence string) []string
}

// Unicode is the built-in Segmenter. Sentences end at a run of '.', '!' or
// '?' followed by whitespace or end of input; trailing unterminated text
// counts as a final sentence. Tokens are lowercased runs of letters, digits
// and interior apostrophes.
type Unicode struct{}

// New returns the built-in segmenter.
func New() Unicode {
	return Unicode{}
}

// Sentences splits text into trimmed sentences in order of appearance. It
// never fails; the error return satisfies the collaborator contract for
// segmenters that can.
func (Unicode) Sentences(text string) ([]string, error) {
	var (
		sc        Scanner
		sentences []string
		start     = -1
	)
	for i, r := range text {
		end, boundary := sc.Step(r)
		if boundary {
			start = i
		}
		if end {
			sentences = append(sentences, strings.TrimSpace(text[maxInt(start, 0):i]))
			start = -1
		}
		if start < 0 && !unicode.IsSpace(r) {
			start = i
		}
	}
	if sc.Flush() {
		sentences = append(sentences, strings.TrimSpace(text[maxInt(start, 0):]))
	}
	return sentences, nil
}

// Tokens splits a sentence into lowercased word tokens. Punctuation is
// dropped; apostrophes survive inside a token ("cat's") but are trimmed at
// the edges. Single-letter words and numbers are kept: a concordance must
// report every word, so there is no stop-word or minimum-length filtering
// and no stemming.
func (Unicode) Tokens(sentence string) []string {
	sentence = strings.ToLower(sentence)
	fields := strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		word := strings.Trim(f, "'")
		if word == "" {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Scanner is an incremental sentence-boundary detector. Feed it one rune at
// a time with Step and call Flush at end of input.
type Scanner struct {
	inSentence      bool
	sawTerminator   bool
	pendingBoundary bool
}

// Step consumes one rune. sentenceEnd reports that a sentence ended just
// before this rune (the rune is the whitespace following the terminator).
// boundaryBefore reports that this rune starts a new sentence: its byte
// offset is a safe split point.
func (s *Scanner) Step(r rune) (sentenceEnd, boundaryBefore bool) {
	if unicode.IsSpace(r) {
		if s.sawTerminator && s.inSentence {
			sentenceEnd = true
			s.inSentence = false
			s.pendingBoundary = true
		}
		s.sawTerminator = false
		return
	}
	if s.pendingBoundary {
		boundaryBefore = true
		s.pendingBoundary = false
	}
	s.inSentence = true
	s.sawTerminator = r == '.' || r == '!' || r == '?'
	return
}

// Flush reports whether unterminated trailing content forms a final
// sentence, and resets the scanner.
func (s *Scanner) Flush() bool {
	end := s.inSentence
	*s = Scanner{}
	return end
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
