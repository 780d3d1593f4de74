package segmenter

import (
	"reflect"
	"testing"
)

func TestSentences(t *testing.T) {
	seg := New()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two terminated sentences",
			text: "A cat sat. A cat ran.",
			want: []string{"A cat sat.", "A cat ran."},
		},
		{
			name: "mixed terminators",
			text: "Really? Yes! Good.",
			want: []string{"Really?", "Yes!", "Good."},
		},
		{
			name: "trailing unterminated text",
			text: "First one. second without an end",
			want: []string{"First one.", "second without an end"},
		},
		{
			name: "terminator runs collapse",
			text: "What?! No way... Fine.",
			want: []string{"What?!", "No way...", "Fine."},
		},
		{
			name: "newlines separate like spaces",
			text: "One sentence.\nAnother sentence.\n",
			want: []string{"One sentence.", "Another sentence."},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "  \n\t ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := seg.Sentences(tt.text)
			if err != nil {
				t.Fatalf("Sentences(%q) returned error: %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSentencesDeterministic(t *testing.T) {
	seg := New()
	text := "A cat sat. A cat ran. The end"
	first, _ := seg.Sentences(text)
	for i := 0; i < 10; i++ {
		again, _ := seg.Sentences(text)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %q vs %q", i, again, first)
		}
	}
}

func TestTokens(t *testing.T) {
	seg := New()

	tests := []struct {
		name     string
		sentence string
		want     []string
	}{
		{
			name:     "lowercases and strips punctuation",
			sentence: "A cat sat.",
			want:     []string{"a", "cat", "sat"},
		},
		{
			name:     "keeps single letters and numbers",
			sentence: "I saw 2 cats.",
			want:     []string{"i", "saw", "2", "cats"},
		},
		{
			name:     "interior apostrophe survives",
			sentence: "The cat's tail, isn't it?",
			want:     []string{"the", "cat's", "tail", "isn't", "it"},
		},
		{
			name:     "edge apostrophes trimmed",
			sentence: "'quoted' words",
			want:     []string{"quoted", "words"},
		},
		{
			name:     "punctuation only",
			sentence: "... !!! ---",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seg.Tokens(tt.sentence)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %q, want %q", tt.sentence, got, tt.want)
			}
		})
	}
}

// TestScannerMatchesSentences checks that counting boundaries with the
// incremental Scanner yields exactly as many sentences as the full
// segmentation, which is what keeps chunk offsets and worker counts in
// agreement.
func TestScannerMatchesSentences(t *testing.T) {
	seg := New()
	texts := []string{
		"A cat sat. A cat ran.",
		"One. Two! Three? Four",
		"No terminator at all",
		"Spaced   out.   Sentences here.  ",
	}
	for _, text := range texts {
		var sc Scanner
		count := 0
		for _, r := range text {
			end, _ := sc.Step(r)
			if end {
				count++
			}
		}
		if sc.Flush() {
			count++
		}
		sentences, _ := seg.Sentences(text)
		if count != len(sentences) {
			t.Errorf("text %q: scanner counted %d sentences, segmentation found %d",
				text, count, len(sentences))
		}
	}
}
