package splitter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/segmenter"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing document: %v", err)
	}
	return path
}

func TestSplitSingleChunk(t *testing.T) {
	path := writeDoc(t, "A cat sat. A cat ran.")

	jobs, err := Split(path, Options{TargetChunks: 1})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d chunks, want 1", len(jobs))
	}
	job := jobs[0]
	if job.Index != 0 || job.Start != 0 || job.End != 21 || job.SentenceOffset != 0 {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestSplitTwoChunksAtSentenceBoundary(t *testing.T) {
	content := "A cat sat. A cat ran."
	path := writeDoc(t, content)

	jobs, err := Split(path, Options{TargetChunks: 2})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d chunks, want 2", len(jobs))
	}
	if jobs[0].SentenceOffset != 0 {
		t.Errorf("chunk 0 sentence offset = %d, want 0", jobs[0].SentenceOffset)
	}
	if jobs[1].SentenceOffset != 1 {
		t.Errorf("chunk 1 sentence offset = %d, want 1", jobs[1].SentenceOffset)
	}

	first := content[jobs[0].Start:jobs[0].End]
	second := content[jobs[1].Start:jobs[1].End]
	if strings.TrimSpace(first) != "A cat sat." {
		t.Errorf("chunk 0 text = %q", first)
	}
	if strings.TrimSpace(second) != "A cat ran." {
		t.Errorf("chunk 1 text = %q", second)
	}
}

// TestSplitCoversDocument checks the no-gaps, no-overlaps contract and that
// every cut lands at a sentence start.
func TestSplitCoversDocument(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	content := sb.String()
	path := writeDoc(t, content)

	jobs, err := Split(path, Options{TargetChunkBytes: 512, LookaheadBytes: 256})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(jobs) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(jobs))
	}

	var pos int64
	for i, job := range jobs {
		if job.Index != i {
			t.Errorf("job %d has index %d", i, job.Index)
		}
		if job.Start != pos {
			t.Errorf("chunk %d starts at %d, previous ended at %d", i, job.Start, pos)
		}
		if job.End <= job.Start {
			t.Errorf("chunk %d has empty range [%d,%d)", i, job.Start, job.End)
		}
		pos = job.End
	}
	if pos != int64(len(content)) {
		t.Errorf("chunks end at %d, document has %d bytes", pos, len(content))
	}
}

// TestSplitOffsetsMatchSegmentation re-segments every chunk and checks that
// each chunk's sentence offset equals the sentence total of all prior
// chunks.
func TestSplitOffsetsMatchSegmentation(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("One sentence here. Another follows! Was that a question? ")
	}
	content := sb.String()
	path := writeDoc(t, content)

	jobs, err := Split(path, Options{TargetChunkBytes: 200, LookaheadBytes: 200})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	seg := segmenter.New()
	total := 0
	for _, job := range jobs {
		if job.SentenceOffset != total {
			t.Errorf("chunk %d offset = %d, want %d", job.Index, job.SentenceOffset, total)
		}
		sentences, err := seg.Sentences(content[job.Start:job.End])
		if err != nil {
			t.Fatalf("segmenting chunk %d: %v", job.Index, err)
		}
		total += len(sentences)
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	path := writeDoc(t, "")
	_, err := Split(path, Options{})
	if !errors.Is(err, cerrors.ErrEmptyDocument) {
		t.Fatalf("got %v, want ErrEmptyDocument", err)
	}
	if cerrors.StageOf(err) != cerrors.StageSplit {
		t.Errorf("stage = %q, want split", cerrors.StageOf(err))
	}
}

func TestSplitWhitespaceOnlyDocument(t *testing.T) {
	path := writeDoc(t, "   \n\t\n  ")
	_, err := Split(path, Options{})
	if !errors.Is(err, cerrors.ErrEmptyDocument) {
		t.Fatalf("got %v, want ErrEmptyDocument", err)
	}
}

func TestSplitMissingDocument(t *testing.T) {
	_, err := Split(filepath.Join(t.TempDir(), "nope.txt"), Options{})
	if !errors.Is(err, cerrors.ErrDocumentUnreadable) {
		t.Fatalf("got %v, want ErrDocumentUnreadable", err)
	}
}

// TestSplitNoBoundaryWithinLookahead uses one giant sentence so no cut point
// exists inside the lookahead window.
func TestSplitNoBoundaryWithinLookahead(t *testing.T) {
	content := strings.Repeat("word ", 400) + "end."
	path := writeDoc(t, content)

	_, err := Split(path, Options{TargetChunkBytes: 100, LookaheadBytes: 100})
	if !errors.Is(err, cerrors.ErrNoBoundary) {
		t.Fatalf("got %v, want ErrNoBoundary", err)
	}
}
