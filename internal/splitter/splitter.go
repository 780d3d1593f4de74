// Package splitter divides a document into ordered, sentence-aligned byte
// ranges. Each chunk carries the global sentence offset of its first
// sentence, computed by a streaming pre-pass that runs the same boundary
// scanner the workers use, so offsets and worker-side sentence counts cannot
// drift apart.
package splitter

import (
	"bufio"
	"io"
	"os"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/segmenter"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

// ChunkJob names one unit of worker work: a half-open byte range of the
// source document and the number of sentences in all prior chunks.
type ChunkJob struct {
	Index          int   `json:"chunk_index"`
	Start          int64 `json:"byte_start"`
	End            int64 `json:"byte_end"`
	SentenceOffset int   `json:"sentence_offset"`
}

// Options controls chunk sizing. When TargetChunks is set, the target chunk
// size is derived from the document size; otherwise TargetChunkBytes is used
// directly. LookaheadBytes bounds the scan for a sentence boundary past the
// target size.
type Options struct {
	TargetChunks     int
	TargetChunkBytes int64
	LookaheadBytes   int64
}

const (
	defaultChunkBytes = 1 << 20
	defaultLookahead  = 64 << 10
)

// Split scans the document once and returns ChunkJobs covering it completely
// with no gaps or overlaps, every cut falling at a sentence start. It fails
// with a split-stage error when the document is unreadable, contains no
// sentences, or no boundary exists within the lookahead window.
func Split(path string, opts Options) ([]ChunkJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.Split(cerrors.ErrDocumentUnreadable, "opening %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, cerrors.Split(cerrors.ErrDocumentUnreadable, "stat %s: %v", path, err)
	}
	if info.Size() == 0 {
		return nil, cerrors.Split(cerrors.ErrEmptyDocument, "%s is empty", path)
	}

	targetBytes := opts.TargetChunkBytes
	if opts.TargetChunks > 0 {
		targetBytes = (info.Size() + int64(opts.TargetChunks) - 1) / int64(opts.TargetChunks)
	}
	if targetBytes <= 0 {
		targetBytes = defaultChunkBytes
	}
	lookahead := opts.LookaheadBytes
	if lookahead <= 0 {
		lookahead = defaultLookahead
	}

	var (
		sc             segmenter.Scanner
		jobs           []ChunkJob
		offset         int64
		chunkStart     int64
		sentencesTotal int
		sentencesPrior int
		sawContent     bool
	)

	r := bufio.NewReaderSize(f, 64<<10)
	for {
		ch, size, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, cerrors.Split(cerrors.ErrDocumentUnreadable, "reading %s at offset %d: %v", path, offset, err)
		}

		end, boundary := sc.Step(ch)
		if end {
			sentencesTotal++
		}
		if boundary && offset-chunkStart >= targetBytes {
			jobs = append(jobs, ChunkJob{
				Index:          len(jobs),
				Start:          chunkStart,
				End:            offset,
				SentenceOffset: sentencesPrior,
			})
			chunkStart = offset
			sentencesPrior = sentencesTotal
		}
		if offset+int64(size)-chunkStart > targetBytes+lookahead {
			return nil, cerrors.Split(cerrors.ErrNoBoundary,
				"chunk %d grew past %d bytes without a sentence boundary", len(jobs), targetBytes+lookahead)
		}
		if !unicode.IsSpace(ch) {
			sawContent = true
		}
		offset += int64(size)
	}
	if sc.Flush() {
		sentencesTotal++
	}
	if !sawContent {
		return nil, cerrors.Split(cerrors.ErrEmptyDocument, "%s contains only whitespace", path)
	}

	// The cut point is always the start of a sentence, so the tail past the
	// last cut is never empty.
	jobs = append(jobs, ChunkJob{
		Index:          len(jobs),
		Start:          chunkStart,
		End:            offset,
		SentenceOffset: sentencesPrior,
	})
	return jobs, nil
}
