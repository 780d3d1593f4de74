// Package errors defines the pipeline error taxonomy: split errors abort
// before dispatch, chunk errors are retryable up to a bounded attempt budget,
// and merge errors are fatal. A StageError carries the failing stage and, for
// chunk errors, the offending chunk index, which the CLI surfaces turn into
// exit codes and diagnostics.
package errors

import (
	"errors"
	"fmt"
)

var (
	// Split stage.
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrEmptyDocument      = errors.New("document contains no sentences")
	ErrNoBoundary         = errors.New("no sentence boundary within lookahead")

	// Chunk stage.
	ErrPublishFailed    = errors.New("publishing chunk job failed")
	ErrSegmenter        = errors.New("segmenter failed")
	ErrStoreWrite       = errors.New("store write failed")
	ErrAttemptsExceeded = errors.New("chunk attempt budget exhausted")

	// Merge stage.
	ErrStoreMissing      = errors.New("chunk store missing")
	ErrStoreIncomplete   = errors.New("chunk store not marked complete")
	ErrCompletionTimeout = errors.New("timed out waiting for chunk completion")
	ErrExportFailed      = errors.New("writing concordance output failed")
)

// Stage identifies the pipeline phase an error originated in.
type Stage string

const (
	StageSplit Stage = "split"
	StageChunk Stage = "chunk"
	StageMerge Stage = "merge"
)

// NoChunk is the Chunk value for errors not attributable to a single chunk.
const NoChunk = -1

// StageError wraps a sentinel with the stage it occurred in and the chunk it
// concerns, if any.
type StageError struct {
	Stage   Stage
	Chunk   int
	Err     error
	Message string
}

func (e *StageError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("%s stage, chunk %d: %s: %s", e.Stage, e.Chunk, e.Err.Error(), e.Message)
	}
	return fmt.Sprintf("%s stage: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Split builds a split-stage error.
func Split(sentinel error, format string, args ...any) *StageError {
	return &StageError{
		Stage:   StageSplit,
		Chunk:   NoChunk,
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Chunk builds a chunk-stage error attributed to the given chunk index.
func Chunk(chunk int, sentinel error, format string, args ...any) *StageError {
	return &StageError{
		Stage:   StageChunk,
		Chunk:   chunk,
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Merge builds a merge-stage error.
func Merge(sentinel error, format string, args ...any) *StageError {
	return &StageError{
		Stage:   StageMerge,
		Chunk:   NoChunk,
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// StageOf returns the stage an error belongs to, or "" when it is not a
// pipeline error.
func StageOf(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// ChunkOf returns the chunk index an error is attributed to, or NoChunk.
func ChunkOf(err error) int {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Chunk
	}
	return NoChunk
}

// ExitCode maps an error to the process exit code for the CLI surfaces.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch StageOf(err) {
	case StageSplit:
		return 2
	case StageChunk:
		return 3
	case StageMerge:
		return 4
	default:
		return 1
	}
}
