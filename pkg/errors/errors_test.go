package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStageErrorWrapsSentinel(t *testing.T) {
	err := Chunk(3, ErrStoreWrite, "disk full on %s", "/data")

	if !errors.Is(err, ErrStoreWrite) {
		t.Error("errors.Is does not match the sentinel")
	}
	if got := ChunkOf(err); got != 3 {
		t.Errorf("ChunkOf = %d, want 3", got)
	}
	if got := StageOf(err); got != StageChunk {
		t.Errorf("StageOf = %q, want chunk", got)
	}
	if !strings.Contains(err.Error(), "chunk 3") || !strings.Contains(err.Error(), "disk full on /data") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestStageErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer context: %w", Split(ErrEmptyDocument, "nothing to do"))

	if !errors.Is(err, ErrEmptyDocument) {
		t.Error("sentinel lost through wrapping")
	}
	if StageOf(err) != StageSplit {
		t.Errorf("StageOf = %q, want split", StageOf(err))
	}
	if ChunkOf(err) != NoChunk {
		t.Errorf("ChunkOf = %d, want NoChunk", ChunkOf(err))
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"split", Split(ErrNoBoundary, "x"), 2},
		{"chunk", Chunk(0, ErrAttemptsExceeded, "x"), 3},
		{"merge", Merge(ErrStoreIncomplete, "x"), 4},
		{"plain", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}
