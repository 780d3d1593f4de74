package store

import (
	"errors"
	"reflect"
	"testing"

	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

func openTestStore(t *testing.T, chunk int) *Store {
	t.Helper()
	s, err := Open(ChunkPath(t.TempDir(), chunk), chunk, 0)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func drain(t *testing.T, s *Store) []Entry {
	t.Helper()
	it, err := s.Iterate()
	if err != nil {
		t.Fatalf("iterating: %v", err)
	}
	defer it.Close()
	var entries []Entry
	for {
		e, err := it.Next()
		if err != nil {
			t.Fatalf("reading entry: %v", err)
		}
		if e == nil {
			return entries
		}
		entries = append(entries, *e)
	}
}

func TestStoreUpsertAndIterate(t *testing.T) {
	s := openTestStore(t, 0)

	// "A cat sat. A cat ran." as occurrence rows, in appearance order.
	occurrences := []struct {
		word     string
		sentence int
	}{
		{"a", 1}, {"cat", 1}, {"sat", 1},
		{"a", 2}, {"cat", 2}, {"ran", 2},
	}
	for _, occ := range occurrences {
		if err := s.Upsert(occ.word, occ.sentence); err != nil {
			t.Fatalf("upsert %q: %v", occ.word, err)
		}
	}
	if err := s.MarkComplete(2); err != nil {
		t.Fatalf("marking complete: %v", err)
	}

	want := []Entry{
		{Word: "a", Frequency: 2, Sentences: []int{1, 2}},
		{Word: "cat", Frequency: 2, Sentences: []int{1, 2}},
		{Word: "ran", Frequency: 1, Sentences: []int{2}},
		{Word: "sat", Frequency: 1, Sentences: []int{1}},
	}
	got := drain(t, s)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %+v, want %+v", got, want)
	}
}

// TestStoreDuplicateSentenceNumbers checks that repeats within one sentence
// are preserved, not collapsed: frequency always equals the sentence list
// length.
func TestStoreDuplicateSentenceNumbers(t *testing.T) {
	s := openTestStore(t, 0)

	for _, n := range []int{1, 1, 4} {
		if err := s.Upsert("dog", n); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := s.MarkComplete(4); err != nil {
		t.Fatalf("marking complete: %v", err)
	}

	entries := drain(t, s)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Frequency != 3 || !reflect.DeepEqual(e.Sentences, []int{1, 1, 4}) {
		t.Errorf("entry = %+v, want dog {3:1,1,4}", e)
	}
	if e.Frequency != len(e.Sentences) {
		t.Errorf("frequency %d != sentence list length %d", e.Frequency, len(e.Sentences))
	}
}

func TestStoreIterateRefusesIncomplete(t *testing.T) {
	s := openTestStore(t, 0)
	if err := s.Upsert("word", 1); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	_, err := s.Iterate()
	if !errors.Is(err, cerrors.ErrStoreIncomplete) {
		t.Fatalf("got %v, want ErrStoreIncomplete", err)
	}
}

func TestStoreCompletionMarker(t *testing.T) {
	s := openTestStore(t, 7)

	complete, err := s.Complete()
	if err != nil {
		t.Fatalf("complete check: %v", err)
	}
	if complete {
		t.Fatal("fresh store reports complete")
	}

	if err := s.Upsert("x", 1); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.MarkComplete(12); err != nil {
		t.Fatalf("marking complete: %v", err)
	}

	complete, err = s.Complete()
	if err != nil {
		t.Fatalf("complete check: %v", err)
	}
	if !complete {
		t.Fatal("store not complete after MarkComplete")
	}
	count, err := s.SentenceCount()
	if err != nil {
		t.Fatalf("sentence count: %v", err)
	}
	if count != 12 {
		t.Errorf("sentence count = %d, want 12", count)
	}
}

// TestStoreResetDiscardsEverything models a redelivered job: reprocessing
// after Reset must give the same result, never doubled counts.
func TestStoreResetDiscardsEverything(t *testing.T) {
	s := openTestStore(t, 0)

	write := func() {
		for _, occ := range []struct {
			word     string
			sentence int
		}{{"b", 1}, {"a", 1}, {"b", 2}} {
			if err := s.Upsert(occ.word, occ.sentence); err != nil {
				t.Fatalf("upsert: %v", err)
			}
		}
		if err := s.MarkComplete(2); err != nil {
			t.Fatalf("marking complete: %v", err)
		}
	}

	write()
	first := drain(t, s)

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if complete, _ := s.Complete(); complete {
		t.Fatal("store still complete after reset")
	}
	write()
	second := drain(t, s)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("reprocessed entries differ: %+v vs %+v", second, first)
	}
}

// TestStoreBatchedInserts pushes more occurrences than one batch holds so
// the mid-stream flush path is exercised.
func TestStoreBatchedInserts(t *testing.T) {
	s, err := Open(ChunkPath(t.TempDir(), 0), 0, 10)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer s.Close()

	for i := 1; i <= 35; i++ {
		if err := s.Upsert("word", i); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if err := s.MarkComplete(35); err != nil {
		t.Fatalf("marking complete: %v", err)
	}

	entries := drain(t, s)
	if len(entries) != 1 || entries[0].Frequency != 35 {
		t.Fatalf("entries = %+v, want one entry with frequency 35", entries)
	}
	for i, n := range entries[0].Sentences {
		if n != i+1 {
			t.Fatalf("sentence %d = %d, want %d", i, n, i+1)
		}
	}
}

func TestWriteEntryPreservesOrder(t *testing.T) {
	s := openTestStore(t, 2)

	if err := s.WriteEntry(Entry{Word: "dog", Frequency: 5, Sentences: []int{1, 1, 4, 7, 9}}); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := s.MarkComplete(9); err != nil {
		t.Fatalf("marking complete: %v", err)
	}

	entries := drain(t, s)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !reflect.DeepEqual(entries[0].Sentences, []int{1, 1, 4, 7, 9}) {
		t.Errorf("sentences = %v, want [1 1 4 7 9]", entries[0].Sentences)
	}
}
