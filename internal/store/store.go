// Package store implements the per-chunk ordered partial store on SQLite.
//
// Word occurrences are appended as unindexed (word, sentence_no) rows in
// batched transactions; the word index is created only at completion, when
// the write phase is over and the sorted read begins. A metadata row is the
// chunk's durable completion marker: readers refuse a store that does not
// carry it. Words arrive lowercased, so SQLite's byte-order ORDER BY is the
// locale-independent ordinal ordering the concordance requires.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS occurrences (
    word        TEXT    NOT NULL,
    sentence_no INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS store_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const defaultBatchSize = 2500

// Entry is one word's aggregate within a store: its occurrence count and the
// sentence numbers it appears in, duplicates allowed, in appearance order.
type Entry struct {
	Word      string
	Frequency int
	Sentences []int
}

// Store is a single-writer, key-sorted word store scoped to one chunk.
type Store struct {
	db        *sql.DB
	path      string
	chunk     int
	batchSize int
	buf       []occurrence
	logger    *slog.Logger
}

type occurrence struct {
	word     string
	sentence int
}

// ChunkPath returns the canonical store path for a chunk index.
func ChunkPath(dataDir string, chunk int) string {
	return filepath.Join(dataDir, fmt.Sprintf("chunk_%04d.db", chunk))
}

// Open opens (creating if needed) the store at path for the given chunk.
// batchSize bounds the occurrence buffer between bulk inserts; zero selects
// the default.
func Open(path string, chunk int, batchSize int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL on %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising schema in %s: %w", path, err)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{
		db:        db,
		path:      path,
		chunk:     chunk,
		batchSize: batchSize,
		buf:       make([]occurrence, 0, batchSize),
		logger:    slog.Default().With("component", "store", "chunk", chunk),
	}, nil
}

// Path returns the store's file path.
func (s *Store) Path() string { return s.path }

// Chunk returns the chunk index this store belongs to.
func (s *Store) Chunk() int { return s.chunk }

// Reset discards all content and the completion marker, returning the store
// to a clean writable state. Workers call it before reprocessing so a
// redelivered job overwrites from scratch instead of double counting.
func (s *Store) Reset() error {
	s.buf = s.buf[:0]
	stmts := []string{
		"DELETE FROM occurrences",
		"DROP INDEX IF EXISTS idx_occurrences_word",
		"DELETE FROM store_meta",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("resetting store %s: %w", s.path, err)
		}
	}
	return nil
}

// Upsert records one occurrence: frequency rises by one and the sentence
// number is appended to the word's list. Rows are buffered and written in
// transactions of batchSize.
func (s *Store) Upsert(word string, sentenceNo int) error {
	s.buf = append(s.buf, occurrence{word: word, sentence: sentenceNo})
	if len(s.buf) >= s.batchSize {
		return s.Flush()
	}
	return nil
}

// Flush writes any buffered occurrences in a single transaction.
func (s *Store) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO occurrences (word, sentence_no) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	for _, occ := range s.buf {
		if _, err := stmt.Exec(occ.word, occ.sentence); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("inserting occurrence of %q: %w", occ.word, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %d occurrences: %w", len(s.buf), err)
	}
	s.logger.Debug("flushed occurrence batch", "rows", len(s.buf))
	s.buf = s.buf[:0]
	return nil
}

// MarkComplete flushes pending writes, builds the word index (deferred until
// now so inserts stay cheap) and records the durable completion marker along
// with the chunk's sentence count.
func (s *Store) MarkComplete(sentences int) error {
	if err := s.Flush(); err != nil {
		return err
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_occurrences_word ON occurrences(word)"); err != nil {
		return fmt.Errorf("indexing store %s: %w", s.path, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning completion transaction: %w", err)
	}
	meta := [][2]string{
		{"complete", "true"},
		{"sentence_count", strconv.Itoa(sentences)},
		{"chunk_index", strconv.Itoa(s.chunk)},
	}
	for _, kv := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			tx.Rollback()
			return fmt.Errorf("writing completion marker: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing completion marker: %w", err)
	}
	s.logger.Debug("store marked complete", "sentences", sentences)
	return nil
}

// Complete reports whether the durable completion marker is present.
func (s *Store) Complete() (bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = 'complete'").Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading completion marker: %w", err)
	}
	return value == "true", nil
}

// SentenceCount returns the sentence count recorded at completion.
func (s *Store) SentenceCount() (int, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = 'sentence_count'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading sentence count: %w", err)
	}
	return strconv.Atoi(value)
}

// WriteEntry appends a whole aggregated entry, preserving its sentence
// order. Merge sinks use it to populate intermediate and final stores.
func (s *Store) WriteEntry(e Entry) error {
	for _, n := range e.Sentences {
		if err := s.Upsert(e.Word, n); err != nil {
			return err
		}
	}
	return nil
}

// Iterate returns a restartable iterator over the store's entries in
// ascending word order. It refuses stores not yet marked complete.
func (s *Store) Iterate() (*Iterator, error) {
	complete, err := s.Complete()
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, fmt.Errorf("%w: %s", cerrors.ErrStoreIncomplete, s.path)
	}
	rows, err := s.db.Query("SELECT word, sentence_no FROM occurrences ORDER BY word, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying store %s: %w", s.path, err)
	}
	return &Iterator{rows: rows, chunk: s.chunk}, nil
}

// Close closes the underlying database. Buffered but unflushed occurrences
// are dropped; callers flush or mark complete first.
func (s *Store) Close() error {
	return s.db.Close()
}

// Iterator yields one Entry per distinct word, aggregated from consecutive
// occurrence rows. Rows arrive ordered by word then insertion order, so a
// word's sentence list keeps appearance order.
type Iterator struct {
	rows    *sql.Rows
	chunk   int
	pending *Entry
	done    bool
}

// Chunk returns the chunk index of the underlying store.
func (it *Iterator) Chunk() int { return it.chunk }

// Next returns the next entry, or nil when the iterator is exhausted.
func (it *Iterator) Next() (*Entry, error) {
	if it.done {
		return nil, nil
	}
	for it.rows.Next() {
		var (
			word     string
			sentence int
		)
		if err := it.rows.Scan(&word, &sentence); err != nil {
			return nil, fmt.Errorf("scanning occurrence row: %w", err)
		}
		if it.pending == nil {
			it.pending = &Entry{Word: word, Frequency: 1, Sentences: []int{sentence}}
			continue
		}
		if word == it.pending.Word {
			it.pending.Frequency++
			it.pending.Sentences = append(it.pending.Sentences, sentence)
			continue
		}
		out := it.pending
		it.pending = &Entry{Word: word, Frequency: 1, Sentences: []int{sentence}}
		return out, nil
	}
	if err := it.rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating store: %w", err)
	}
	it.done = true
	out := it.pending
	it.pending = nil
	return out, nil
}

// Close releases the iterator's cursor.
func (it *Iterator) Close() error {
	return it.rows.Close()
}
