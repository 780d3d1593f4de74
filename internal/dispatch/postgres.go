package dispatch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/postgres"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS chunk_ledger (
    run_id     TEXT        NOT NULL,
    chunk      INTEGER     NOT NULL,
    status     TEXT        NOT NULL DEFAULT 'PENDING',
    attempts   INTEGER     NOT NULL DEFAULT 0,
    sentences  INTEGER     NOT NULL DEFAULT 0,
    failure    TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, chunk)
)`

// PostgresTracker keeps chunk state in a chunk_ledger table: one row per
// chunk per run, with attempt counts durable across worker restarts. It is
// the tracker of record for deployments that need an auditable history of
// what each chunk went through.
type PostgresTracker struct {
	client *postgres.Client
	runID  string
}

// NewPostgresTracker creates a tracker for the given run ID, ensuring the
// ledger table exists.
func NewPostgresTracker(client *postgres.Client, runID string) (*PostgresTracker, error) {
	if _, err := client.DB.Exec(ledgerSchema); err != nil {
		return nil, fmt.Errorf("ensuring chunk_ledger table: %w", err)
	}
	return &PostgresTracker{client: client, runID: runID}, nil
}

func (t *PostgresTracker) Register(ctx context.Context, total int) error {
	return t.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunk_ledger WHERE run_id = $1`, t.runID,
		); err != nil {
			return fmt.Errorf("clearing previous run state: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chunk_ledger (run_id, chunk) VALUES ($1, $2)`,
		)
		if err != nil {
			return fmt.Errorf("preparing ledger insert: %w", err)
		}
		defer stmt.Close()
		for chunk := 0; chunk < total; chunk++ {
			if _, err := stmt.ExecContext(ctx, t.runID, chunk); err != nil {
				return fmt.Errorf("registering chunk %d: %w", chunk, err)
			}
		}
		return nil
	})
}

func (t *PostgresTracker) RecordAttempt(ctx context.Context, chunk int) (int, error) {
	var attempts int
	err := t.client.DB.QueryRowContext(ctx,
		`UPDATE chunk_ledger
		    SET attempts = attempts + 1, updated_at = NOW()
		  WHERE run_id = $1 AND chunk = $2
		RETURNING attempts`,
		t.runID, chunk,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("recording attempt for chunk %d: %w", chunk, err)
	}
	return attempts, nil
}

func (t *PostgresTracker) MarkComplete(ctx context.Context, chunk, sentences int) error {
	_, err := t.client.DB.ExecContext(ctx,
		`UPDATE chunk_ledger
		    SET status = 'COMPLETE', sentences = $3, failure = NULL, updated_at = NOW()
		  WHERE run_id = $1 AND chunk = $2`,
		t.runID, chunk, sentences,
	)
	if err != nil {
		return fmt.Errorf("marking chunk %d complete: %w", chunk, err)
	}
	return nil
}

func (t *PostgresTracker) MarkFailed(ctx context.Context, chunk int, reason string) error {
	_, err := t.client.DB.ExecContext(ctx,
		`UPDATE chunk_ledger
		    SET status = 'FAILED', failure = $3, updated_at = NOW()
		  WHERE run_id = $1 AND chunk = $2`,
		t.runID, chunk, reason,
	)
	if err != nil {
		return fmt.Errorf("marking chunk %d failed: %w", chunk, err)
	}
	return nil
}

func (t *PostgresTracker) Snapshot(ctx context.Context) (Progress, error) {
	p := Progress{Failed: make(map[int]string)}
	rows, err := t.client.DB.QueryContext(ctx,
		`SELECT chunk, status, sentences, COALESCE(failure, '')
		   FROM chunk_ledger
		  WHERE run_id = $1
		  ORDER BY chunk`,
		t.runID,
	)
	if err != nil {
		return p, fmt.Errorf("reading chunk ledger: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			chunk, sentences int
			status, failure  string
		)
		if err := rows.Scan(&chunk, &status, &sentences, &failure); err != nil {
			return p, fmt.Errorf("scanning ledger row: %w", err)
		}
		p.Total++
		switch status {
		case "COMPLETE":
			p.Completed = append(p.Completed, chunk)
			p.Sentences += sentences
		case "FAILED":
			p.Failed[chunk] = failure
		}
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("iterating ledger rows: %w", err)
	}
	return p, nil
}
