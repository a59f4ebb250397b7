package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run statuses.
const (
	RunActive    = "active"
	RunCompleted = "completed"
	RunAborted   = "aborted"
	RunPaused    = "paused"
)

// Run is one invocation of the learning loop.
type Run struct {
	ID        string `json:"id"`
	StartedAt int64  `json:"started_at"`
	EndedAt   *int64 `json:"ended_at,omitempty"`
	Status    string `json:"status"`
	VocabSize int    `json:"vocab_size"`
	Exposures int    `json:"exposures"`
}

// StartRun records a new active run and returns its ULID.
func (db *DB) StartRun(vocabSize int) (string, error) {
	id := ulid.Make().String()
	_, err := db.Exec(`
		INSERT INTO runs (id, started_at, status, vocab_size)
		VALUES (?, ?, 'active', ?)
	`, id, time.Now().UnixMilli(), vocabSize)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun closes an active run with its final status and exposure count.
func (db *DB) FinishRun(id, status string, exposures int) error {
	result, err := db.Exec(`
		UPDATE runs SET status = ?, ended_at = ?, exposures = ?
		WHERE id = ? AND status = 'active'
	`, status, time.Now().UnixMilli(), exposures, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no active run found for %s", id)
	}
	return nil
}

// GetRun returns a run by ID, or nil if it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	var r Run
	err := db.QueryRow(`
		SELECT id, started_at, ended_at, status, vocab_size, exposures
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Status, &r.VocabSize, &r.Exposures)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, started_at, ended_at, status, vocab_size, exposures
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Status, &r.VocabSize, &r.Exposures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
