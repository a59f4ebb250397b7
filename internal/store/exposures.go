package store

import (
	"database/sql"
	"fmt"
	"time"
)

// maxErrorSize caps the error text stored for a failed exposure.
const maxErrorSize = 2 * 1024

// Exposure statuses.
const (
	ExposureShown  = "shown"
	ExposureFailed = "failed"
)

// Exposure is one journal row: an item presented (or attempted) in a run.
type Exposure struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	Item         string `json:"item"`
	WeightBefore int    `json:"weight_before"`
	WeightAfter  int    `json:"weight_after"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// ItemStats summarises the journal for one item.
type ItemStats struct {
	Item     string `json:"item"`
	Shown    int    `json:"shown"`
	Failed   int    `json:"failed"`
	LastSeen *int64 `json:"last_seen,omitempty"`
}

// RecordExposure appends an exposure. CreatedAt defaults to now.
func (db *DB) RecordExposure(e Exposure) (int64, error) {
	if len(e.Error) > maxErrorSize {
		e.Error = e.Error[:maxErrorSize]
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}

	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	result, err := db.Exec(`
		INSERT INTO exposures (run_id, item, weight_before, weight_after, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Item, e.WeightBefore, e.WeightAfter, e.Status, errText, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("record exposure: %w", err)
	}
	return result.LastInsertId()
}

// RecentExposures returns the latest exposures, newest first.
func (db *DB) RecentExposures(limit int) ([]Exposure, error) {
	return db.queryExposures(`
		SELECT id, run_id, item, weight_before, weight_after, status, error, created_at
		FROM exposures ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
}

// RunExposures returns the exposures of one run in order.
func (db *DB) RunExposures(runID string) ([]Exposure, error) {
	return db.queryExposures(`
		SELECT id, run_id, item, weight_before, weight_after, status, error, created_at
		FROM exposures WHERE run_id = ? ORDER BY id
	`, runID)
}

func (db *DB) queryExposures(query string, args ...any) ([]Exposure, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exposures: %w", err)
	}
	defer rows.Close()

	var out []Exposure
	for rows.Next() {
		var e Exposure
		var errText sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Item, &e.WeightBefore, &e.WeightAfter, &e.Status, &errText, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exposure: %w", err)
		}
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns shown/failed counts and the last shown time for item.
func (db *DB) Stats(item string) (*ItemStats, error) {
	s := ItemStats{Item: item}
	err := db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = 'shown' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			MAX(CASE WHEN status = 'shown' THEN created_at END)
		FROM exposures WHERE item = ?
	`, item).Scan(&s.Shown, &s.Failed, &s.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	return &s, nil
}
