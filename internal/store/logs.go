package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hydraping/hydraping/internal/models"
)

// retentionDays is how long intake history is kept before rotation.
const retentionDays = 90

// AddIntake records a drink and returns the stored event.
func (db *DB) AddIntake(amountML int, ts time.Time) (models.IntakeEvent, error) {
	if amountML <= 0 {
		return models.IntakeEvent{}, fmt.Errorf("add intake: amount must be positive, got %d", amountML)
	}

	res, err := db.Exec(`
		INSERT INTO hydration_logs (amount_ml, timestamp) VALUES (?, ?)
	`, amountML, ts.UnixMilli())
	if err != nil {
		return models.IntakeEvent{}, fmt.Errorf("add intake: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.IntakeEvent{}, fmt.Errorf("add intake id: %w", err)
	}
	return models.IntakeEvent{ID: id, AmountML: amountML, Timestamp: ts}, nil
}

// EventsBetween returns intake events in [since, until), ordered oldest first.
func (db *DB) EventsBetween(since, until time.Time) ([]models.IntakeEvent, error) {
	rows, err := db.Query(`
		SELECT id, amount_ml, timestamp
		FROM hydration_logs
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp
	`, since.UnixMilli(), until.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.IntakeEvent
	for rows.Next() {
		var (
			ev models.IntakeEvent
			ms int64
		)
		if err := rows.Scan(&ev.ID, &ev.AmountML, &ms); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ms)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LatestEvent returns the most recent intake event, or nil if there is none.
func (db *DB) LatestEvent() (*models.IntakeEvent, error) {
	var (
		ev models.IntakeEvent
		ms int64
	)
	err := db.QueryRow(`
		SELECT id, amount_ml, timestamp
		FROM hydration_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`).Scan(&ev.ID, &ev.AmountML, &ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest event: %w", err)
	}
	ev.Timestamp = time.UnixMilli(ms)
	return &ev, nil
}

// ConsumedSince returns the total milliliters logged at or after since.
func (db *DB) ConsumedSince(since time.Time) (int, error) {
	var total int
	err := db.QueryRow(`
		SELECT COALESCE(SUM(amount_ml), 0)
		FROM hydration_logs
		WHERE timestamp >= ?
	`, since.UnixMilli()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("consumed since: %w", err)
	}
	return total, nil
}

// DailyTotals returns per-day intake aggregates for the last n days,
// newest day first.
func (db *DB) DailyTotals(days int, now time.Time) ([]models.DailyTotal, error) {
	since := now.AddDate(0, 0, -days)
	rows, err := db.Query(`
		SELECT date(timestamp / 1000, 'unixepoch', 'localtime') AS day,
		       SUM(amount_ml), COUNT(*)
		FROM hydration_logs
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var totals []models.DailyTotal
	for rows.Next() {
		var dt models.DailyTotal
		if err := rows.Scan(&dt.Day, &dt.TotalML, &dt.Drinks); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals = append(totals, dt)
	}
	return totals, rows.Err()
}

// RotateOldLogs deletes intake events older than the retention window and
// returns how many were removed.
func (db *DB) RotateOldLogs(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	res, err := db.Exec(`
		DELETE FROM hydration_logs WHERE timestamp < ?
	`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("rotate logs: %w", err)
	}
	return res.RowsAffected()
}
