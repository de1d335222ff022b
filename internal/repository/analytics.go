package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attec/attec-api/internal/model"
)

// InsertEvent stores one analytics event.
func (r *Repository) InsertEvent(ctx context.Context, e *model.AnalyticsEvent) error {
	query := `
		INSERT INTO analytics_events (id, event_type, event_data, session_id, ip_address, user_agent, referrer, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var data any
	if len(e.EventData) > 0 {
		data = string(e.EventData)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now().UTC()
	}

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.EventType,
		data,
		nullableString(e.SessionID),
		nullableString(e.IPAddress),
		nullableString(e.UserAgent),
		nullableString(e.Referrer),
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}

	return nil
}

// CountEvents counts events in [from, to).
func (r *Repository) CountEvents(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM analytics_events WHERE timestamp >= $1 AND timestamp < $2`,
		from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count analytics events: %w", err)
	}
	return n, nil
}

// CountUniqueSessions counts distinct non-null session ids in [from, to).
func (r *Repository) CountUniqueSessions(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT session_id) FROM analytics_events WHERE timestamp >= $1 AND timestamp < $2`,
		from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unique sessions: %w", err)
	}
	return n, nil
}

// TopEvents returns the most frequent event types in [from, to).
func (r *Repository) TopEvents(ctx context.Context, from, to time.Time, limit int) ([]model.EventCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_type, COUNT(*) AS n
		FROM analytics_events
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY event_type
		ORDER BY n DESC, event_type ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top events: %w", err)
	}
	defer rows.Close()

	out := make([]model.EventCount, 0, limit)
	for rows.Next() {
		var ec model.EventCount
		if err := rows.Scan(&ec.EventType, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		out = append(out, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top events: %w", err)
	}

	return out, nil
}
