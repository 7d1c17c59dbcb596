package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pm33/abtest/internal/domain"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.TrackingEvent) error {
	var properties sql.NullString
	if len(event.Properties) > 0 {
		raw, err := json.Marshal(event.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode properties: %w", err)
		}
		properties = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, test_id, variant_id, visitor_id, timestamp, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, string(event.Kind), event.TestID, event.VariantID,
		nullIfEmpty(event.VisitorID), event.Timestamp.Format(time.RFC3339), properties)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByTest(ctx context.Context, testID string, limit int) ([]*domain.TrackingEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, test_id, variant_id, visitor_id, timestamp, properties
		FROM events WHERE test_id = ?
		ORDER BY timestamp DESC LIMIT ?
	`, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.TrackingEvent
	for rows.Next() {
		var (
			e          domain.TrackingEvent
			kind       string
			visitorID  sql.NullString
			timestamp  string
			properties sql.NullString
		)
		if err := rows.Scan(&e.ID, &kind, &e.TestID, &e.VariantID, &visitorID, &timestamp, &properties); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.VisitorID = visitorID.String
		e.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
		if properties.Valid {
			// Undecodable properties are dropped, not fatal.
			_ = json.Unmarshal([]byte(properties.String), &e.Properties)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// StatsByTest aggregates impressions, conversions, and distinct
// visitors per variant for one test.
func (r *EventRepository) StatsByTest(ctx context.Context, testID string) ([]domain.VariantStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			variant_id,
			COUNT(CASE WHEN kind = 'impression' THEN 1 END),
			COUNT(CASE WHEN kind = 'conversion' THEN 1 END),
			COUNT(DISTINCT visitor_id)
		FROM events
		WHERE test_id = ?
		GROUP BY variant_id
		ORDER BY variant_id
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}
	defer rows.Close()

	var stats []domain.VariantStats
	for rows.Next() {
		vs := domain.VariantStats{TestID: testID}
		if err := rows.Scan(&vs.VariantID, &vs.Impressions, &vs.Conversions, &vs.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, vs)
	}
	return stats, rows.Err()
}

func (r *EventRepository) CountByKind(ctx context.Context, testID string, kind domain.EventKind) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE test_id = ? AND kind = ?
	`, testID, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) DeleteByTest(ctx context.Context, testID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE test_id = ?`, testID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
