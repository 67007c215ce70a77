package authlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Filter narrows a feed query. The zero value selects everything.
type Filter struct {
	// Type limits results to one event type when non-empty.
	Type EventType

	// Limit and Offset page through results, most recent first.
	Limit  int
	Offset int
}

// Repository defines the data access contract for auth events.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	// Insert stores a new event.
	Insert(ctx context.Context, event *Event) error

	// List returns events matching the filter, most recent first, plus the
	// total match count for pagination.
	List(ctx context.Context, filter Filter) ([]Event, int, error)

	// CountSince returns per-type event counts recorded at or after since.
	CountSince(ctx context.Context, since time.Time) (map[EventType]int, error)

	// CountFailedSince returns how many events recorded at or after since
	// carried an error code.
	CountFailedSince(ctx context.Context, since time.Time) (int, error)

	// DeleteBefore removes events recorded before cutoff and returns how
	// many were deleted. Drives the retention purge.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// mariadbRepository implements Repository with MariaDB queries.
type mariadbRepository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &mariadbRepository{db: db}
}

// Insert stores a new event. The meta map is serialized to JSON before
// storage; nil meta is stored as SQL NULL.
func (r *mariadbRepository) Insert(ctx context.Context, event *Event) error {
	query := `INSERT INTO auth_events (id, event_type, user_id, email, provider, user_agent, path, error_code, meta, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var metaJSON []byte
	if event.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(event.Meta)
		if err != nil {
			return fmt.Errorf("marshaling event meta: %w", err)
		}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID, string(event.Type), event.UserID, event.Email, event.Provider,
		event.UserAgent, event.Path, event.ErrorCode, metaJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting auth event: %w", err)
	}
	return nil
}

// List returns events matching the filter ordered by most recent first,
// along with the total count for pagination.
func (r *mariadbRepository) List(ctx context.Context, filter Filter) ([]Event, int, error) {
	where := ""
	args := []any{}
	if filter.Type != "" {
		where = " WHERE event_type = ?"
		args = append(args, string(filter.Type))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM auth_events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting auth events: %w", err)
	}

	query := `SELECT id, event_type, user_id, email, provider, user_agent, path, error_code, meta, created_at
	          FROM auth_events` + where + `
	          ORDER BY created_at DESC
	          LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing auth events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// CountSince returns per-type counts of events recorded at or after since.
func (r *mariadbRepository) CountSince(ctx context.Context, since time.Time) (map[EventType]int, error) {
	query := `SELECT event_type, COUNT(*) FROM auth_events
	          WHERE created_at >= ?
	          GROUP BY event_type`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("counting recent auth events: %w", err)
	}
	defer rows.Close()

	counts := make(map[EventType]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		counts[EventType(eventType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event counts: %w", err)
	}
	return counts, nil
}

// CountFailedSince returns how many recorded events carried an error code
// at or after since. Feeds the admin dashboard's failed-auth counter.
func (r *mariadbRepository) CountFailedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM auth_events WHERE created_at >= ? AND error_code <> ''`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting failed auth events: %w", err)
	}
	return count, nil
}

// DeleteBefore removes events recorded before cutoff.
func (r *mariadbRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging auth events: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged auth events: %w", err)
	}
	return deleted, nil
}

// scanEventRows scans rows from an auth_events query into Event slices.
// Expects columns: id, event_type, user_id, email, provider, user_agent,
// path, error_code, meta, created_at.
func scanEventRows(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var eventType string
		var metaJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &eventType, &e.UserID, &e.Email, &e.Provider,
			&e.UserAgent, &e.Path, &e.ErrorCode, &metaJSON, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning auth event: %w", err)
		}
		e.Type = EventType(eventType)

		// Deserialize JSON meta if present.
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &e.Meta); err != nil {
				// Non-fatal: keep the feed readable over a bad row.
				e.Meta = map[string]any{"_parse_error": "invalid JSON"}
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating auth event rows: %w", err)
	}
	return events, nil
}
