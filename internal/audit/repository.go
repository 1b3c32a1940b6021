// Package audit provides access to the sync_changes table, the persistent
// trail of every component added or removed by a reconciliation run.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/netsyncd/netsync-core/internal/sync"
)

// ChangeEntry is one recorded add or removal.
type ChangeEntry struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Action     string    `json:"action"`
	Category   string    `json:"category"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter controls which change entries to return.
type Filter struct {
	RunID    string // optional: filter by run
	DeviceID string // optional: filter by device
	Action   string // optional: filter by action (added, removed)
	Category string // optional: filter by component category
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult contains the paginated change entries.
type ListResult struct {
	Changes []ChangeEntry `json:"changes"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// Repository defines the interface for change trail operations.
type Repository interface {
	sync.ChangeRecorder
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the change trail in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new change trail repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts the applied changes of one device. Called by the applier
// after its transaction commits.
func (r *SQLiteRepository) Record(ctx context.Context, changes []sync.Change) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range changes {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO sync_changes (id, run_id, device_id, device, action, category, name, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			"chg-"+uuid.NewString()[:8],
			c.RunID, c.DeviceID, c.DeviceName,
			c.Action, c.Category, c.Name,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting sync change: %w", err)
		}
	}
	return nil
}

// List returns change entries matching the filter, most recent run first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sync_changes %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting sync changes: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, run_id, device_id, device, action, category, name, created_at FROM sync_changes %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync changes: %w", err)
	}
	defer rows.Close()

	var changes []ChangeEntry
	for rows.Next() {
		var entry ChangeEntry
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.DeviceID, &entry.DeviceName,
			&entry.Action, &entry.Category, &entry.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning sync change: %w", err)
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing sync change timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = t

		changes = append(changes, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync changes: %w", err)
	}

	if changes == nil {
		changes = []ChangeEntry{}
	}

	return &ListResult{
		Changes: changes,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
