package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/netsyncd/netsync-core/internal/infrastructure/database"
	"github.com/netsyncd/netsync-core/internal/sync"
	_ "github.com/netsyncd/netsync-core/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func recordFixture(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	changes := []sync.Change{
		{RunID: "run-1", DeviceID: "dev-1", DeviceName: "sw-01", Action: sync.ActionAdded, Category: "interfaces", Name: "Gi0/2"},
		{RunID: "run-1", DeviceID: "dev-1", DeviceName: "sw-01", Action: sync.ActionRemoved, Category: "interfaces", Name: "Gi0/3"},
		{RunID: "run-2", DeviceID: "dev-2", DeviceName: "sw-02", Action: sync.ActionAdded, Category: "power_ports", Name: "PS1"},
	}
	if err := repo.Record(context.Background(), changes); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	recordFixture(t, repo)

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Total != 3 || len(result.Changes) != 3 {
		t.Fatalf("total = %d, entries = %d, want 3/3", result.Total, len(result.Changes))
	}
	if result.Limit != 50 {
		t.Errorf("default limit = %d, want 50", result.Limit)
	}

	entry := result.Changes[0]
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("entry missing generated fields: %+v", entry)
	}
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	recordFixture(t, repo)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by run", Filter{RunID: "run-1"}, 2},
		{"by device", Filter{DeviceID: "dev-2"}, 1},
		{"by action", Filter{Action: sync.ActionRemoved}, 1},
		{"by category", Filter{Category: "power_ports"}, 1},
		{"combined", Filter{RunID: "run-1", Action: sync.ActionAdded}, 1},
		{"no match", Filter{RunID: "run-9"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("total = %d, want %d", result.Total, tt.want)
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	recordFixture(t, repo)

	result, err := repo.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Changes) != 2 || result.Total != 3 {
		t.Errorf("page = %d of %d, want 2 of 3", len(result.Changes), result.Total)
	}

	next, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(next.Changes) != 1 {
		t.Errorf("second page = %d, want 1", len(next.Changes))
	}

	clamped, err := repo.List(ctx, Filter{Limit: 10000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if clamped.Limit != 200 {
		t.Errorf("clamped limit = %d, want 200", clamped.Limit)
	}
}
