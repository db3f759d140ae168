package repositories

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicman/internal/models"
	"github.com/desertthunder/musicman/internal/session"
	"github.com/desertthunder/musicman/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventRepository(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Create And Get", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		event := models.NewSessionEvent("user-1", "stored", "expires_at=x", base)

		if err := repo.Create(event); err != nil {
			t.Fatalf("failed to create event: %v", err)
		}
		if event.ID() == "" {
			t.Fatal("event ID should be set after creation")
		}

		got, err := repo.Get(event.ID())
		if err != nil {
			t.Fatalf("failed to get event: %v", err)
		}
		if got.UserID() != "user-1" || got.Kind() != "stored" || got.Detail() != "expires_at=x" {
			t.Errorf("unexpected event %+v", got)
		}
		if !got.CreatedAt().Equal(base) {
			t.Errorf("expected created_at %v, got %v", base, got.CreatedAt())
		}
	})

	t.Run("Create Validation", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		if err := repo.Create(models.NewSessionEvent("", "stored", "", base)); err == nil {
			t.Error("expected validation error for empty user id")
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		_, err := repo.Get("missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		event := models.NewSessionEvent("user-1", "cleared", "", base)
		if err := repo.Create(event); err != nil {
			t.Fatalf("failed to create event: %v", err)
		}

		if err := repo.Delete(event.ID()); err != nil {
			t.Fatalf("failed to delete event: %v", err)
		}
		if err := repo.Delete(event.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		seed := []struct {
			user string
			kind string
			at   time.Time
		}{
			{"user-1", "stored", base},
			{"user-2", "stored", base.Add(time.Minute)},
			{"user-1", "refresh-succeeded", base.Add(2 * time.Minute)},
			{"user-1", "cleared", base.Add(3 * time.Minute)},
		}
		for _, s := range seed {
			if err := repo.Create(models.NewSessionEvent(s.user, s.kind, "", s.at)); err != nil {
				t.Fatalf("failed to seed event: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			kinds    []string
		}{
			{"all newest first", nil, []string{"cleared", "refresh-succeeded", "stored", "stored"}},
			{"by user", map[string]any{"user_id": "user-1"}, []string{"cleared", "refresh-succeeded", "stored"}},
			{"by kind", map[string]any{"kind": "stored"}, []string{"stored", "stored"}},
			{"limit", map[string]any{"limit": 1}, []string{"cleared"}},
			{"since", map[string]any{"since": base.Add(2 * time.Minute)}, []string{"cleared", "refresh-succeeded"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				events, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list events: %v", err)
				}
				if len(events) != len(tt.kinds) {
					t.Fatalf("expected %d events, got %d", len(tt.kinds), len(events))
				}
				for i, e := range events {
					if e.Kind() != tt.kinds[i] {
						t.Errorf("event %d: expected kind %s, got %s", i, tt.kinds[i], e.Kind())
					}
				}
			})
		}
	})

	t.Run("Prune", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		for i := range 3 {
			at := base.Add(time.Duration(i) * time.Hour)
			if err := repo.Create(models.NewSessionEvent("user-1", "stored", "", at)); err != nil {
				t.Fatalf("failed to seed event: %v", err)
			}
		}

		removed, err := repo.Prune(base.Add(90 * time.Minute))
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if removed != 2 {
			t.Errorf("expected 2 pruned events, got %d", removed)
		}

		events, _ := repo.List(nil)
		if len(events) != 1 {
			t.Errorf("expected 1 remaining event, got %d", len(events))
		}
	})
}

func TestEventRecorder(t *testing.T) {
	t.Run("Records lifecycle events", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		recorder := NewEventRecorder(repo, log.New(&bytes.Buffer{}), 0)

		now := time.Now()
		recorder.Observe(session.Event{Kind: session.EventStored, UserID: "user-1", At: now})
		recorder.Observe(session.Event{Kind: session.EventFastPathHit, UserID: "user-1", At: now})
		recorder.Observe(session.Event{Kind: session.EventRefreshFailed, UserID: "user-1", Detail: "invalid_grant", At: now})
		recorder.Close()

		events, err := repo.List(map[string]any{"user_id": "user-1"})
		if err != nil {
			t.Fatalf("failed to list events: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 recorded events (fast path skipped), got %d", len(events))
		}
		for _, e := range events {
			if e.Kind() == string(session.EventFastPathHit) {
				t.Error("fast-path hits should not be recorded")
			}
		}
	})

	t.Run("Observe after Close is dropped", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		recorder := NewEventRecorder(repo, log.New(&bytes.Buffer{}), 1)
		recorder.Close()
		recorder.Close()

		recorder.Observe(session.Event{Kind: session.EventCleared, UserID: "user-1", At: time.Now()})

		events, _ := repo.List(nil)
		if len(events) != 0 {
			t.Errorf("expected no events after close, got %d", len(events))
		}
	})

	t.Run("Write failures are logged", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewEventRepository(db)
		var buf bytes.Buffer
		recorder := NewEventRecorder(repo, log.New(&buf), 1)

		if _, err := db.Exec("DROP TABLE session_events"); err != nil {
			t.Fatalf("failed to drop table: %v", err)
		}
		recorder.Observe(session.Event{Kind: session.EventCleared, UserID: "user-1", At: time.Now()})
		recorder.Close()

		if !bytes.Contains(buf.Bytes(), []byte("failed to record session event")) {
			t.Errorf("expected write failure to be logged, got %q", buf.String())
		}
	})
}
