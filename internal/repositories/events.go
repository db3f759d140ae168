package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musicman/internal/models"
	"github.com/desertthunder/musicman/internal/shared"
)

// DefaultListLimit bounds [EventRepository.List] when no limit criterion is given.
const DefaultListLimit = 100

// EventRepository implements [models.Repository] for [models.SessionEvent] persistence.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new [EventRepository] with the given database connection
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event with a generated ID
func (r *EventRepository) Create(event *models.SessionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `INSERT INTO session_events (id, user_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.Exec(query, id, event.UserID(), event.Kind(), event.Detail(), event.CreatedAt()); err != nil {
		return fmt.Errorf("failed to insert session event: %w", err)
	}

	event.SetID(id)
	return nil
}

// Get retrieves an event by ID
func (r *EventRepository) Get(id string) (*models.SessionEvent, error) {
	query := `SELECT id, user_id, kind, detail, created_at FROM session_events WHERE id = ?`

	event, err := scanEvent(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session event %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session event: %w", err)
	}
	return event, nil
}

// Delete removes an event by ID
func (r *EventRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM session_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session event %s", shared.ErrNotFound, id)
	}
	return nil
}

// List retrieves events newest first.
//
// Supported criteria: "user_id" (string), "kind" (string), "since" ([time.Time]) and "limit" (int,
// defaults to [DefaultListLimit]).
func (r *EventRepository) List(criteria map[string]any) ([]*models.SessionEvent, error) {
	query := `SELECT id, user_id, kind, detail, created_at FROM session_events WHERE 1 = 1`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since.UTC())
	}

	limit := DefaultListLimit
	if l, ok := criteria["limit"].(int); ok && l > 0 {
		limit = l
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var events []*models.SessionEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

// Prune deletes events created before cutoff and returns how many were removed.
func (r *EventRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM session_events WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune session events: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*models.SessionEvent, error) {
	var (
		id        string
		userID    string
		kind      string
		detail    string
		createdAt time.Time
	)

	if err := row.Scan(&id, &userID, &kind, &detail, &createdAt); err != nil {
		return nil, err
	}

	event := models.NewSessionEvent(userID, kind, detail, createdAt)
	event.SetID(id)
	return event, nil
}
