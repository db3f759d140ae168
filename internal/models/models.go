// package models defines the persisted data model of the musicman backend
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// SessionEvent is an audit record of a session lifecycle transition.
//
// Events are append-only and never carry token material.
type SessionEvent struct {
	id        string
	userID    string
	kind      string
	detail    string
	createdAt time.Time
}

// NewSessionEvent creates an unsaved event; the repository assigns the ID.
func NewSessionEvent(userID, kind, detail string, at time.Time) *SessionEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return &SessionEvent{userID: userID, kind: kind, detail: detail, createdAt: at.UTC()}
}

func (e *SessionEvent) ID() string           { return e.id }
func (e *SessionEvent) UserID() string       { return e.userID }
func (e *SessionEvent) Kind() string         { return e.kind }
func (e *SessionEvent) Detail() string       { return e.detail }
func (e *SessionEvent) CreatedAt() time.Time { return e.createdAt }

func (e *SessionEvent) SetID(id string) { e.id = id }

func (e *SessionEvent) Validate() error {
	if e.kind == "" {
		return fmt.Errorf("event kind is required")
	}
	if e.userID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}
