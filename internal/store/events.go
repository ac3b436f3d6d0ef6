package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event sources.
const (
	SourceAPI      = "api"
	SourcePipeline = "pipeline"
)

// Event is one processed gesture as persisted in the event log.
type Event struct {
	ID               string    `json:"id"`
	GestureType      string    `json:"gesture_type"`
	Confidence       float64   `json:"confidence"`
	IsValid          bool      `json:"is_valid"`
	TrajectoryLength int       `json:"trajectory_length"`
	Action           string    `json:"action,omitempty"`
	Compound         string    `json:"compound,omitempty"`
	Source           string    `json:"source"`
	CreatedAt        time.Time `json:"created_at"`
}

// EventRepository reads and writes the gesture event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends e to the log, filling ID, Source and CreatedAt when unset.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Source == "" {
		e.Source = SourceAPI
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO gesture_events
		 (id, gesture_type, confidence, is_valid, trajectory_length, action, compound, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GestureType, e.Confidence, boolInt(e.IsValid), e.TrajectoryLength,
		e.Action, e.Compound, e.Source, toMillis(e.CreatedAt),
	)
	return err
}

// List returns up to limit events, newest first. A non-positive limit returns all.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, gesture_type, confidence, is_valid, trajectory_length, action, compound, source, created_at
		 FROM gesture_events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var valid int
		var created int64

		if err := rows.Scan(&e.ID, &e.GestureType, &e.Confidence, &valid, &e.TrajectoryLength,
			&e.Action, &e.Compound, &e.Source, &created); err != nil {
			return nil, err
		}

		e.IsValid = valid != 0
		e.CreatedAt = fromMillis(created)
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountByType returns the number of stored events per gesture type.
func (r *EventRepository) CountByType() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT gesture_type, COUNT(*) FROM gesture_events GROUP BY gesture_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}

	return counts, rows.Err()
}

// DeleteBefore removes events created before t and returns how many were deleted.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM gesture_events WHERE created_at < ?`, toMillis(t))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
