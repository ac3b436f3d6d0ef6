package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Binding routes a trigger, either a gesture type or a compound action name,
// to a plugin action.
type Binding struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config,omitempty"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

const bindingColumns = `id, trigger_name, plugin_name, action_name, config, enabled, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBinding(row scanner) (*Binding, error) {
	b := &Binding{}
	var config string
	var enabled int
	var created int64

	if err := row.Scan(&b.ID, &b.Trigger, &b.PluginName, &b.ActionName, &config, &enabled, &created); err != nil {
		return nil, err
	}

	b.Config = json.RawMessage(config)
	b.Enabled = enabled != 0
	b.CreatedAt = fromMillis(created)
	return b, nil
}

func configOrEmpty(c json.RawMessage) string {
	if len(c) == 0 {
		return "{}"
	}
	return string(c)
}

// Create inserts a new binding. It returns ErrDuplicate when the trigger is
// already bound.
func (r *BindingRepository) Create(b *Binding) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO action_bindings (`+bindingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Trigger, b.PluginName, b.ActionName, configOrEmpty(b.Config), boolInt(b.Enabled), toMillis(b.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a binding by its ID.
func (r *BindingRepository) GetByID(id string) (*Binding, error) {
	b, err := scanBinding(r.db.QueryRow(`SELECT `+bindingColumns+` FROM action_bindings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetByTrigger retrieves the binding for trigger.
// Returns nil, nil if nothing is bound to it.
func (r *BindingRepository) GetByTrigger(trigger string) (*Binding, error) {
	b, err := scanBinding(r.db.QueryRow(`SELECT `+bindingColumns+` FROM action_bindings WHERE trigger_name = ?`, trigger))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// List retrieves all bindings, newest first.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(`SELECT ` + bindingColumns + ` FROM action_bindings ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}

	return bindings, rows.Err()
}

// Update replaces every mutable field of an existing binding.
func (r *BindingRepository) Update(b *Binding) error {
	result, err := r.db.Exec(
		`UPDATE action_bindings SET trigger_name = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		b.Trigger, b.PluginName, b.ActionName, configOrEmpty(b.Config), boolInt(b.Enabled), b.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a binding by its ID.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM action_bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
