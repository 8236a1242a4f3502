package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// Repository defines the interface for room persistence.
type Repository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]Room, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite. Controllers are stored
// as a JSON array in the row; they reference devices by id without foreign
// keys, so a stored controller can outlive its device.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed room repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a room. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, room *Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Controllers == nil {
		room.Controllers = []Controller{}
	}

	controllers, err := json.Marshal(room.Controllers)
	if err != nil {
		return fmt.Errorf("encoding controllers: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, controllers) VALUES (?, ?, ?)`,
		room.ID, room.Name, string(controllers),
	)
	if err != nil {
		return fmt.Errorf("creating room: %w", err)
	}
	return nil
}

// GetByID retrieves a room by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	var room Room
	var controllers string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, controllers FROM rooms WHERE id = ?`, id,
	).Scan(&room.ID, &room.Name, &controllers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, devices.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting room: %w", err)
	}

	if err := json.Unmarshal([]byte(controllers), &room.Controllers); err != nil {
		return nil, fmt.Errorf("decoding controllers for room %s: %w", id, err)
	}
	return &room, nil
}

// List returns all rooms ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, controllers FROM rooms ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	defer rows.Close()

	var list []Room
	for rows.Next() {
		var room Room
		var controllers string
		if err := rows.Scan(&room.ID, &room.Name, &controllers); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		if err := json.Unmarshal([]byte(controllers), &room.Controllers); err != nil {
			return nil, fmt.Errorf("decoding controllers for room %s: %w", room.ID, err)
		}
		list = append(list, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}

	if list == nil {
		list = []Room{}
	}
	return list, nil
}

// Delete removes a room by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return devices.ErrRecordNotFound
	}
	return nil
}
