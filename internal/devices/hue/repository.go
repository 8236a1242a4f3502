package hue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// Repository defines the interface for Hue bridge persistence.
type Repository interface {
	Create(ctx context.Context, bridge *Bridge) error
	GetByID(ctx context.Context, id string) (*Bridge, error)
	List(ctx context.Context) ([]Bridge, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed Hue bridge repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a paired bridge. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, bridge *Bridge) error {
	if bridge.ID == "" {
		bridge.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hue_bridges (id, name, ip_address, port, identifier, username, client_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bridge.ID, bridge.Name, bridge.IPAddress, bridge.Port,
		bridge.Identifier, bridge.Username, bridge.ClientKey,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return devices.ErrDuplicateRecord
		}
		return fmt.Errorf("creating hue bridge: %w", err)
	}

	return nil
}

// GetByID retrieves a bridge record by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Bridge, error) {
	var b Bridge

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, ip_address, port, identifier, username, client_key
		 FROM hue_bridges WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.IPAddress, &b.Port, &b.Identifier, &b.Username, &b.ClientKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, devices.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting hue bridge: %w", err)
	}

	return &b, nil
}

// List returns all bridge records ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Bridge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, ip_address, port, identifier, username, client_key
		 FROM hue_bridges ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing hue bridges: %w", err)
	}
	defer rows.Close()

	var list []Bridge
	for rows.Next() {
		var b Bridge
		if err := rows.Scan(&b.ID, &b.Name, &b.IPAddress, &b.Port, &b.Identifier, &b.Username, &b.ClientKey); err != nil {
			return nil, fmt.Errorf("scanning hue bridge: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hue bridges: %w", err)
	}

	if list == nil {
		list = []Bridge{}
	}
	return list, nil
}

// Delete removes a bridge record by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM hue_bridges WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting hue bridge: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return devices.ErrRecordNotFound
	}
	return nil
}
