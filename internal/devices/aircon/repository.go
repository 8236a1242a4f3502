package aircon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// Repository defines the interface for AC device persistence.
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed AC device repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a paired device. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ac_devices (id, name, ip_address, port, identifier, key, token)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Name, device.IPAddress, device.Port,
		device.Identifier, device.Key, device.Token,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return devices.ErrDuplicateRecord
		}
		return fmt.Errorf("creating ac device: %w", err)
	}

	return nil
}

// GetByID retrieves a device record by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	var d Device

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, ip_address, port, identifier, key, token
		 FROM ac_devices WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.IPAddress, &d.Port, &d.Identifier, &d.Key, &d.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, devices.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting ac device: %w", err)
	}

	return &d, nil
}

// List returns all device records ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, ip_address, port, identifier, key, token
		 FROM ac_devices ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing ac devices: %w", err)
	}
	defer rows.Close()

	var list []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.Name, &d.IPAddress, &d.Port, &d.Identifier, &d.Key, &d.Token); err != nil {
			return nil, fmt.Errorf("scanning ac device: %w", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ac devices: %w", err)
	}

	if list == nil {
		list = []Device{}
	}
	return list, nil
}

// Delete removes a device record by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM ac_devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting ac device: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return devices.ErrRecordNotFound
	}
	return nil
}
