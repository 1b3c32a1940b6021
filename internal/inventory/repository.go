package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are built against it so the convergence applier can bind a
// repository to the per-device transaction via WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DeviceRepository defines persistence operations for devices.
type DeviceRepository interface {
	// GetByID retrieves a device by ID.
	// Returns ErrDeviceNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByName retrieves a device by its unique name.
	GetByName(ctx context.Context, name string) (*Device, error)

	// ListBySelector retrieves devices matching the selector, ordered by
	// name. A zero selector matches all devices.
	ListBySelector(ctx context.Context, sel Selector) ([]Device, error)

	// Create inserts a new device. Generates an ID if empty.
	// Returns ErrDeviceExists on an ID or name collision.
	Create(ctx context.Context, d *Device) error

	// Update modifies an existing device.
	Update(ctx context.Context, d *Device) error

	// Delete removes a device and, via cascade, its components.
	Delete(ctx context.Context, id string) error
}

// DeviceTypeRepository defines persistence operations for device types.
type DeviceTypeRepository interface {
	// GetByID retrieves a device type by ID.
	GetByID(ctx context.Context, id string) (*DeviceType, error)

	// GetBySlug retrieves a device type by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*DeviceType, error)

	// List retrieves all device types ordered by manufacturer, model.
	List(ctx context.Context) ([]DeviceType, error)

	// Create inserts a new device type. Generates an ID if empty.
	// Returns ErrDeviceTypeExists on a slug collision.
	Create(ctx context.Context, dt *DeviceType) error

	// Update modifies an existing device type.
	Update(ctx context.Context, dt *DeviceType) error
}

// SQLiteDeviceRepository implements DeviceRepository using SQLite.
type SQLiteDeviceRepository struct {
	db querier
}

// NewSQLiteDeviceRepository creates a new SQLite-backed device repository.
func NewSQLiteDeviceRepository(db *sql.DB) *SQLiteDeviceRepository {
	return &SQLiteDeviceRepository{db: db}
}

const deviceColumns = `id, name, device_type_id, site, location, role, status, serial, tags, created_at, updated_at`

// GetByID retrieves a device by ID.
func (r *SQLiteDeviceRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// GetByName retrieves a device by name.
func (r *SQLiteDeviceRepository) GetByName(ctx context.Context, name string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE name = ?`, name)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by name: %w", err)
	}
	return d, nil
}

// ListBySelector retrieves devices matching the selector, ordered by name.
// The order is the processing order of a reconciliation run.
func (r *SQLiteDeviceRepository) ListBySelector(ctx context.Context, sel Selector) ([]Device, error) {
	var conditions []string
	var args []any

	if len(sel.DeviceIDs) > 0 {
		conditions = append(conditions, "id IN ("+placeholders(len(sel.DeviceIDs))+")")
		for _, id := range sel.DeviceIDs {
			args = append(args, id)
		}
	}
	if len(sel.DeviceTypeIDs) > 0 {
		conditions = append(conditions, "device_type_id IN ("+placeholders(len(sel.DeviceTypeIDs))+")")
		for _, id := range sel.DeviceTypeIDs {
			args = append(args, id)
		}
	}
	if len(sel.Sites) > 0 {
		conditions = append(conditions, "site IN ("+placeholders(len(sel.Sites))+")")
		for _, s := range sel.Sites {
			args = append(args, s)
		}
	}
	if sel.Tag != "" {
		// Tags are stored as a JSON array of strings.
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(devices.tags) WHERE json_each.value = ?)")
		args = append(args, sel.Tag)
	}

	query := `SELECT ` + deviceColumns + ` FROM devices`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteDeviceRepository) Create(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = "dev-" + uuid.NewString()[:8]
	}
	if d.Status == "" {
		d.Status = StatusActive
	}

	tagsJSON, err := json.Marshal(orEmptyStrings(d.Tags))
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, device_type_id, site, location, role, status, serial, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Name,
		nullableStringPtr(d.DeviceTypeID),
		nullableString(d.Site),
		nullableString(d.Location),
		nullableString(d.Role),
		d.Status,
		nullableString(d.Serial),
		string(tagsJSON),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteDeviceRepository) Update(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}

	tagsJSON, err := json.Marshal(orEmptyStrings(d.Tags))
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, device_type_id = ?, site = ?, location = ?, role = ?,
			status = ?, serial = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		d.Name,
		nullableStringPtr(d.DeviceTypeID),
		nullableString(d.Site),
		nullableString(d.Location),
		nullableString(d.Role),
		d.Status,
		nullableString(d.Serial),
		string(tagsJSON),
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return checkAffected(result, ErrDeviceNotFound)
}

// Delete removes a device by ID.
func (r *SQLiteDeviceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return checkAffected(result, ErrDeviceNotFound)
}

// SQLiteDeviceTypeRepository implements DeviceTypeRepository using SQLite.
type SQLiteDeviceTypeRepository struct {
	db querier
}

// NewSQLiteDeviceTypeRepository creates a new SQLite-backed device type repository.
func NewSQLiteDeviceTypeRepository(db *sql.DB) *SQLiteDeviceTypeRepository {
	return &SQLiteDeviceTypeRepository{db: db}
}

const deviceTypeColumns = `id, manufacturer, model, slug, part_number, u_height, is_full_depth, created_at, updated_at`

// GetByID retrieves a device type by ID.
func (r *SQLiteDeviceTypeRepository) GetByID(ctx context.Context, id string) (*DeviceType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceTypeColumns+` FROM device_types WHERE id = ?`, id)
	dt, err := scanDeviceType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceTypeNotFound
		}
		return nil, fmt.Errorf("querying device type by id: %w", err)
	}
	return dt, nil
}

// GetBySlug retrieves a device type by slug.
func (r *SQLiteDeviceTypeRepository) GetBySlug(ctx context.Context, slug string) (*DeviceType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceTypeColumns+` FROM device_types WHERE slug = ?`, slug)
	dt, err := scanDeviceType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceTypeNotFound
		}
		return nil, fmt.Errorf("querying device type by slug: %w", err)
	}
	return dt, nil
}

// List retrieves all device types.
func (r *SQLiteDeviceTypeRepository) List(ctx context.Context) ([]DeviceType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceTypeColumns+` FROM device_types ORDER BY manufacturer, model`)
	if err != nil {
		return nil, fmt.Errorf("querying device types: %w", err)
	}
	defer rows.Close()

	var types []DeviceType
	for rows.Next() {
		dt, err := scanDeviceType(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device type: %w", err)
		}
		types = append(types, *dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device types: %w", err)
	}

	return types, nil
}

// Create inserts a new device type.
func (r *SQLiteDeviceTypeRepository) Create(ctx context.Context, dt *DeviceType) error {
	if dt.Slug == "" {
		dt.Slug = GenerateSlug(dt.Manufacturer + " " + dt.Model)
	}
	if err := ValidateDeviceType(dt); err != nil {
		return err
	}
	if dt.ID == "" {
		dt.ID = "dt-" + uuid.NewString()[:8]
	}
	if dt.UHeight == 0 {
		dt.UHeight = 1
	}

	now := time.Now().UTC()
	if dt.CreatedAt.IsZero() {
		dt.CreatedAt = now
	}
	dt.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_types (id, manufacturer, model, slug, part_number, u_height, is_full_depth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dt.ID,
		dt.Manufacturer,
		dt.Model,
		dt.Slug,
		nullableString(dt.PartNumber),
		dt.UHeight,
		boolToInt(dt.IsFullDepth),
		dt.CreatedAt.Format(time.RFC3339),
		dt.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceTypeExists
		}
		return fmt.Errorf("inserting device type: %w", err)
	}

	return nil
}

// Update modifies an existing device type.
func (r *SQLiteDeviceTypeRepository) Update(ctx context.Context, dt *DeviceType) error {
	if err := ValidateDeviceType(dt); err != nil {
		return err
	}

	dt.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE device_types SET
			manufacturer = ?, model = ?, slug = ?, part_number = ?,
			u_height = ?, is_full_depth = ?, updated_at = ?
		WHERE id = ?`,
		dt.Manufacturer,
		dt.Model,
		dt.Slug,
		nullableString(dt.PartNumber),
		dt.UHeight,
		boolToInt(dt.IsFullDepth),
		dt.UpdatedAt.Format(time.RFC3339),
		dt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device type: %w", err)
	}
	return checkAffected(result, ErrDeviceTypeNotFound)
}

// rowScanner is implemented by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var deviceTypeID, site, location, role, serial sql.NullString
	var tagsJSON, createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&deviceTypeID,
		&site,
		&location,
		&role,
		&d.Status,
		&serial,
		&tagsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deviceTypeID.Valid {
		d.DeviceTypeID = &deviceTypeID.String
	}
	d.Site = site.String
	d.Location = location.String
	d.Role = role.String
	d.Serial = serial.String

	if err := json.Unmarshal([]byte(tagsJSON), &d.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

func scanDeviceType(scanner rowScanner) (*DeviceType, error) {
	var dt DeviceType
	var partNumber sql.NullString
	var isFullDepth int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&dt.ID,
		&dt.Manufacturer,
		&dt.Model,
		&dt.Slug,
		&partNumber,
		&dt.UHeight,
		&isFullDepth,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	dt.PartNumber = partNumber.String
	dt.IsFullDepth = isFullDepth != 0

	if dt.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if dt.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &dt, nil
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// nullableString returns a sql.NullString for optional strings.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableStringPtr returns a sql.NullString for optional string pointers.
func nullableStringPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// orEmptyStrings substitutes an empty slice for nil so JSON columns store
// "[]" rather than "null".
func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// checkAffected translates a zero-rows-affected result into notFound.
func checkAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

// isUniqueConstraintError checks for a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
