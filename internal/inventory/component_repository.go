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

// ComponentTemplateRepository defines persistence for component templates.
type ComponentTemplateRepository interface {
	// ListByDeviceType retrieves templates of one category for a device
	// type, ordered by name.
	ListByDeviceType(ctx context.Context, deviceTypeID, category string) ([]ComponentTemplate, error)

	// ReplaceForDeviceType replaces all templates of one category for a
	// device type in a single transaction.
	ReplaceForDeviceType(ctx context.Context, deviceTypeID, category string, templates []ComponentTemplate) error

	// CreateBatch inserts templates. Generates IDs where empty.
	CreateBatch(ctx context.Context, templates []ComponentTemplate) error
}

// ComponentRepository defines persistence for device components. The write
// path of a reconciliation run binds it to the per-device transaction with
// WithTx; the single SQLite connection would deadlock otherwise.
type ComponentRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *sql.Tx) ComponentRepository

	// ListByDevice retrieves components of one category on a device,
	// ordered by name.
	ListByDevice(ctx context.Context, deviceID, category string) ([]Component, error)

	// GetByID retrieves a component by ID.
	// Returns ErrComponentNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Component, error)

	// CreateBatch inserts components in a single statement.
	// Generates IDs where empty.
	CreateBatch(ctx context.Context, components []Component) error

	// Delete removes a component by ID.
	Delete(ctx context.Context, id string) error

	// HasCableTermination reports whether any cable terminates on the
	// named component of the device, regardless of the component row's
	// own cable_id.
	HasCableTermination(ctx context.Context, deviceID, name string) (bool, error)

	// HasLAGMembers reports whether any component names the given one as
	// its LAG parent.
	HasLAGMembers(ctx context.Context, componentID string) (bool, error)
}

// CableRepository defines persistence for cables.
type CableRepository interface {
	// Create inserts a new cable and marks both terminating components,
	// where present, with its ID.
	Create(ctx context.Context, c *Cable) error

	// Delete removes a cable by ID.
	Delete(ctx context.Context, id string) error
}

// SQLiteComponentTemplateRepository implements ComponentTemplateRepository
// using SQLite.
type SQLiteComponentTemplateRepository struct {
	db *sql.DB
}

// NewSQLiteComponentTemplateRepository creates a new SQLite-backed template
// repository.
func NewSQLiteComponentTemplateRepository(db *sql.DB) *SQLiteComponentTemplateRepository {
	return &SQLiteComponentTemplateRepository{db: db}
}

const templateColumns = `id, device_type_id, category, name, type, label, description, attrs`

// ListByDeviceType retrieves templates of one category for a device type.
func (r *SQLiteComponentTemplateRepository) ListByDeviceType(ctx context.Context, deviceTypeID, category string) ([]ComponentTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM component_templates
		 WHERE device_type_id = ? AND category = ? ORDER BY name`,
		deviceTypeID, category)
	if err != nil {
		return nil, fmt.Errorf("querying component templates: %w", err)
	}
	defer rows.Close()

	var templates []ComponentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning component template: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating component templates: %w", err)
	}

	return templates, nil
}

// ReplaceForDeviceType replaces all templates of one category for a device
// type. Used by the importer so repeated imports converge on the file.
func (r *SQLiteComponentTemplateRepository) ReplaceForDeviceType(ctx context.Context, deviceTypeID, category string, templates []ComponentTemplate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM component_templates WHERE device_type_id = ? AND category = ?`,
		deviceTypeID, category)
	if err != nil {
		return fmt.Errorf("clearing component templates: %w", err)
	}

	if err := createTemplates(ctx, tx, templates); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CreateBatch inserts templates.
func (r *SQLiteComponentTemplateRepository) CreateBatch(ctx context.Context, templates []ComponentTemplate) error {
	return createTemplates(ctx, r.db, templates)
}

func createTemplates(ctx context.Context, db querier, templates []ComponentTemplate) error {
	for i := range templates {
		t := &templates[i]
		if err := ValidateComponentName(t.Name); err != nil {
			return err
		}
		if t.ID == "" {
			t.ID = "ct-" + uuid.NewString()[:8]
		}

		attrsJSON, err := json.Marshal(orEmptyAttrs(t.Attrs))
		if err != nil {
			return fmt.Errorf("marshalling attrs: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO component_templates (id, device_type_id, category, name, type, label, description, attrs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID,
			t.DeviceTypeID,
			t.Category,
			t.Name,
			nullableString(t.Type),
			nullableString(t.Label),
			nullableString(t.Description),
			string(attrsJSON),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return ErrComponentExists
			}
			return fmt.Errorf("inserting component template: %w", err)
		}
	}
	return nil
}

// SQLiteComponentRepository implements ComponentRepository using SQLite.
type SQLiteComponentRepository struct {
	db querier
}

// NewSQLiteComponentRepository creates a new SQLite-backed component
// repository.
func NewSQLiteComponentRepository(db *sql.DB) *SQLiteComponentRepository {
	return &SQLiteComponentRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *SQLiteComponentRepository) WithTx(tx *sql.Tx) ComponentRepository {
	return &SQLiteComponentRepository{db: tx}
}

const componentColumns = `id, device_id, category, name, type, label, description, attrs, status,
	cable_id, ip_addresses, untagged_vlan, tagged_vlans, lag_id, created_at, updated_at`

// ListByDevice retrieves components of one category on a device.
func (r *SQLiteComponentRepository) ListByDevice(ctx context.Context, deviceID, category string) ([]Component, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+componentColumns+` FROM components
		 WHERE device_id = ? AND category = ? ORDER BY name`,
		deviceID, category)
	if err != nil {
		return nil, fmt.Errorf("querying components: %w", err)
	}
	defer rows.Close()

	var components []Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning component: %w", err)
		}
		components = append(components, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating components: %w", err)
	}

	return components, nil
}

// GetByID retrieves a component by ID.
func (r *SQLiteComponentRepository) GetByID(ctx context.Context, id string) (*Component, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+componentColumns+` FROM components WHERE id = ?`, id)
	c, err := scanComponent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrComponentNotFound
		}
		return nil, fmt.Errorf("querying component by id: %w", err)
	}
	return c, nil
}

// CreateBatch inserts components in a single multi-row statement.
func (r *SQLiteComponentRepository) CreateBatch(ctx context.Context, components []Component) error {
	if len(components) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	values := make([]string, 0, len(components))
	args := make([]any, 0, len(components)*16)

	for i := range components {
		c := &components[i]
		if err := ValidateComponentName(c.Name); err != nil {
			return err
		}
		if c.ID == "" {
			c.ID = "cp-" + uuid.NewString()[:8]
		}

		attrsJSON, err := json.Marshal(orEmptyAttrs(c.Attrs))
		if err != nil {
			return fmt.Errorf("marshalling attrs: %w", err)
		}
		ipsJSON, err := json.Marshal(orEmptyStrings(c.IPAddresses))
		if err != nil {
			return fmt.Errorf("marshalling ip_addresses: %w", err)
		}
		vlansJSON, err := json.Marshal(orEmptyInts(c.TaggedVLANs))
		if err != nil {
			return fmt.Errorf("marshalling tagged_vlans: %w", err)
		}

		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			c.ID,
			c.DeviceID,
			c.Category,
			c.Name,
			nullableString(c.Type),
			nullableString(c.Label),
			nullableString(c.Description),
			string(attrsJSON),
			nullableString(c.Status),
			nullableStringPtr(c.CableID),
			string(ipsJSON),
			nullableInt(c.UntaggedVLAN),
			string(vlansJSON),
			nullableStringPtr(c.LagID),
			now,
			now,
		)
	}

	query := `INSERT INTO components (id, device_id, category, name, type, label, description, attrs, status,
		cable_id, ip_addresses, untagged_vlan, tagged_vlans, lag_id, created_at, updated_at)
		VALUES ` + strings.Join(values, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintError(err) {
			return ErrComponentExists
		}
		return fmt.Errorf("inserting components: %w", err)
	}

	return nil
}

// Delete removes a component by ID.
func (r *SQLiteComponentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM components WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting component: %w", err)
	}
	return checkAffected(result, ErrComponentNotFound)
}

// HasCableTermination reports whether a cable terminates on the named
// component of the device.
func (r *SQLiteComponentRepository) HasCableTermination(ctx context.Context, deviceID, name string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cables
			WHERE (a_device_id = ? AND a_name = ?) OR (b_device_id = ? AND b_name = ?)
		)`,
		deviceID, name, deviceID, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking cable termination: %w", err)
	}
	return exists != 0, nil
}

// HasLAGMembers reports whether any component belongs to the given LAG.
func (r *SQLiteComponentRepository) HasLAGMembers(ctx context.Context, componentID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM components WHERE lag_id = ?)`,
		componentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking lag members: %w", err)
	}
	return exists != 0, nil
}

// SQLiteCableRepository implements CableRepository using SQLite.
type SQLiteCableRepository struct {
	db *sql.DB
}

// NewSQLiteCableRepository creates a new SQLite-backed cable repository.
func NewSQLiteCableRepository(db *sql.DB) *SQLiteCableRepository {
	return &SQLiteCableRepository{db: db}
}

// Create inserts a cable and stamps its ID on both terminating components.
func (r *SQLiteCableRepository) Create(ctx context.Context, c *Cable) error {
	if c.ID == "" {
		c.ID = "cab-" + uuid.NewString()[:8]
	}
	if c.Status == "" {
		c.Status = "connected"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cables (id, a_device_id, a_name, b_device_id, b_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ADeviceID, c.AName, c.BDeviceID, c.BName, c.Status,
		c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting cable: %w", err)
	}

	// Best effort: a cable may terminate on a component that has no row yet.
	_, err = tx.ExecContext(ctx, `
		UPDATE components SET cable_id = ?
		WHERE (device_id = ? AND name = ?) OR (device_id = ? AND name = ?)`,
		c.ID, c.ADeviceID, c.AName, c.BDeviceID, c.BName)
	if err != nil {
		return fmt.Errorf("marking cable terminations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes a cable by ID.
func (r *SQLiteCableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cables WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting cable: %w", err)
	}
	return checkAffected(result, ErrComponentNotFound)
}

func scanTemplate(scanner rowScanner) (*ComponentTemplate, error) {
	var t ComponentTemplate
	var typ, label, description sql.NullString
	var attrsJSON string

	err := scanner.Scan(
		&t.ID,
		&t.DeviceTypeID,
		&t.Category,
		&t.Name,
		&typ,
		&label,
		&description,
		&attrsJSON,
	)
	if err != nil {
		return nil, err
	}

	t.Type = typ.String
	t.Label = label.String
	t.Description = description.String

	if err := json.Unmarshal([]byte(attrsJSON), &t.Attrs); err != nil {
		return nil, fmt.Errorf("unmarshalling attrs: %w", err)
	}
	if len(t.Attrs) == 0 {
		t.Attrs = nil
	}

	return &t, nil
}

func scanComponent(scanner rowScanner) (*Component, error) {
	var c Component
	var typ, label, description, status, cableID, lagID sql.NullString
	var untaggedVLAN sql.NullInt64
	var attrsJSON, ipsJSON, vlansJSON, createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.DeviceID,
		&c.Category,
		&c.Name,
		&typ,
		&label,
		&description,
		&attrsJSON,
		&status,
		&cableID,
		&ipsJSON,
		&untaggedVLAN,
		&vlansJSON,
		&lagID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = typ.String
	c.Label = label.String
	c.Description = description.String
	c.Status = status.String
	if cableID.Valid {
		c.CableID = &cableID.String
	}
	if lagID.Valid {
		c.LagID = &lagID.String
	}
	if untaggedVLAN.Valid {
		v := int(untaggedVLAN.Int64)
		c.UntaggedVLAN = &v
	}

	if err := json.Unmarshal([]byte(attrsJSON), &c.Attrs); err != nil {
		return nil, fmt.Errorf("unmarshalling attrs: %w", err)
	}
	if len(c.Attrs) == 0 {
		c.Attrs = nil
	}
	if err := json.Unmarshal([]byte(ipsJSON), &c.IPAddresses); err != nil {
		return nil, fmt.Errorf("unmarshalling ip_addresses: %w", err)
	}
	if len(c.IPAddresses) == 0 {
		c.IPAddresses = nil
	}
	if err := json.Unmarshal([]byte(vlansJSON), &c.TaggedVLANs); err != nil {
		return nil, fmt.Errorf("unmarshalling tagged_vlans: %w", err)
	}
	if len(c.TaggedVLANs) == 0 {
		c.TaggedVLANs = nil
	}

	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &c, nil
}

// orEmptyAttrs substitutes an empty map for nil so JSON columns store "{}".
func orEmptyAttrs(a Attrs) Attrs {
	if a == nil {
		return Attrs{}
	}
	return a
}

// orEmptyInts substitutes an empty slice for nil so JSON columns store "[]".
func orEmptyInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
