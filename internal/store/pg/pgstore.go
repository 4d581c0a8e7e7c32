// Package pg implements the inventory and identity stores on PostgreSQL
// through database/sql with the pgx driver.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"milstock.org/internal/auth"
	"milstock.org/internal/ids"
	"milstock.org/internal/inventory"
)

const pgErrUniqueViolation = "23505"

// Store holds the shared connection pool.
type Store struct {
	db *sql.DB
}

var _ inventory.Store = (*Store)(nil)

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection (used by tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

// Snapshots returns the seeded inventory rows in seed order.
func (s *Store) Snapshots(ctx context.Context) ([]inventory.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		select base, equipment_type, opening_balance, closing_balance, assigned, expended, net_movement
		from snapshots
		order by seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []inventory.Snapshot
	for rows.Next() {
		var row inventory.Snapshot
		if err := rows.Scan(&row.Base, &row.EquipmentType, &row.OpeningBalance, &row.ClosingBalance, &row.Assigned, &row.Expended, &row.NetMovement); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// RecordMovement appends one transaction record with the caller's fields
// stored as jsonb.
func (s *Store) RecordMovement(ctx context.Context, kind inventory.MovementKind, fields map[string]any) (inventory.Movement, error) {
	if _, ok := inventory.ParseKind(string(kind)); !ok {
		return inventory.Movement{}, inventory.ErrInvalidInput
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	payload := []byte("{}")
	if len(copied) > 0 {
		data, err := json.Marshal(copied)
		if err != nil {
			return inventory.Movement{}, fmt.Errorf("marshal fields: %w", err)
		}
		payload = data
	}

	rec := inventory.Movement{
		ID:     ids.New(),
		Kind:   kind,
		Fields: copied,
	}
	err := s.db.QueryRowContext(ctx, `
		insert into movements (id, kind, fields)
		values ($1, $2, $3)
		returning created_at
	`, rec.ID, string(kind), payload).Scan(&rec.CreatedAt)
	if err != nil {
		return inventory.Movement{}, err
	}
	return rec, nil
}

// Movements lists one kind's records in insertion order.
func (s *Store) Movements(ctx context.Context, kind inventory.MovementKind) ([]inventory.Movement, error) {
	if _, ok := inventory.ParseKind(string(kind)); !ok {
		return nil, inventory.ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, kind, fields, created_at
		from movements
		where kind = $1
		order by id
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []inventory.Movement
	for rows.Next() {
		var (
			rec inventory.Movement
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &raw, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Fields = map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Fields); err != nil {
				return nil, fmt.Errorf("decode fields: %w", err)
			}
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *Store) CreateAsset(ctx context.Context, in inventory.AssetInput) (inventory.Asset, error) {
	if err := in.Validate(); err != nil {
		return inventory.Asset{}, err
	}
	asset := inventory.Asset{
		ID:          ids.New(),
		Name:        in.Name,
		Type:        in.Type,
		Status:      in.Status,
		Location:    in.Location,
		Description: in.Description,
	}
	err := s.db.QueryRowContext(ctx, `
		insert into assets (id, name, type, status, location, description)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, asset.ID, asset.Name, asset.Type, asset.Status, asset.Location, asset.Description).Scan(&asset.CreatedAt)
	if err != nil {
		return inventory.Asset{}, err
	}
	return asset, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]inventory.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, type, status, location, description, created_at
		from assets
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []inventory.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, asset)
	}
	return res, rows.Err()
}

func (s *Store) GetAsset(ctx context.Context, id string) (inventory.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, type, status, location, description, created_at
		from assets
		where id = $1
	`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Asset{}, inventory.ErrNotFound
	}
	if err != nil {
		return inventory.Asset{}, err
	}
	return asset, nil
}

// UpdateAsset applies a partial merge inside a transaction so the
// read-merge-write cycle observes a consistent row.
func (s *Store) UpdateAsset(ctx context.Context, id string, upd inventory.AssetUpdate) (inventory.Asset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.Asset{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		select id, name, type, status, location, description, created_at
		from assets
		where id = $1
		for update
	`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Asset{}, inventory.ErrNotFound
	}
	if err != nil {
		return inventory.Asset{}, err
	}

	updated, err := upd.Apply(asset)
	if err != nil {
		return inventory.Asset{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		update assets
		set name=$2, type=$3, status=$4, location=$5, description=$6
		where id=$1
	`, updated.ID, updated.Name, updated.Type, updated.Status, updated.Location, updated.Description); err != nil {
		return inventory.Asset{}, err
	}
	if err := tx.Commit(); err != nil {
		return inventory.Asset{}, err
	}
	return updated, nil
}

func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from assets where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (inventory.Asset, error) {
	var (
		asset inventory.Asset
		desc  sql.NullString
	)
	if err := row.Scan(&asset.ID, &asset.Name, &asset.Type, &asset.Status, &asset.Location, &desc, &asset.CreatedAt); err != nil {
		return inventory.Asset{}, err
	}
	asset.Description = desc.String
	return asset, nil
}

// Identities returns the identity store backed by the same pool.
func (s *Store) Identities() *IdentityStore {
	return &IdentityStore{db: s.db}
}

// IdentityStore implements auth.IdentityStore on PostgreSQL.
type IdentityStore struct {
	db *sql.DB
}

var _ auth.IdentityStore = (*IdentityStore)(nil)

func (s *IdentityStore) Create(ctx context.Context, identity *auth.Identity) error {
	if identity.ID == "" {
		identity.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into identities (id, email, role, password_hash)
		values ($1, $2, $3, $4)
		returning created_at
	`, identity.ID, identity.Email, identity.Role, identity.PasswordHash).Scan(&identity.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *IdentityStore) Find(ctx context.Context, id string) (auth.Identity, error) {
	return s.findBy(ctx, "id", id)
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (auth.Identity, error) {
	return s.findBy(ctx, "email", email)
}

func (s *IdentityStore) findBy(ctx context.Context, column, value string) (auth.Identity, error) {
	var identity auth.Identity
	err := s.db.QueryRowContext(ctx, `
		select id, email, role, password_hash, created_at
		from identities
		where `+column+` = $1
	`, value).Scan(&identity.ID, &identity.Email, &identity.Role, &identity.PasswordHash, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, err
	}
	return identity, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
