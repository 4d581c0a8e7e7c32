package inventory

import "context"

// Store abstracts the inventory collections so handlers never touch shared
// state directly. The in-memory implementation backs the default deployment;
// the Postgres implementation in internal/store/pg backs the durable one.
type Store interface {
	// Snapshots returns the fixed inventory rows in seed order.
	Snapshots(ctx context.Context) ([]Snapshot, error)

	// RecordMovement appends a transaction record with a fresh id and
	// returns the stored record. Fields are taken as given.
	RecordMovement(ctx context.Context, kind MovementKind, fields map[string]any) (Movement, error)
	// Movements lists one kind's records in insertion order.
	Movements(ctx context.Context, kind MovementKind) ([]Movement, error)

	CreateAsset(ctx context.Context, in AssetInput) (Asset, error)
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAsset(ctx context.Context, id string) (Asset, error)
	UpdateAsset(ctx context.Context, id string, upd AssetUpdate) (Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}
