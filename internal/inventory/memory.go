package inventory

import (
	"context"
	"sync"
	"time"

	"milstock.org/internal/ids"
)

// SeedSnapshots are the inventory rows every fresh deployment starts with.
// The Postgres variant loads the same rows through a seed migration.
var SeedSnapshots = []Snapshot{
	{Base: "base-alpha", EquipmentType: "rifle", OpeningBalance: 1200, ClosingBalance: 1150, Assigned: 30, Expended: 20, NetMovement: -50},
	{Base: "base-alpha", EquipmentType: "ammunition", OpeningBalance: 50000, ClosingBalance: 47500, Assigned: 1500, Expended: 1000, NetMovement: -2500},
	{Base: "base-bravo", EquipmentType: "vehicle", OpeningBalance: 85, ClosingBalance: 90, Assigned: 4, Expended: 0, NetMovement: 5},
	{Base: "base-bravo", EquipmentType: "rifle", OpeningBalance: 700, ClosingBalance: 720, Assigned: 15, Expended: 5, NetMovement: 20},
}

// InMemory implements Store with in-process concurrency safety. All
// collections reset on restart.
type InMemory struct {
	mu        sync.RWMutex
	snapshots []Snapshot
	movements map[MovementKind][]Movement
	assets    map[string]Asset
	order     []string // asset ids in insertion order
}

// NewInMemory creates a store pre-seeded with SeedSnapshots.
func NewInMemory() *InMemory {
	s := &InMemory{
		snapshots: make([]Snapshot, len(SeedSnapshots)),
		movements: make(map[MovementKind][]Movement, len(Kinds)),
		assets:    make(map[string]Asset),
	}
	copy(s.snapshots, SeedSnapshots)
	return s
}

func (s *InMemory) Snapshots(ctx context.Context) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out, nil
}

func (s *InMemory) RecordMovement(ctx context.Context, kind MovementKind, fields map[string]any) (Movement, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return Movement{}, ErrInvalidInput
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Movement{
		ID:        ids.New(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Fields:    copied,
	}
	s.movements[kind] = append(s.movements[kind], rec)
	return rec, nil
}

func (s *InMemory) Movements(ctx context.Context, kind MovementKind) ([]Movement, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return nil, ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Movement, len(s.movements[kind]))
	copy(out, s.movements[kind])
	return out, nil
}

func (s *InMemory) CreateAsset(ctx context.Context, in AssetInput) (Asset, error) {
	if err := in.Validate(); err != nil {
		return Asset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	asset := Asset{
		ID:          ids.New(),
		Name:        in.Name,
		Type:        in.Type,
		Status:      in.Status,
		Location:    in.Location,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	s.assets[asset.ID] = asset
	s.order = append(s.order, asset.ID)
	return asset, nil
}

func (s *InMemory) ListAssets(ctx context.Context) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Asset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.assets[id])
	}
	return out, nil
}

func (s *InMemory) GetAsset(ctx context.Context, id string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return asset, nil
}

func (s *InMemory) UpdateAsset(ctx context.Context, id string, upd AssetUpdate) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	updated, err := upd.Apply(asset)
	if err != nil {
		return Asset{}, err
	}
	s.assets[id] = updated
	return updated, nil
}

func (s *InMemory) DeleteAsset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return ErrNotFound
	}
	delete(s.assets, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

var _ Store = (*InMemory)(nil)
