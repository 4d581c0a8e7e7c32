package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("inventory: not found")
	ErrInvalidInput = errors.New("inventory: invalid input")
)

// Snapshot is one fixed inventory row for a base and equipment type.
// Snapshots are seeded once and never transition out of "created".
type Snapshot struct {
	Base           string `json:"base"`
	EquipmentType  string `json:"equipment_type"`
	OpeningBalance int64  `json:"opening_balance"`
	ClosingBalance int64  `json:"closing_balance"`
	Assigned       int64  `json:"assigned"`
	Expended       int64  `json:"expended"`
	NetMovement    int64  `json:"net_movement"`
}

// MovementKind enumerates the append-only transaction collections.
type MovementKind string

const (
	KindPurchase    MovementKind = "purchase"
	KindTransfer    MovementKind = "transfer"
	KindAssignment  MovementKind = "assignment"
	KindExpenditure MovementKind = "expenditure"
)

// Kinds lists every movement kind in routing order.
var Kinds = []MovementKind{KindPurchase, KindTransfer, KindAssignment, KindExpenditure}

// ParseKind maps a path segment to a movement kind.
func ParseKind(raw string) (MovementKind, bool) {
	for _, k := range Kinds {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// Movement is an append-only transaction record: caller-supplied fields plus
// a server-assigned id. Records are never mutated or deleted.
type Movement struct {
	ID        string         `json:"id"`
	Kind      MovementKind   `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
	Fields    map[string]any `json:"fields"`
}

// Payload flattens the record for API responses: the caller's fields merged
// with the server-assigned attributes. Server attributes win on collision.
func (m Movement) Payload() map[string]any {
	out := make(map[string]any, len(m.Fields)+3)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["id"] = m.ID
	out["kind"] = string(m.Kind)
	out["created_at"] = m.CreatedAt.UTC().Format(time.RFC3339Nano)
	return out
}

// Asset statuses.
const (
	StatusOperational    = "operational"
	StatusMaintenance    = "maintenance"
	StatusDeployed       = "deployed"
	StatusDecommissioned = "decommissioned"
)

func validStatus(s string) bool {
	switch s {
	case StatusOperational, StatusMaintenance, StatusDeployed, StatusDecommissioned:
		return true
	}
	return false
}

// Asset is a managed equipment entity.
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssetInput carries the caller-supplied fields for asset creation.
type AssetInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Validate trims the input and enforces required fields and the status enum.
func (in *AssetInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Status = strings.TrimSpace(strings.ToLower(in.Status))
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" || in.Type == "" || in.Status == "" || in.Location == "" {
		return fmt.Errorf("%w: name, type, status and location are required", ErrInvalidInput)
	}
	if !validStatus(in.Status) {
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

// AssetUpdate is a partial merge; nil fields are left unchanged.
type AssetUpdate struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Status      *string `json:"status"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// Apply merges the update into the asset, re-validating enumerated and
// required fields.
func (u AssetUpdate) Apply(asset Asset) (Asset, error) {
	set := func(dst *string, src *string, name string, required bool) error {
		if src == nil {
			return nil
		}
		v := strings.TrimSpace(*src)
		if required && v == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, name)
		}
		*dst = v
		return nil
	}
	if err := set(&asset.Name, u.Name, "name", true); err != nil {
		return Asset{}, err
	}
	if err := set(&asset.Type, u.Type, "type", true); err != nil {
		return Asset{}, err
	}
	if err := set(&asset.Location, u.Location, "location", true); err != nil {
		return Asset{}, err
	}
	if err := set(&asset.Description, u.Description, "description", false); err != nil {
		return Asset{}, err
	}
	if u.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*u.Status))
		if !validStatus(status) {
			return Asset{}, fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
		}
		asset.Status = status
	}
	return asset, nil
}
