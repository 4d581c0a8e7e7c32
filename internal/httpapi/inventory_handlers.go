package httpapi

import (
	"net/http"
	"strings"

	"milstock.org/internal/auth"
	"milstock.org/internal/inventory"
	"milstock.org/internal/stream"
)

func (a *API) handleAssetsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assets, err := a.inv.ListAssets(r.Context())
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, assets)
	case http.MethodPost:
		var in inventory.AssetInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		asset, err := a.inv.CreateAsset(r.Context(), in)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, asset)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleAssetsSubtree dispatches everything under /api/assets/. The first
// path segment selects the resource: "inventory", a movement kind or
// "stream" are reserved, anything else is treated as an asset id.
func (a *API) handleAssetsSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		a.handleAssetsCollection(w, r)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	switch {
	case path == "inventory":
		a.handleInventory(w, r)
	case path == "stream":
		a.handleStream(w, r)
	default:
		if kind, ok := inventory.ParseKind(path); ok {
			a.handleMovements(w, r, kind)
			return
		}
		a.handleAssetByID(w, r, path)
	}
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	snapshots, err := a.inv.Snapshots(r.Context())
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (a *API) handleMovements(w http.ResponseWriter, r *http.Request, kind inventory.MovementKind) {
	switch r.Method {
	case http.MethodGet:
		records, err := a.inv.Movements(r.Context(), kind)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		payloads := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			payloads = append(payloads, rec.Payload())
		}
		writeJSON(w, http.StatusOK, payloads)
	case http.MethodPost:
		a.requireRole(auth.RoleLogistics, func(w http.ResponseWriter, r *http.Request) {
			a.recordMovement(w, r, kind)
		})(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) recordMovement(w http.ResponseWriter, r *http.Request, kind inventory.MovementKind) {
	var fields map[string]any
	if err := decodeLooseJSON(w, r, &fields); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.inv.RecordMovement(r.Context(), kind, fields)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}

	if a.stream != nil {
		a.stream.Publish(stream.MovementEvent{
			Kind:          string(rec.Kind),
			RecordID:      rec.ID,
			Base:          stringField(rec.Fields, "base"),
			EquipmentType: stringField(rec.Fields, "equipment_type"),
			Timestamp:     rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": string(kind) + " recorded",
		"data":    rec.Payload(),
	})
}

func (a *API) handleAssetByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		asset, err := a.inv.GetAsset(r.Context(), id)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, asset)
	case http.MethodPut:
		var upd inventory.AssetUpdate
		if err := decodeJSON(w, r, &upd); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		asset, err := a.inv.UpdateAsset(r.Context(), id, upd)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, asset)
	case http.MethodDelete:
		if err := a.inv.DeleteAsset(r.Context(), id); err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "asset deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
