package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"sitedesk.org/internal/audit"
	"sitedesk.org/internal/registry"
)

type createOrUpdateBlockRequest struct {
	AreaID int    `json:"areaId"`
	Name   string `json:"name"`
}

func (a *API) handleAreas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	areas, err := a.registry.ListAreas(r.Context())
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	if areas == nil {
		areas = []registry.Area{}
	}
	writeData(w, http.StatusOK, areas)
}

// handleAreaScoped serves /reviewer/geo/areas/{id}/blocks.
func (a *API) handleAreaScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/reviewer/geo/areas/")
	path = strings.TrimSuffix(path, "/")
	if !strings.HasSuffix(path, "/blocks") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	raw := strings.TrimSuffix(path, "/blocks")
	raw = strings.TrimSuffix(raw, "/")
	areaID, err := strconv.Atoi(raw)
	if err != nil || areaID <= 0 {
		writeError(w, r, http.StatusBadRequest, "area id must be a positive integer")
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	blocks, err := a.registry.ListBlocksByArea(r.Context(), areaID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []registry.Block{}
	}
	writeData(w, http.StatusOK, blocks)
}

func (a *API) handleCreateOrUpdateBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req createOrUpdateBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.AreaID <= 0 {
		writeError(w, r, http.StatusBadRequest, "areaId must be a positive integer")
		return
	}

	block, err := a.registry.CreateOrUpdateBlock(r.Context(), req.AreaID, req.Name)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "geo.block.upsert", map[string]any{
		"area_id":  req.AreaID,
		"block_id": block.ID,
		"name":     block.Name,
	})

	writeData(w, http.StatusOK, block)
}
