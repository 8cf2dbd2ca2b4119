package handler

import (
	"context"
	"net/http"

	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/model"
)

// PantryService はパントリーハンドラーが必要とするバックエンド操作のインターフェース。
type PantryService interface {
	ListPantryItems(ctx context.Context, skip, limit int) ([]model.PantryItem, error)
	GetPantryItem(ctx context.Context, id int64) (*model.PantryItem, error)
	CreatePantryItem(ctx context.Context, in model.PantryItemCreate) (*model.PantryItem, error)
	UpdatePantryItem(ctx context.Context, id int64, in model.PantryItemUpdate) (*model.PantryItem, error)
	DeletePantryItem(ctx context.Context, id int64) error
}

// PantryHandler はパントリー食材のJSON APIハンドラー。
// バックエンドへの転送のみを行い、データは保持しない。
type PantryHandler struct {
	service PantryService
}

// NewPantryHandler はPantryHandlerを生成する。
func NewPantryHandler(service PantryService) *PantryHandler {
	return &PantryHandler{service: service}
}

// List はパントリー食材の一覧を返す。
// GET /api/pantry/items?skip=0&limit=100
func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPantryItems(r.Context(), queryInt(r, "skip"), queryInt(r, "limit"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if items == nil {
		items = []model.PantryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Get はパントリー食材を1件返す。
// GET /api/pantry/items/{id}
func (h *PantryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	item, err := h.service.GetPantryItem(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create はパントリー食材を登録する。
// POST /api/pantry/items
func (h *PantryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.PantryItemCreate
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	item, err := h.service.CreatePantryItem(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update はパントリー食材を部分更新する。
// PUT /api/pantry/items/{id}
func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var in model.PantryItemUpdate
	if err := decodeJSON(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	item, err := h.service.UpdatePantryItem(r.Context(), id, in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete はパントリー食材を削除する。
// DELETE /api/pantry/items/{id}
func (h *PantryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.service.DeletePantryItem(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
