package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/wire"
)

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeItems(e, items) })
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeItem(e, it) })
}

// CreateItem adds a catalog item with a server-assigned ID.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	it, err := wire.DecodeItem(data)
	if err != nil {
		writeError(w, r, decodeErr(err))
		return
	}
	if err := it.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	it.ID = uuid.NewString()
	if err := h.items.Create(r.Context(), it); err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Item created", zap.String("item_id", it.ID), zap.String("name", it.Name))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeItem(e, it) })
}

// UpdateItem applies a partial update under the item's stock lock.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := wire.DecodeItemPatch(data)
	if err != nil {
		writeError(w, r, decodeErr(err))
		return
	}

	it, err := h.items.Update(r.Context(), r.PathValue("id"), func(it *item.Item) error {
		patch.Apply(it)
		return it.Validate()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeItem(e, it) })
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.items.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Item deleted", zap.String("item_id", id))
	writeMessage(w, "Item deleted successfully")
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}
