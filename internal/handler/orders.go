package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/inventory-offers/internal/wire"
)

// SubmitOrder validates, prices and commits an order. Every failed line is
// reported in the error body's "errors" list.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reqs, err := wire.DecodeOrderRequest(data)
	if err != nil {
		writeError(w, r, decodeErr(err))
		return
	}

	o, err := h.orders.Submit(r.Context(), reqs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.history.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrders(e, orders) })
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.history.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
}
