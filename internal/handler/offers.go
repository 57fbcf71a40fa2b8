package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/inventory-offers/internal/wire"
)

// ListActiveOffers returns offers valid right now.
func (h *Handler) ListActiveOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.Active(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOffers(e, offers) })
}

// ListOffers returns every offer, including inactive and expired ones.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOffers(e, offers) })
}

func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	o, err := h.offers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOffer(e, o) })
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := wire.DecodeOffer(data)
	if err != nil {
		writeError(w, r, decodeErr(err))
		return
	}

	o.ID = ""
	if err := h.offers.Create(r.Context(), o); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOffer(e, o) })
}

func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := wire.DecodeOfferPatch(data)
	if err != nil {
		writeError(w, r, decodeErr(err))
		return
	}

	o, err := h.offers.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOffer(e, o) })
}

func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.offers.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Offer deleted successfully")
}
