// Package handler implements the HTTP API on net/http.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/domain/order"
	"github.com/xenking/inventory-offers/internal/wire"
)

// OrderSubmitter places orders.
type OrderSubmitter interface {
	Submit(ctx context.Context, reqs []order.LineRequest) (*order.Order, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Handler serves the catalog, offer and order endpoints.
type Handler struct {
	items   item.Repository
	offers  *offer.Service
	orders  OrderSubmitter
	history order.Repository

	maxBody int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	items item.Repository,
	offers *offer.Service,
	orders OrderSubmitter,
	history order.Repository,
) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		items:   items,
		offers:  offers,
		orders:  orders,
		history: history,
		maxBody: cfg.MaxBodyBytes,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("POST /api/items-management", h.CreateItem)
	mux.HandleFunc("POST /api/items-management/{id}", h.UpdateItem)
	mux.HandleFunc("DELETE /api/items-management/{id}", h.DeleteItem)

	mux.HandleFunc("GET /api/offers", h.ListActiveOffers)
	mux.HandleFunc("GET /api/offers/{id}", h.GetOffer)
	mux.HandleFunc("GET /api/offers-management", h.ListOffers)
	mux.HandleFunc("POST /api/offers-management", h.CreateOffer)
	mux.HandleFunc("POST /api/offers-management/{id}", h.UpdateOffer)
	mux.HandleFunc("DELETE /api/offers-management/{id}", h.DeleteOffer)

	mux.HandleFunc("POST /api/orders", h.SubmitOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
}

// badRequestError marks unreadable or malformed request bodies.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return "invalid request body: " + e.err.Error()
}

func (e *badRequestError) Unwrap() error {
	return e.err
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		return nil, &badRequestError{err: err}
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, code int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeError maps domain errors to API error responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody(err)
	if body.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, body.Code, func(e *jx.Encoder) { wire.EncodeError(e, body) })
}

func errorBody(err error) wire.Error {
	var (
		vErr *order.ValidationError
		uErr *offer.UnknownItemsError
		bErr *badRequestError
	)
	switch {
	case errors.As(err, &vErr):
		return wire.Error{Code: http.StatusBadRequest, Message: "order validation failed", Errors: vErr.Messages()}
	case errors.Is(err, order.ErrEmptyOrder):
		return wire.Error{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.As(err, &uErr):
		return wire.Error{Code: http.StatusBadRequest, Message: uErr.Error()}
	case errors.As(err, &bErr):
		return wire.Error{Code: http.StatusBadRequest, Message: bErr.Error()}
	case errors.Is(err, item.ErrInvalid), errors.Is(err, offer.ErrInvalid):
		return wire.Error{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, item.ErrNotFound), errors.Is(err, offer.ErrNotFound), errors.Is(err, order.ErrNotFound):
		return wire.Error{Code: http.StatusNotFound, Message: err.Error()}
	default:
		return wire.Error{Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}

func decodeErr(err error) error {
	return &badRequestError{err: err}
}
