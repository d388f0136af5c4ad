package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/restaurant-pos/internal/loyalty/application"
	"github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/httpx"
)

type Handler struct {
	log        *slog.Logger
	accountant *application.Accountant
}

func NewHandler(log *slog.Logger, accountant *application.Accountant) *Handler {
	return &Handler{log: log, accountant: accountant}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/customers", h.create)
	r.Get("/customers/{id}", h.get)
	r.Get("/customers/{id}/transactions", h.transactions)
	r.Get("/customers/{id}/reconciliation", h.reconcile)
	r.Post("/customers/{id}/membership", h.membership)
}

type createReq struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	LoyaltyPoints int64  `json:"loyaltyPoints,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.accountant.CreateCustomer(r.Context(), domain.Customer{
		ID:            req.ID,
		Name:          req.Name,
		Phone:         req.Phone,
		LoyaltyPoints: req.LoyaltyPoints,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.accountant.Customer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.accountant.Transactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.accountant.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

type membershipReq struct {
	Level  string `json:"membershipLevel"`
	Locked bool   `json:"locked"`
}

// membership pins a tier (locked) or releases the pin and recalculates.
func (h *Handler) membership(w http.ResponseWriter, r *http.Request) {
	var req membershipReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.accountant.SetMembershipOverride(r.Context(), chi.URLParam(r, "id"), req.Level, req.Locked)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}
