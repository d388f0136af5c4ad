package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/restaurant-pos/internal/promotion/application"
	"github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/httpx"
)

type Handler struct {
	log       *slog.Logger
	validator *application.Validator
}

func NewHandler(log *slog.Logger, validator *application.Validator) *Handler {
	return &Handler{log: log, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/promotions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/validate", h.validate)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Get("/{id}/stats", h.stats)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	promos, err := h.validator.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, promos)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var p domain.Promotion
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	created, err := h.validator.Create(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.validator.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var p domain.Promotion
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	updated, err := h.validator.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.validator.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.validator.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

type validateReq struct {
	Code  string `json:"code"`
	Total int64  `json:"totalAmount"`
	Lines []struct {
		ProductID  string `json:"productId"`
		CategoryID string `json:"categoryId"`
	} `json:"items"`
	CustomerID      string `json:"customerId,omitempty"`
	MembershipLevel string `json:"membershipLevel,omitempty"`
}

type validateResp struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalAmount    int64  `json:"finalAmount"`
}

// validate is a dry run for the checkout screen; it never consumes usage.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	oc := domain.OrderContext{
		Amount:          req.Total,
		CustomerID:      req.CustomerID,
		MembershipLevel: req.MembershipLevel,
		At:              time.Now(),
	}
	for _, l := range req.Lines {
		oc.Lines = append(oc.Lines, domain.OrderLine{ProductID: l.ProductID, CategoryID: l.CategoryID})
	}
	res, err := h.validator.Validate(r.Context(), req.Code, oc)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, validateResp{
		Code:           res.Promotion.Code,
		Name:           res.Promotion.Name,
		DiscountAmount: res.DiscountAmount,
		FinalAmount:    res.FinalAmount,
	})
}
