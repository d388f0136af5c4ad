package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/stock", h.listStock)
	r.Post("/stock/adjustments", h.adjust)
	r.Put("/stock/{type}/{id}", h.putLevel)
	r.Get("/stock/{type}/{id}/transactions", h.transactions)

	r.Get("/alerts", h.listAlerts)
	r.Post("/alerts/{id}/read", h.markRead)

	r.Get("/recipes/{productId}", h.getRecipe)
	r.Put("/recipes/{productId}/{ingredientId}", h.putRecipe)
	r.Delete("/recipes/{productId}/{ingredientId}", h.deleteRecipe)
}

func stockKey(r *http.Request) (domain.StockKey, error) {
	key := domain.StockKey{EntityType: domain.EntityType(chi.URLParam(r, "type")), EntityID: chi.URLParam(r, "id")}
	if !key.EntityType.Valid() {
		return domain.StockKey{}, apperr.Invalid("type", "unknown entity type %q", key.EntityType)
	}
	return key, nil
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := application.StockFilter{
		EntityType: domain.EntityType(q.Get("type")),
		LowOnly:    q.Get("low") == "true",
	}
	if filter.EntityType != "" && !filter.EntityType.Valid() {
		httpx.WriteError(w, h.log, apperr.Invalid("type", "unknown entity type %q", filter.EntityType))
		return
	}
	levels, err := h.service.Snapshot(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, levels)
}

type adjustReq struct {
	EntityType domain.EntityType `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Quantity   decimal.Decimal   `json:"quantity"`
	Type       domain.TxType     `json:"type"`
	Reason     string            `json:"reason"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	res, err := h.service.AdjustStock(r.Context(), application.AdjustStockInput{
		Key:    domain.StockKey{EntityType: req.EntityType, EntityID: req.EntityID},
		Delta:  req.Quantity,
		Type:   req.Type,
		Reason: req.Reason,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type levelReq struct {
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	CurrentStock *decimal.Decimal `json:"currentStock,omitempty"`
	MinStock     *decimal.Decimal `json:"minStock,omitempty"`
	MaxStock     *decimal.Decimal `json:"maxStock,omitempty"`
	Active       *bool            `json:"isActive,omitempty"`
}

// putLevel creates the row when it does not exist yet; otherwise it only
// updates thresholds and metadata. The level itself moves via adjustments.
func (h *Handler) putLevel(w http.ResponseWriter, r *http.Request) {
	key, err := stockKey(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	var req levelReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	_, err = h.service.GetStock(r.Context(), key)
	switch {
	case apperr.Is(err, apperr.KindNotFound):
		level := domain.StockLevel{
			EntityType: key.EntityType,
			EntityID:   key.EntityID,
			Name:       req.Name,
			Unit:       req.Unit,
			Active:     req.Active == nil || *req.Active,
		}
		if req.MinStock != nil {
			level.Min = *req.MinStock
		}
		if req.MaxStock != nil {
			level.Max = *req.MaxStock
		}
		if req.CurrentStock != nil {
			level.Current = *req.CurrentStock
		}
		created, err := h.service.CreateLevel(r.Context(), level)
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, created)
	case err != nil:
		httpx.WriteError(w, h.log, err)
	default:
		if req.CurrentStock != nil {
			httpx.WriteError(w, h.log, apperr.Invalid("currentStock", "use an adjustment to change the level"))
			return
		}
		updated, err := h.service.UpdateThresholds(r.Context(), key, application.Thresholds{
			Min:    req.MinStock,
			Max:    req.MaxStock,
			Active: req.Active,
			Name:   req.Name,
			Unit:   req.Unit,
		})
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, updated)
	}
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	key, err := stockKey(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.WriteError(w, h.log, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	txs, err := h.service.Transactions(r.Context(), key, limit)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.UnreadAlerts(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, alerts)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.MarkAlertRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) getRecipe(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.Recipe(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lines)
}

type recipeReq struct {
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
	Unit            string          `json:"unit,omitempty"`
	Position        int             `json:"position,omitempty"`
}

func (h *Handler) putRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	rec, err := h.service.PutRecipe(r.Context(), domain.Recipe{
		ProductID:       chi.URLParam(r, "productId"),
		IngredientID:    chi.URLParam(r, "ingredientId"),
		QuantityPerUnit: req.QuantityPerUnit,
		Unit:            req.Unit,
		Position:        req.Position,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecipe(r.Context(), chi.URLParam(r, "productId"), chi.URLParam(r, "ingredientId")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
