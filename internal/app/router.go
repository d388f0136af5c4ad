package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	cataloghttp "github.com/dmehra2102/restaurant-pos/internal/catalog/infrastructure/http"
	invhttp "github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/http"
	loyaltyhttp "github.com/dmehra2102/restaurant-pos/internal/loyalty/infrastructure/http"
	orderhttp "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/http"
	promohttp "github.com/dmehra2102/restaurant-pos/internal/promotion/infrastructure/http"
	"github.com/dmehra2102/restaurant-pos/pkg/httpx"
	"github.com/dmehra2102/restaurant-pos/pkg/metrics"
)

// Router mounts the JSON API under /api/v1 behind auth, plus /health and
// /metrics. display, when non-nil, is served at /ws.
func (a *App) Router(auth *httpx.Authenticator, display http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if display != nil {
		r.Method(http.MethodGet, "/ws", display)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)
		orderhttp.NewHandler(a.Log, a.Orders).Register(r)
		invhttp.NewHandler(a.Log, a.Inventory).Register(r)
		promohttp.NewHandler(a.Log, a.Promotions).Register(r)
		loyaltyhttp.NewHandler(a.Log, a.Loyalty).Register(r)
		cataloghttp.NewHandler(a.Log, a.Catalog).Register(r)
	})
	return r
}
