package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Invalid("items", "empty"), http.StatusBadRequest},
		{"not found", apperr.NotFound("order", "o-1"), http.StatusNotFound},
		{"transition", &apperr.InvalidTransitionError{From: "COMPLETED", To: "PENDING"}, http.StatusConflict},
		{"stock", &apperr.InsufficientStockError{EntityType: "ingredient", EntityID: "milk"}, http.StatusConflict},
		{"conflict wrapped", fmt.Errorf("update: %w", apperr.Conflict("order", "o-1")), http.StatusConflict},
		{"promotion", &apperr.PromotionIneligibleError{Code: "X", Reason: apperr.ReasonExpired}, http.StatusUnprocessableEntity},
		{"redemption", &apperr.RedemptionError{}, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, logging.Discard(), &apperr.PromotionIneligibleError{Code: "SUMMER10", Reason: apperr.ReasonMinOrderNotMet})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "promotion_ineligible", body["error"].Kind)
	assert.Equal(t, "min_order_not_met", body["error"].Reason)

	rec = httptest.NewRecorder()
	WriteError(rec, logging.Discard(), errors.New("pq: secret detail"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	err := DecodeJSON(r, &dst)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAuthenticator(t *testing.T) {
	var got actor.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = actor.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid token", func(t *testing.T) {
		h := NewAuthenticator(logging.Discard(), "s3cret").Middleware(next)
		tok, err := IssueToken("s3cret", actor.Actor{ID: "kiosk-7", Kind: actor.KindCustomer}, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, actor.Actor{ID: "kiosk-7", Kind: actor.KindCustomer}, got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		h := NewAuthenticator(logging.Discard(), "s3cret").Middleware(next)
		tok, err := IssueToken("other", actor.Actor{ID: "x", Kind: actor.KindStaff}, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		h := NewAuthenticator(logging.Discard(), "s3cret").Middleware(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("dev mode header", func(t *testing.T) {
		h := NewAuthenticator(logging.Discard(), "").Middleware(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Actor-ID", "cashier-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, actor.Actor{ID: "cashier-1", Kind: actor.KindStaff}, got)
	})
}
