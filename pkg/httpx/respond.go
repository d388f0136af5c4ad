// Package httpx holds the JSON plumbing shared by the chi adapters.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTransition, apperr.KindInsufficientStock, apperr.KindConcurrencyConflict:
		return http.StatusConflict
	case apperr.KindPromotionIneligible, apperr.KindRedemption:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"error": {...}}. Unknown errors are logged and
// their message is hidden.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := StatusOf(err)
	body := errorBody{Kind: apperr.KindOf(err).String(), Message: err.Error()}

	var promo *apperr.PromotionIneligibleError
	if errors.As(err, &promo) {
		body.Reason = string(promo.Reason)
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
		body.Message = http.StatusText(status)
	}
	WriteJSON(w, status, map[string]errorBody{"error": body})
}

// DecodeJSON decodes the request body strictly into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("body", "%s", fmt.Sprint(err))
	}
	return nil
}
