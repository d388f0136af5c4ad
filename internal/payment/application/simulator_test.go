package application_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdom "github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/application"
	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
)

func created(t *testing.T, method orderdom.PaymentMethod, status orderdom.OrderStatus, total int64) []byte {
	t.Helper()
	raw, err := json.Marshal(orderdom.OrderCreated{OrderID: "o-1", Status: status, PaymentMethod: string(method), TotalAmount: total})
	require.NoError(t, err)
	return raw
}

func TestSimulatorSettles(t *testing.T) {
	sim := application.NewSimulator(logging.Discard(), 100_000)

	tests := []struct {
		name    string
		payload []byte
		ok      bool
		want    string
	}{
		{"cash skipped", created(t, orderdom.PaymentCash, orderdom.StatusPending, 10), false, ""},
		{"card approved", created(t, orderdom.PaymentCard, orderdom.StatusCreating, 100_000), true, domain.EventPaymentSucceeded},
		{"online declined over limit", created(t, orderdom.PaymentOnline, orderdom.StatusCreating, 100_001), true, domain.EventPaymentFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok, err := sim.Settle(tt.payload)
			require.NoError(t, err)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, s.EventType)
			assert.Equal(t, "o-1", s.OrderID)
			res, err := domain.Decode(s.Body)
			require.NoError(t, err)
			assert.Equal(t, "o-1", res.OrderID)
			assert.NotEmpty(t, res.Ref)
		})
	}
}

func TestSimulatorRejectsGarbage(t *testing.T) {
	_, _, err := application.NewSimulator(logging.Discard(), 0).Settle([]byte("{"))
	assert.Error(t, err)
}
