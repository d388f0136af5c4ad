package application_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

var beans = domain.IngredientKey("beans")

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "100", "10", "200")
	f.pub.Reset()

	tests := []struct {
		name    string
		in      application.AdjustStockInput
		kind    apperr.Kind
		balance string
	}{
		{"purchase", application.AdjustStockInput{Key: beans, Delta: dec("50"), Type: domain.TxPurchase, Reason: "delivery"}, apperr.KindUnknown, "150"},
		{"negative adjustment", application.AdjustStockInput{Key: beans, Delta: dec("-20"), Reason: "spillage"}, apperr.KindUnknown, "130"},
		{"zero delta", application.AdjustStockInput{Key: beans, Delta: dec("0"), Reason: "noop"}, apperr.KindValidation, "130"},
		{"purchase with negative delta", application.AdjustStockInput{Key: beans, Delta: dec("-1"), Type: domain.TxPurchase, Reason: "x"}, apperr.KindValidation, "130"},
		{"missing reason", application.AdjustStockInput{Key: beans, Delta: dec("1")}, apperr.KindValidation, "130"},
		{"below zero", application.AdjustStockInput{Key: beans, Delta: dec("-131"), Reason: "count"}, apperr.KindInsufficientStock, "130"},
		{"unknown row", application.AdjustStockInput{Key: domain.IngredientKey("saffron"), Delta: dec("1"), Reason: "x"}, apperr.KindNotFound, "130"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.AdjustStock(f.ctx, tt.in)
			if tt.kind == apperr.KindUnknown {
				require.NoError(t, err)
				assert.True(t, dec(tt.balance).Equal(res.Level.Current))
				assert.True(t, dec(tt.balance).Equal(res.Transaction.BalanceAfter))
				assert.Equal(t, cashier.String(), res.Transaction.Actor)
			} else {
				assert.Equal(t, tt.kind, apperr.KindOf(err))
			}
			assert.True(t, dec(tt.balance).Equal(f.level(t, beans)))
		})
	}

	assert.Len(t, f.pub.OfType(broadcast.TypeStockUpdated), 2)
}

func TestAdjustBelowZeroReportsAvailable(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "5", "0", "10")

	_, err := f.svc.AdjustStock(f.ctx, application.AdjustStockInput{Key: beans, Delta: dec("-6"), Reason: "count"})
	var insufficient *apperr.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, dec("5").Equal(insufficient.Available))
	assert.True(t, dec("6").Equal(insufficient.Requested))
}

func TestLowStockAlertEscalatesInPlace(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "100", "50", "200")
	f.pub.Reset()

	res, err := f.svc.AdjustStock(f.ctx, application.AdjustStockInput{Key: beans, Delta: dec("-60"), Reason: "count"})
	require.NoError(t, err)
	require.NotNil(t, res.Alert)
	assert.Equal(t, domain.AlertLowStock, res.Alert.Type)
	first := res.Alert.ID

	// A further drop that stays low must not raise a second alert.
	res, err = f.svc.AdjustStock(f.ctx, application.AdjustStockInput{Key: beans, Delta: dec("-10"), Reason: "count"})
	require.NoError(t, err)
	require.NotNil(t, res.Alert)
	assert.False(t, res.Alert.Raised)

	res, err = f.svc.AdjustStock(f.ctx, application.AdjustStockInput{Key: beans, Delta: dec("-30"), Reason: "count"})
	require.NoError(t, err)
	require.NotNil(t, res.Alert)
	assert.Equal(t, first, res.Alert.ID)
	assert.Equal(t, domain.AlertOutOfStock, res.Alert.Type)

	unread, err := f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, domain.AlertOutOfStock, unread[0].Type)

	raised := f.pub.OfType(broadcast.TypeAlertRaised)
	require.Len(t, raised, 2)
	assert.Equal(t, "out_of_stock", raised[1].Payload.(broadcast.AlertPayload).Type)
}

func TestAlertResolvesWhenStockRecovers(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "40", "50", "200")

	unread, err := f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	res, err := f.svc.AdjustStock(f.ctx, application.AdjustStockInput{Key: beans, Delta: dec("100"), Type: domain.TxPurchase, Reason: "delivery"})
	require.NoError(t, err)
	assert.Nil(t, res.Alert)

	unread, err = f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// Dropping again opens a fresh alert.
	res, err = f.svc.AdjustStock(f.ctx, application.AdjustStockInput{Key: beans, Delta: dec("-100"), Reason: "count"})
	require.NoError(t, err)
	require.NotNil(t, res.Alert)
	assert.True(t, res.Alert.Raised)
}

func TestMarkAlertRead(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "0", "5", "10")

	unread, err := f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	a, err := f.svc.MarkAlertRead(f.ctx, unread[0].ID)
	require.NoError(t, err)
	assert.True(t, a.Read)

	unread, err = f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)

	_, err = f.svc.MarkAlertRead(f.ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateThresholds(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "30", "10", "100")
	f.pub.Reset()

	inactive := false
	level, err := f.svc.UpdateThresholds(f.ctx, beans, application.Thresholds{Min: decp("40"), Max: decp("100"), Active: &inactive})
	require.NoError(t, err)
	assert.False(t, level.Active)
	assert.True(t, dec("30").Equal(level.Current))
	assert.Len(t, f.pub.OfType(broadcast.TypeStockUpdated), 1)
	assert.Len(t, f.pub.OfType(broadcast.TypeAlertRaised), 1)

	unread, err := f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	_, err = f.svc.UpdateThresholds(f.ctx, beans, application.Thresholds{Min: decp("50"), Max: decp("10")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateThresholdsKeepsOmittedFields(t *testing.T) {
	f := newFixture(t)
	f.stock(t, beans, "5", "10", "100")

	active := true
	level, err := f.svc.UpdateThresholds(f.ctx, beans, application.Thresholds{Active: &active})
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(level.Min))
	assert.True(t, dec("100").Equal(level.Max))

	unread, err := f.svc.UnreadAlerts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	level, err = f.svc.UpdateThresholds(f.ctx, beans, application.Thresholds{Max: decp("500")})
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(level.Min))
	assert.True(t, dec("500").Equal(level.Max))
}

func TestThresholdChangesRaiseAlerts(t *testing.T) {
	tests := []struct {
		name   string
		run    func(t *testing.T, f *fixture)
		alerts int
	}{
		{"created empty", func(t *testing.T, f *fixture) {
			f.stock(t, beans, "0", "50", "100")
		}, 1},
		{"created healthy", func(t *testing.T, f *fixture) {
			f.stock(t, beans, "80", "50", "100")
		}, 0},
		{"min raised above level", func(t *testing.T, f *fixture) {
			f.stock(t, beans, "100", "10", "500")
			_, err := f.svc.UpdateThresholds(f.ctx, beans, application.Thresholds{Min: decp("200")})
			require.NoError(t, err)
		}, 1},
		{"min lowered stays healthy", func(t *testing.T, f *fixture) {
			f.stock(t, beans, "100", "10", "500")
			_, err := f.svc.UpdateThresholds(f.ctx, beans, application.Thresholds{Min: decp("5")})
			require.NoError(t, err)
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.run(t, f)

			assert.Len(t, f.pub.OfType(broadcast.TypeAlertRaised), tt.alerts)
			unread, err := f.svc.UnreadAlerts(f.ctx)
			require.NoError(t, err)
			assert.Len(t, unread, tt.alerts)
		})
	}
}

func TestInactiveRowIsSkippedByDeduction(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "100", "0", "100")
	f.recipe(t, "latte", "milk", "200")

	inactive := false
	_, err := f.svc.UpdateThresholds(f.ctx, milk, application.Thresholds{Active: &inactive})
	require.NoError(t, err)

	res, err := f.svc.Engine.Deduct(f.ctx, "order-1", []domain.SaleLine{{ProductID: "latte", Quantity: 1}}, cashier)
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.True(t, dec("100").Equal(f.level(t, milk)))
}

func TestRecipeCRUD(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "100", "0", "100")

	_, err := f.svc.PutRecipe(f.ctx, domain.Recipe{ProductID: "latte", IngredientID: "oat-milk", QuantityPerUnit: dec("1")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.PutRecipe(f.ctx, domain.Recipe{ProductID: "latte", IngredientID: "milk", QuantityPerUnit: dec("0")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	rec, err := f.svc.PutRecipe(f.ctx, domain.Recipe{ProductID: "latte", IngredientID: "milk", QuantityPerUnit: dec("180")})
	require.NoError(t, err)
	assert.Equal(t, "unit", rec.Unit)

	_, err = f.svc.PutRecipe(f.ctx, domain.Recipe{ProductID: "latte", IngredientID: "milk", QuantityPerUnit: dec("200"), Unit: "ml"})
	require.NoError(t, err)

	lines, err := f.svc.Recipe(f.ctx, "latte")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, dec("200").Equal(lines[0].QuantityPerUnit))

	require.NoError(t, f.svc.DeleteRecipe(f.ctx, "latte", "milk"))
	lines, err = f.svc.Recipe(f.ctx, "latte")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSnapshotLowOnly(t *testing.T) {
	f := newFixture(t)
	f.stock(t, milk, "100", "10", "200")
	f.stock(t, beans, "5", "10", "200")
	f.stock(t, domain.ProductKey("cookie"), "3", "5", "20")

	all, err := f.svc.Snapshot(f.ctx, application.StockFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	low, err := f.svc.Snapshot(f.ctx, application.StockFilter{LowOnly: true, EntityType: domain.EntityIngredient})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, beans, low[0].Key())
}
