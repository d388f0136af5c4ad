package domain

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		min    string
		want   AlertType
		wantOK bool
	}{
		{"zero is out of stock", "0", "50", AlertOutOfStock, true},
		{"below min is low", "40", "50", AlertLowStock, true},
		{"at min is low", "50", "50", AlertLowStock, true},
		{"above min is fine", "100", "50", "", false},
		{"no threshold", "1", "0", "", false},
		{"no threshold still flags empty", "0", "0", AlertOutOfStock, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(d(tt.level), d(tt.min))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStockLevelValidate(t *testing.T) {
	ok := StockLevel{EntityType: EntityIngredient, EntityID: "milk", Current: d("10"), Min: d("5"), Max: d("100")}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Current = d("-1")
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Min = d("200")
	assert.Error(t, bad.Validate())

	bad = ok
	bad.EntityType = "widget"
	assert.Error(t, bad.Validate())
}

func TestTxTypeCheckDelta(t *testing.T) {
	assert.NoError(t, TxSale.CheckDelta(d("-1")))
	assert.Error(t, TxSale.CheckDelta(d("1")))
	assert.NoError(t, TxPurchase.CheckDelta(d("3")))
	assert.Error(t, TxReturn.CheckDelta(d("-3")))
	assert.NoError(t, TxAdjustment.CheckDelta(d("-3")))
	assert.Error(t, TxAdjustment.CheckDelta(decimal.Zero))
	assert.Error(t, TxType("gift").CheckDelta(d("1")))
}

func TestStockKeyOrdering(t *testing.T) {
	keys := []StockKey{ProductKey("latte"), IngredientKey("sugar"), IngredientKey("milk")}
	slices.SortFunc(keys, StockKey.Compare)
	assert.Equal(t, []StockKey{IngredientKey("milk"), IngredientKey("sugar"), ProductKey("latte")}, keys)
}
