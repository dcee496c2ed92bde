package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/trueprice/internal/impact"
	"github.com/sells-group/trueprice/internal/model"
)

func testRates() Rates {
	return Rates{
		Caffeine:      0.50,
		SugarPerLevel: 0.10,
		Milk: MilkRates{
			Cow:            0.30,
			Almond:         0.40,
			Soy:            0.35,
			LactoseFreeCow: 0.32,
			Oat:            0.45,
		},
	}
}

func TestMilk(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		milk model.MilkType
		want float64
	}{
		{model.MilkNone, 0},
		{model.MilkCow, 0.30},
		{model.MilkAlmond, 0.40},
		{model.MilkSoy, 0.35},
		{model.MilkLactoseFreeCow, 0.32},
		{model.MilkOat, 0.45},
		{model.MilkType("goat"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.milk), func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Milk(tt.milk), 1e-9)
		})
	}
}

func TestSugar(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.Zero(t, calc.Sugar(-1))
	assert.Zero(t, calc.Sugar(0))
	assert.InDelta(t, 0.30, calc.Sugar(3), 1e-9)
}

func TestQuote_Estimated(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		entry model.CatalogEntry
		sugar int
		want  float64 // customization cost
	}{
		{
			name:  "espresso caffeinated",
			entry: model.CatalogEntry{ServeID: "A", MarketPrice: 2.5, MilkType: model.MilkNone},
			want:  0.50,
		},
		{
			name:  "decaf espresso",
			entry: model.CatalogEntry{ServeID: "B", MarketPrice: 2.5, IsDecaf: true, MilkType: model.MilkNone},
			want:  0,
		},
		{
			name:  "oat cappuccino with sugar",
			entry: model.CatalogEntry{ServeID: "C", MarketPrice: 3.9, HasMilk: true, MilkType: model.MilkOat},
			sugar: 2,
			want:  0.50 + 0.45 + 0.20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := calc.Quote(tt.entry, model.Selection{SugarLevel: tt.sugar}, nil)
			assert.True(t, q.Estimated)
			assert.Equal(t, tt.entry.ServeID, q.ServeID)
			assert.Zero(t, q.ImpactCost)
			assert.InDelta(t, tt.want, q.CustomizationCost, 1e-9)
			assert.InDelta(t, tt.want, q.HiddenCost, 1e-9)
			assert.InDelta(t, tt.entry.MarketPrice+tt.want, q.TruePrice, 1e-9)
		})
	}
}

func TestQuote_WithBreakdown(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	b := impact.Aggregate([]model.StageImpact{
		{Stage: "Cultivation", ImpactCategory: "Environment", ImpactValue: 1, Details: []model.ImpactDetail{
			{Indicator: "Land use", CostValue: 0.5},
			{Indicator: "Land use", CostValue: 0.3},
		}},
		{Stage: "Roasting", ImpactCategory: "Energy", ImpactValue: 1, Details: []model.ImpactDetail{
			{Indicator: "Gas", CostValue: 0.15},
		}},
	})
	entry := model.CatalogEntry{ServeID: "A", MarketPrice: 3.5, MilkType: model.MilkCow}

	q := calc.Quote(entry, model.Selection{SugarLevel: 1}, b)
	assert.False(t, q.Estimated)
	assert.InDelta(t, 0.95, q.ImpactCost, 1e-9)
	assert.InDelta(t, 0.10, q.CustomizationCost, 1e-9)
	assert.InDelta(t, 1.05, q.HiddenCost, 1e-9)
	assert.InDelta(t, 4.55, q.TruePrice, 1e-9)
}

func TestQuote_PrecomputedTrueCost(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	trueCost := 1.234
	entry := model.CatalogEntry{ServeID: "A", MarketPrice: 2, TrueCost: &trueCost}

	q := calc.Quote(entry, model.Selection{}, &impact.Breakdown{})
	assert.False(t, q.Estimated)
	assert.InDelta(t, 1.23, q.ImpactCost, 1e-9)
	assert.InDelta(t, 3.23, q.TruePrice, 1e-9)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	r := DefaultRates()
	assert.InDelta(t, 0.50, r.Caffeine, 1e-9)
	assert.InDelta(t, 0.10, r.SugarPerLevel, 1e-9)
	for _, m := range model.MilkTypes {
		if m == model.MilkNone {
			continue
		}
		assert.InDelta(t, 0.30, NewCalculator(r).Milk(m), 1e-9, "milk %s", m)
	}
}
