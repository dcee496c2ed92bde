// Package pricing turns a catalog entry, a selection and an impact breakdown
// into a true price quote.
package pricing

import (
	"math"

	"github.com/sells-group/trueprice/internal/impact"
	"github.com/sells-group/trueprice/internal/model"
)

// Rates holds the hidden cost added per customization.
type Rates struct {
	Caffeine      float64   `yaml:"caffeine" mapstructure:"caffeine"`
	SugarPerLevel float64   `yaml:"sugar_per_level" mapstructure:"sugar_per_level"`
	Milk          MilkRates `yaml:"milk" mapstructure:"milk"`
}

// MilkRates holds the hidden cost of each milk type.
type MilkRates struct {
	Cow            float64 `yaml:"cow" mapstructure:"cow"`
	Almond         float64 `yaml:"almond" mapstructure:"almond"`
	Soy            float64 `yaml:"soy" mapstructure:"soy"`
	LactoseFreeCow float64 `yaml:"clf" mapstructure:"clf"`
	Oat            float64 `yaml:"oat" mapstructure:"oat"`
}

// DefaultRates returns the default customization rates.
func DefaultRates() Rates {
	return Rates{
		Caffeine:      0.50,
		SugarPerLevel: 0.10,
		Milk: MilkRates{
			Cow:            0.30,
			Almond:         0.30,
			Soy:            0.30,
			LactoseFreeCow: 0.30,
			Oat:            0.30,
		},
	}
}

// Calculator computes quotes.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rates returns the calculator's rates.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Milk returns the hidden cost of milk type m.
func (c *Calculator) Milk(m model.MilkType) float64 {
	switch m {
	case model.MilkNone:
		return 0
	case model.MilkCow:
		return c.rates.Milk.Cow
	case model.MilkAlmond:
		return c.rates.Milk.Almond
	case model.MilkSoy:
		return c.rates.Milk.Soy
	case model.MilkLactoseFreeCow:
		return c.rates.Milk.LactoseFreeCow
	case model.MilkOat:
		return c.rates.Milk.Oat
	}
	return 0
}

// Sugar returns the hidden cost of a sugar level.
func (c *Calculator) Sugar(level int) float64 {
	if level <= 0 {
		return 0
	}
	return float64(level) * c.rates.SugarPerLevel
}

// Quote prices entry under sel. A non-empty breakdown supplies the impact
// cost; otherwise the catalog's precomputed trueCost is used, and failing
// that the cost is estimated from the customization rates.
func (c *Calculator) Quote(entry model.CatalogEntry, sel model.Selection, b *impact.Breakdown) model.Quote {
	q := model.Quote{
		ServeID:     entry.ServeID,
		RetailPrice: entry.MarketPrice,
	}

	switch {
	case !b.Empty():
		q.ImpactCost = b.Total()
		q.CustomizationCost = c.Sugar(sel.SugarLevel)
	case entry.TrueCost != nil:
		q.ImpactCost = *entry.TrueCost
		q.CustomizationCost = c.Sugar(sel.SugarLevel)
	default:
		q.Estimated = true
		if !entry.IsDecaf {
			q.CustomizationCost += c.rates.Caffeine
		}
		q.CustomizationCost += c.Milk(entry.MilkType)
		q.CustomizationCost += c.Sugar(sel.SugarLevel)
	}

	q.ImpactCost = round(q.ImpactCost)
	q.CustomizationCost = round(q.CustomizationCost)
	q.HiddenCost = round(q.ImpactCost + q.CustomizationCost)
	q.TruePrice = round(q.RetailPrice + q.HiddenCost)
	return q
}

// round keeps currency amounts to the cent.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
