// Package catalog holds the coffee catalog and sale-point reference data and
// answers the facet queries the selection engine is built on.
package catalog

import (
	"slices"

	"github.com/sells-group/trueprice/internal/model"
)

// Filter restricts catalog entries by facet. Zero values match anything,
// except IsDecaf which is always compared.
type Filter struct {
	Recipe      model.Recipe
	SalePointID string
	IsDecaf     bool
	MilkType    model.MilkType
}

// Matches reports whether e satisfies f. MilkNone matches every milk type.
func (f Filter) Matches(e model.CatalogEntry) bool {
	if e.IsDecaf != f.IsDecaf {
		return false
	}
	if f.MilkType != "" && f.MilkType != model.MilkNone && e.MilkType != f.MilkType {
		return false
	}
	if f.Recipe != model.RecipeNone && e.Recipe != f.Recipe {
		return false
	}
	if f.SalePointID != "" && e.SalePointID != f.SalePointID {
		return false
	}
	return true
}

// Catalog is an immutable, ordered set of catalog entries plus the sale
// points they reference.
type Catalog struct {
	entries    []model.CatalogEntry
	salePoints *SalePoints
}

// New builds a catalog. Entries without a serve id or recipe are dropped.
// A nil salePoints uses the built-in reference data.
func New(entries []model.CatalogEntry, salePoints *SalePoints) *Catalog {
	if salePoints == nil {
		salePoints = DefaultSalePoints()
	}
	kept := make([]model.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.ServeID == "" || e.Recipe == model.RecipeNone {
			continue
		}
		kept = append(kept, e)
	}
	return &Catalog{entries: kept, salePoints: salePoints}
}

// Len returns the number of entries. A nil catalog is empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []model.CatalogEntry {
	if c == nil {
		return nil
	}
	return slices.Clone(c.entries)
}

// SalePoints returns the reference data used to resolve sale point ids.
func (c *Catalog) SalePoints() *SalePoints {
	if c == nil {
		return DefaultSalePoints()
	}
	return c.salePoints
}

// Recipes returns the distinct recipes in first-seen order.
func (c *Catalog) Recipes() []model.Recipe {
	var out []model.Recipe
	seen := make(map[model.Recipe]bool)
	for _, e := range c.all() {
		if !seen[e.Recipe] {
			seen[e.Recipe] = true
			out = append(out, e.Recipe)
		}
	}
	return out
}

// SalePointsFor returns the sale points that sell recipe, in first-seen
// order. Ids without reference data are skipped.
func (c *Catalog) SalePointsFor(recipe model.Recipe) []model.SalePoint {
	var out []model.SalePoint
	seen := make(map[string]bool)
	for _, e := range c.all() {
		if e.Recipe != recipe || seen[e.SalePointID] {
			continue
		}
		seen[e.SalePointID] = true
		if sp, ok := c.salePoints.Get(e.SalePointID); ok {
			out = append(out, sp)
		}
	}
	return out
}

// MilkTypes returns the distinct milk types among entries matching f, in
// first-seen order. The filter's own milk type is ignored.
func (c *Catalog) MilkTypes(f Filter) []model.MilkType {
	f.MilkType = model.MilkNone
	var out []model.MilkType
	seen := make(map[model.MilkType]bool)
	for _, e := range c.all() {
		if !f.Matches(e) || seen[e.MilkType] {
			continue
		}
		seen[e.MilkType] = true
		out = append(out, e.MilkType)
	}
	return out
}

// Find returns every entry matching f in catalog order.
func (c *Catalog) Find(f Filter) []model.CatalogEntry {
	var out []model.CatalogEntry
	for _, e := range c.all() {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first entry matching f.
func (c *Catalog) First(f Filter) (model.CatalogEntry, bool) {
	for _, e := range c.all() {
		if f.Matches(e) {
			return e, true
		}
	}
	return model.CatalogEntry{}, false
}

// ByServeID looks an entry up by its serve id.
func (c *Catalog) ByServeID(id string) (model.CatalogEntry, bool) {
	for _, e := range c.all() {
		if e.ServeID == id {
			return e, true
		}
	}
	return model.CatalogEntry{}, false
}

func (c *Catalog) all() []model.CatalogEntry {
	if c == nil {
		return nil
	}
	return c.entries
}
