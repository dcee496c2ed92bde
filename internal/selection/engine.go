// Package selection maintains a user's facet selection over the coffee
// catalog and keeps it consistent with what the catalog offers.
package selection

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/model"
)

// DefaultMaxSugarLevel is the highest sugar level accepted when Options
// leaves MaxSugarLevel unset.
const DefaultMaxSugarLevel = 5

// Options configures an Engine.
type Options struct {
	MaxSugarLevel int
	Logger        *zap.Logger
	// OnChange receives the full selection after every applied mutation.
	OnChange func(model.Selection)
}

// Engine holds one selection. It is not safe for concurrent use.
type Engine struct {
	cat      *catalog.Catalog
	sel      model.Selection
	maxSugar int
	log      *zap.Logger
	onChange func(model.Selection)
}

// New creates an engine over cat starting from the default selection.
// A nil catalog behaves as an empty, not yet loaded one.
func New(cat *catalog.Catalog, opts Options) *Engine {
	if opts.MaxSugarLevel <= 0 {
		opts.MaxSugarLevel = DefaultMaxSugarLevel
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Engine{
		cat:      cat,
		sel:      model.DefaultSelection(),
		maxSugar: opts.MaxSugarLevel,
		log:      opts.Logger.With(zap.String("component", "selection")),
		onChange: opts.OnChange,
	}
}

// SetCatalog swaps the catalog and re-narrows the milk type.
func (e *Engine) SetCatalog(cat *catalog.Catalog) {
	e.cat = cat
	e.narrowMilk()
	e.changed()
}

// Catalog returns the catalog the engine reads from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// SelectRecipe selects recipe and resets every dependent facet.
func (e *Engine) SelectRecipe(recipe model.Recipe) {
	e.sel.Recipe = recipe
	e.sel.SalePointID = ""
	e.sel.MilkType = model.MilkNone
	e.sel.SugarLevel = 0
	e.sel.IsDecaf = false
	e.narrowMilk()
	e.changed()
}

// SelectSalePoint sets the sale point. An empty id clears it.
func (e *Engine) SelectSalePoint(id string) {
	e.sel.SalePointID = id
	e.narrowMilk()
	e.changed()
}

// ToggleCaffeine flips between caffeinated and decaf.
func (e *Engine) ToggleCaffeine() {
	e.sel.IsDecaf = !e.sel.IsDecaf
	e.narrowMilk()
	e.changed()
}

// SetMilkType sets the milk type if the catalog offers it for the current
// facets. It reports whether the selection changed.
func (e *Engine) SetMilkType(t model.MilkType) bool {
	if !slices.Contains(e.AvailableMilkTypes(), t) {
		e.log.Warn("milk type not available",
			zap.String("milk_type", string(t)),
			zap.String("recipe", string(e.sel.Recipe)),
			zap.String("sale_point_id", e.sel.SalePointID),
			zap.Bool("is_decaf", e.sel.IsDecaf),
		)
		return false
	}
	e.sel.MilkType = t
	e.changed()
	return true
}

// SetSugarLevel stores level clamped to [0, MaxSugarLevel].
func (e *Engine) SetSugarLevel(level int) {
	e.sel.SugarLevel = e.clampSugar(level)
	e.changed()
}

// Clear returns to the default selection.
func (e *Engine) Clear() {
	e.sel = model.DefaultSelection()
	e.changed()
}

// Restore replaces the whole selection, e.g. from a persisted session.
func (e *Engine) Restore(sel model.Selection) {
	if sel.MilkType == "" {
		sel.MilkType = model.MilkNone
	}
	sel.SugarLevel = e.clampSugar(sel.SugarLevel)
	e.sel = sel
	e.narrowMilk()
	e.changed()
}

// Selection returns a copy of the current selection.
func (e *Engine) Selection() model.Selection {
	return e.sel
}

// MaxSugarLevel returns the configured upper sugar bound.
func (e *Engine) MaxSugarLevel() int {
	return e.maxSugar
}

// AvailableRecipes returns the distinct recipes in catalog order.
func (e *Engine) AvailableRecipes() []model.Recipe {
	return e.cat.Recipes()
}

// AvailableSalePoints returns the sale points that sell recipe.
func (e *Engine) AvailableSalePoints(recipe model.Recipe) []model.SalePoint {
	return e.cat.SalePointsFor(recipe)
}

// AvailableMilkTypes returns the milk types offered for the current recipe,
// sale point and caffeine choice. With no recipe it is just MilkNone.
func (e *Engine) AvailableMilkTypes() []model.MilkType {
	if !e.sel.HasRecipe() {
		return []model.MilkType{model.MilkNone}
	}
	return e.cat.MilkTypes(e.filter())
}

// SelectedEntry returns the first catalog entry matching the selection.
func (e *Engine) SelectedEntry() (model.CatalogEntry, bool) {
	if e.cat.Len() == 0 {
		return model.CatalogEntry{}, false
	}
	matches := e.cat.Find(e.filter())
	if len(matches) == 0 {
		return model.CatalogEntry{}, false
	}
	if len(matches) > 1 {
		e.log.Debug("several entries match selection, using first",
			zap.Int("matches", len(matches)),
			zap.String("serve_id", matches[0].ServeID),
		)
	}
	return matches[0], true
}

// Matches returns how many catalog entries match the selection.
func (e *Engine) Matches() int {
	return len(e.cat.Find(e.filter()))
}

// IsPriceVisible reports whether both recipe and sale point are chosen.
func (e *Engine) IsPriceVisible() bool {
	return e.sel.HasRecipe() && e.sel.HasSalePoint()
}

func (e *Engine) filter() catalog.Filter {
	return catalog.Filter{
		Recipe:      e.sel.Recipe,
		SalePointID: e.sel.SalePointID,
		IsDecaf:     e.sel.IsDecaf,
		MilkType:    e.sel.MilkType,
	}
}

// narrowMilk moves the milk type onto the available set.
func (e *Engine) narrowMilk() {
	avail := e.AvailableMilkTypes()
	if slices.Contains(avail, e.sel.MilkType) {
		return
	}
	next := model.MilkNone
	if len(avail) > 0 {
		next = avail[0]
	}
	e.log.Debug("narrowing milk type",
		zap.String("from", string(e.sel.MilkType)),
		zap.String("to", string(next)),
	)
	e.sel.MilkType = next
}

func (e *Engine) clampSugar(level int) int {
	return max(0, min(level, e.maxSugar))
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange(e.sel)
	}
}
