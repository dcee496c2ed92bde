// Package session binds a selection engine to impact loading and pricing and
// keeps the sessions served by the API.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/impact"
	"github.com/sells-group/trueprice/internal/model"
	"github.com/sells-group/trueprice/internal/pricing"
	"github.com/sells-group/trueprice/internal/selection"
)

// ImpactLoader fetches the stage impacts of a catalog entry.
type ImpactLoader interface {
	Load(ctx context.Context, serveID string) ([]model.StageImpact, error)
}

// View is a snapshot of a session for display.
type View struct {
	ID                  string              `json:"id"`
	Selection           model.Selection     `json:"selection"`
	AvailableRecipes    []model.Recipe      `json:"availableRecipes"`
	AvailableSalePoints []model.SalePoint   `json:"availableSalePoints"`
	AvailableMilkTypes  []model.MilkType    `json:"availableMilkTypes"`
	MaxSugarLevel       int                 `json:"maxSugarLevel"`
	PriceVisible        bool                `json:"priceVisible"`
	Matches             int                 `json:"matches"`
	Entry               *model.CatalogEntry `json:"entry,omitempty"`
	Quote               *model.Quote        `json:"quote,omitempty"`
}

// Session serializes access to one engine and holds the impact record of its
// selected entry.
type Session struct {
	id     string
	engine *selection.Engine
	loader ImpactLoader
	calc   *pricing.Calculator
	log    *zap.Logger

	mu        sync.Mutex
	gen       uint64
	serveID   string // serve id the held record belongs to
	breakdown *impact.Breakdown
}

func newSession(id string, engine *selection.Engine, loader ImpactLoader, calc *pricing.Calculator) *Session {
	return &Session{
		id:     id,
		engine: engine,
		loader: loader,
		calc:   calc,
		log:    zap.L().With(zap.String("session_id", id)),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// SelectRecipe selects a recipe and refreshes the impact record.
func (s *Session) SelectRecipe(ctx context.Context, r model.Recipe) error {
	s.mu.Lock()
	s.engine.SelectRecipe(r)
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SelectSalePoint selects a sale point and refreshes the impact record.
func (s *Session) SelectSalePoint(ctx context.Context, id string) error {
	s.mu.Lock()
	s.engine.SelectSalePoint(id)
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// ToggleCaffeine flips decaf and refreshes the impact record.
func (s *Session) ToggleCaffeine(ctx context.Context) error {
	s.mu.Lock()
	s.engine.ToggleCaffeine()
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetMilkType sets the milk type when available. It reports whether the
// selection changed.
func (s *Session) SetMilkType(ctx context.Context, t model.MilkType) (bool, error) {
	s.mu.Lock()
	ok := s.engine.SetMilkType(t)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, s.Refresh(ctx)
}

// SetSugarLevel sets the clamped sugar level.
func (s *Session) SetSugarLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetSugarLevel(level)
}

// Clear resets the selection and drops the impact record.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Clear()
	s.gen++
	s.clearRecord()
}

func (s *Session) restore(ctx context.Context, sel model.Selection) error {
	s.mu.Lock()
	s.engine.Restore(sel)
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *Session) setCatalog(ctx context.Context, cat *catalog.Catalog) error {
	s.mu.Lock()
	if s.engine.Catalog() == cat {
		s.mu.Unlock()
		return nil
	}
	s.engine.SetCatalog(cat)
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh loads the impact record of the selected entry when it changed.
// A response that arrives after a newer refresh started is discarded.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	entry, ok := s.engine.SelectedEntry()
	if !ok {
		s.gen++
		s.clearRecord()
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	if s.loader == nil || (entry.ServeID == s.serveID && s.breakdown != nil) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	impacts, err := s.loader.Load(ctx, entry.ServeID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("discarding stale impact record",
			zap.String("serve_id", entry.ServeID),
			zap.Uint64("generation", gen),
			zap.Uint64("current", s.gen),
		)
		return nil
	}
	if err != nil {
		s.clearRecord()
		s.log.Warn("impact record fetch failed",
			zap.String("serve_id", entry.ServeID),
			zap.Error(err),
		)
		return err
	}
	s.serveID = entry.ServeID
	s.breakdown = impact.Aggregate(impacts)
	return nil
}

func (s *Session) clearRecord() {
	s.serveID = ""
	s.breakdown = nil
}

// Breakdown returns the per-stage trees of the held record, or nil.
func (s *Session) Breakdown() *impact.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakdown
}

// Record returns the held impact record and the serve id it belongs to.
func (s *Session) Record() (string, *impact.Breakdown) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveID, s.breakdown
}

// View snapshots the selection, derived views and quote.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.engine.Selection()
	v := View{
		ID:                 s.id,
		Selection:          sel,
		AvailableRecipes:   s.engine.AvailableRecipes(),
		AvailableMilkTypes: s.engine.AvailableMilkTypes(),
		MaxSugarLevel:      s.engine.MaxSugarLevel(),
		PriceVisible:       s.engine.IsPriceVisible(),
		Matches:            s.engine.Matches(),
	}
	if sel.HasRecipe() {
		v.AvailableSalePoints = s.engine.AvailableSalePoints(sel.Recipe)
	}
	entry, ok := s.engine.SelectedEntry()
	if !ok {
		return v
	}
	v.Entry = &entry
	if v.PriceVisible {
		var b *impact.Breakdown
		if s.serveID == entry.ServeID {
			b = s.breakdown
		}
		q := s.calc.Quote(entry, sel, b)
		v.Quote = &q
	}
	return v
}
