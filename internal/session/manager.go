package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/model"
	"github.com/sells-group/trueprice/internal/pricing"
	"github.com/sells-group/trueprice/internal/selection"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = eris.New("session: not found")

// CatalogProvider hands out the loaded catalog, loading it on first use.
type CatalogProvider interface {
	Ensure(ctx context.Context) (*catalog.Catalog, error)
}

// SelectionStore persists selections by session id.
type SelectionStore interface {
	SaveSelection(ctx context.Context, sessionID string, sel model.Selection) error
	LoadSelection(ctx context.Context, sessionID string) (*model.Selection, error)
	DeleteSelection(ctx context.Context, sessionID string) error
}

// ManagerConfig wires a Manager's dependencies. Store may be nil.
type ManagerConfig struct {
	Catalog       CatalogProvider
	Loader        ImpactLoader
	Calculator    *pricing.Calculator
	Store         SelectionStore
	MaxSugarLevel int
}

// Manager holds live sessions by id.
type Manager struct {
	cfg   ManagerConfig
	newID func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Calculator == nil {
		cfg.Calculator = pricing.NewCalculator(pricing.DefaultRates())
	}
	return &Manager{
		cfg:      cfg,
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session at the default selection and persists it.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	cat := m.catalog(ctx)
	id := m.newID()
	s := m.build(id, cat)

	if m.cfg.Store != nil {
		if err := m.cfg.Store.SaveSelection(ctx, id, model.DefaultSelection()); err != nil {
			return nil, eris.Wrap(err, "session: save new session")
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	zap.L().Info("session: created", zap.String("session_id", id), zap.Int("catalog_entries", cat.Len()))
	return s, nil
}

// Get returns a live session, restoring it from the store when it is not in
// memory.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	cat := m.catalog(ctx)
	if ok {
		if cat.Len() > 0 {
			_ = s.setCatalog(ctx, cat)
		}
		return s, nil
	}

	if m.cfg.Store == nil {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	sel, err := m.cfg.Store.LoadSelection(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "session: load %s", id)
	}
	if sel == nil {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}

	s = m.build(id, cat)
	_ = s.restore(ctx, *sel)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		s = existing
	} else {
		m.sessions[id] = s
	}
	m.mu.Unlock()

	zap.L().Info("session: restored", zap.String("session_id", id))
	return s, nil
}

// Delete forgets a session and its persisted selection.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.cfg.Store == nil {
		if !ok {
			return eris.Wrapf(ErrNotFound, "session %s", id)
		}
		return nil
	}
	if err := m.cfg.Store.DeleteSelection(ctx, id); err != nil {
		if ok {
			zap.L().Warn("session: delete persisted selection", zap.String("session_id", id), zap.Error(err))
			return nil
		}
		return eris.Wrapf(ErrNotFound, "session %s", id)
	}
	return nil
}

// Len returns the number of sessions in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) build(id string, cat *catalog.Catalog) *Session {
	engine := selection.New(cat, selection.Options{
		MaxSugarLevel: m.cfg.MaxSugarLevel,
		Logger:        zap.L().With(zap.String("session_id", id)),
		OnChange:      m.persist(id),
	})
	return newSession(id, engine, m.cfg.Loader, m.cfg.Calculator)
}

func (m *Manager) persist(id string) func(model.Selection) {
	if m.cfg.Store == nil {
		return nil
	}
	return func(sel model.Selection) {
		if err := m.cfg.Store.SaveSelection(context.Background(), id, sel); err != nil {
			zap.L().Error("session: persist selection", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (m *Manager) catalog(ctx context.Context) *catalog.Catalog {
	if m.cfg.Catalog == nil {
		return nil
	}
	cat, err := m.cfg.Catalog.Ensure(ctx)
	if err != nil {
		zap.L().Warn("session: catalog unavailable", zap.Error(err))
	}
	return cat
}
