// Package api exposes catalog browsing and selection sessions over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/session"
)

// CatalogProvider hands out the loaded catalog.
type CatalogProvider interface {
	Ensure(ctx context.Context) (*catalog.Catalog, error)
}

// Config wires the API handlers.
type Config struct {
	Sessions       *session.Manager
	Catalog        CatalogProvider
	CORSOrigins    []string
	RequestTimeout time.Duration
}

type server struct {
	sessions *session.Manager
	catalog  CatalogProvider
}

// NewRouter builds the chi router with middleware and every route mounted.
func NewRouter(cfg Config) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &server{sessions: cfg.Sessions, catalog: cfg.Catalog}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(requestLogger)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(cfg.RequestTimeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)

	router.Route("/catalog", func(r chi.Router) {
		r.Get("/recipes", s.listRecipes)
		r.Get("/sale-points", s.listSalePoints)
	})

	router.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/breakdown", s.getBreakdown)
			r.Post("/recipe", s.selectRecipe)
			r.Post("/sale-point", s.selectSalePoint)
			r.Post("/caffeine", s.toggleCaffeine)
			r.Post("/milk", s.setMilkType)
			r.Post("/sugar", s.setSugarLevel)
			r.Post("/clear", s.clearSelection)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	return router
}
