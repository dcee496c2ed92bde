package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/config"
	"github.com/sells-group/trueprice/internal/fetcher"
	"github.com/sells-group/trueprice/internal/impact"
	"github.com/sells-group/trueprice/internal/pricing"
	"github.com/sells-group/trueprice/internal/resilience"
	"github.com/sells-group/trueprice/internal/store"
)

// appEnv holds the components shared by the catalog, quote and serve
// commands.
type appEnv struct {
	Store      store.Store // nil unless opened
	Catalog    *catalog.Source
	Loader     *impact.Loader
	Calculator *pricing.Calculator
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates c for mode and builds the environment. The store is
// opened and migrated only when withStore is set; it then also backs the
// impact record cache.
func initEnv(ctx context.Context, c *config.Config, mode string, withStore bool) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{Calculator: pricing.NewCalculator(ratesFromConfig(c.Pricing))}
	if withStore {
		st, err := store.Open(ctx, storeConfig(c.Store))
		if err != nil {
			return nil, eris.Wrap(err, "open store")
		}
		env.Store = st
	}

	f := newFetcher(c.Fetch)
	env.Catalog = catalog.NewSource(f, catalog.SourceOptions{
		URL:           c.Catalog.Source,
		Delimiter:     c.Catalog.DelimiterRune(),
		Charset:       c.Catalog.Charset,
		Sheet:         c.Catalog.Sheet,
		SalePointsURL: c.Catalog.SalePoints,
	})

	loaderOpts := impact.LoaderOptions{BaseURL: c.Impact.BaseURL}
	if env.Store != nil && c.Impact.CacheTTLHours > 0 {
		loaderOpts.Cache = env.Store
		loaderOpts.CacheTTL = time.Duration(c.Impact.CacheTTLHours) * time.Hour
	}
	env.Loader = impact.NewLoader(f, loaderOpts)

	return env, nil
}

func newFetcher(c config.FetchConfig) fetcher.Fetcher {
	timeout := time.Duration(c.TimeoutSecs) * time.Second
	multi := &fetcher.Multi{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:   c.UserAgent,
			Timeout:     timeout,
			MaxAttempts: c.MaxAttempts,
			RatePerSec:  c.RatePerSec,
		}),
		FTP:  fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
		File: &fetcher.FileFetcher{},
	}
	return resilience.NewFetcher(multi, resilience.BreakerConfig{
		FailureThreshold: c.BreakerThreshold,
		ResetTimeout:     time.Duration(c.BreakerResetSecs) * time.Second,
	})
}

func ratesFromConfig(p config.PricingConfig) pricing.Rates {
	return pricing.Rates{
		Caffeine:      p.Caffeine,
		SugarPerLevel: p.SugarPerLevel,
		Milk: pricing.MilkRates{
			Cow:            p.Milk.Cow,
			Almond:         p.Milk.Almond,
			Soy:            p.Milk.Soy,
			LactoseFreeCow: p.Milk.LactoseFreeCow,
			Oat:            p.Milk.Oat,
		},
	}
}

func storeConfig(s config.StoreConfig) store.Config {
	return store.Config{
		Driver:      s.Driver,
		DatabaseURL: s.DatabaseURL,
		Pool:        store.PoolConfig{MaxConns: s.MaxConns, MinConns: s.MinConns},
	}
}
