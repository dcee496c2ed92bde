package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/trueprice/internal/fetcher"
	"github.com/sells-group/trueprice/internal/model"
)

// SourceOptions locates the catalog table and sale point reference data.
type SourceOptions struct {
	URL           string // catalog table; .xlsx selects the workbook reader
	Delimiter     rune
	Charset       string
	Sheet         string
	SalePointsURL string // YAML reference data; empty uses the built-in set
}

// Source loads the catalog once and hands out the loaded copy afterwards.
type Source struct {
	fetcher fetcher.Fetcher
	opts    SourceOptions

	mu      sync.Mutex
	current *Catalog
}

// NewSource creates a Source reading through f.
func NewSource(f fetcher.Fetcher, opts SourceOptions) *Source {
	return &Source{fetcher: f, opts: opts}
}

// Current returns the last successfully loaded catalog, or nil.
func (s *Source) Current() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Ensure returns the loaded catalog, fetching it only when nothing non-empty
// has been loaded yet. A failed fetch keeps the previous catalog.
func (s *Source) Ensure(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Len() > 0 {
		return s.current, nil
	}

	cat, err := s.load(ctx)
	if err != nil {
		zap.L().Error("catalog: load failed", zap.String("url", s.opts.URL), zap.Error(err))
		return s.current, err
	}
	s.current = cat
	return cat, nil
}

func (s *Source) load(ctx context.Context) (*Catalog, error) {
	var (
		entries []model.CatalogEntry
		points  *SalePoints
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.loadEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.loadSalePoints(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := New(entries, points)
	zap.L().Info("catalog: loaded",
		zap.Int("entries", cat.Len()),
		zap.Int("sale_points", points.Len()),
	)
	return cat, nil
}

func (s *Source) loadEntries(ctx context.Context) ([]model.CatalogEntry, error) {
	if s.opts.URL == "" {
		return nil, eris.New("catalog: no source configured")
	}

	var (
		entries []model.CatalogEntry
		stats   ParseStats
		err     error
	)
	if strings.EqualFold(filepath.Ext(s.opts.URL), ".xlsx") {
		entries, stats, err = s.loadXLSX(ctx)
	} else {
		entries, stats, err = s.loadCSV(ctx)
	}
	if err != nil {
		return nil, err
	}
	if stats.Dropped > 0 {
		zap.L().Warn("catalog: rows dropped",
			zap.Int("dropped", stats.Dropped),
			zap.Int("rows", stats.Rows),
		)
	}
	return entries, nil
}

func (s *Source) loadCSV(ctx context.Context) ([]model.CatalogEntry, ParseStats, error) {
	body, err := s.fetcher.Download(ctx, s.opts.URL)
	if err != nil {
		return nil, ParseStats{}, eris.Wrap(err, "catalog: download")
	}
	defer body.Close() //nolint:errcheck

	return ReadCSV(ctx, body, fetcher.CSVOptions{
		Delimiter:  s.opts.Delimiter,
		Charset:    s.opts.Charset,
		LazyQuotes: true,
		TrimSpace:  true,
	})
}

func (s *Source) loadXLSX(ctx context.Context) ([]model.CatalogEntry, ParseStats, error) {
	tmp, err := os.CreateTemp("", "catalog-*.xlsx")
	if err != nil {
		return nil, ParseStats{}, eris.Wrap(err, "catalog: create temp xlsx")
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path) //nolint:errcheck

	if _, err := fetcher.DownloadToFile(ctx, s.fetcher, s.opts.URL, path); err != nil {
		return nil, ParseStats{}, eris.Wrap(err, "catalog: download xlsx")
	}
	return ReadXLSX(path, fetcher.XLSXOptions{SheetName: s.opts.Sheet})
}

func (s *Source) loadSalePoints(ctx context.Context) (*SalePoints, error) {
	if s.opts.SalePointsURL == "" {
		return DefaultSalePoints(), nil
	}
	body, err := s.fetcher.Download(ctx, s.opts.SalePointsURL)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: download sale points")
	}
	defer body.Close() //nolint:errcheck
	return LoadSalePoints(body)
}
