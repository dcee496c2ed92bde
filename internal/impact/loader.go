package impact

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/fetcher"
	"github.com/sells-group/trueprice/internal/model"
)

// Cache stores raw impact record bodies by record key.
type Cache interface {
	GetCachedImpact(ctx context.Context, key string) ([]byte, error)
	SetCachedImpact(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	BaseURL  string
	Cache    Cache // optional
	CacheTTL time.Duration
}

// Loader fetches the impact record of a catalog entry.
type Loader struct {
	fetcher fetcher.Fetcher
	opts    LoaderOptions
}

// NewLoader creates a Loader reading records under opts.BaseURL through f.
func NewLoader(f fetcher.Fetcher, opts LoaderOptions) *Loader {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Loader{fetcher: f, opts: opts}
}

// URL returns the location of the record for serveID.
func (l *Loader) URL(serveID string) string {
	return l.opts.BaseURL + "/" + RecordKey(serveID) + ".json"
}

// Load returns the stage impacts of serveID, from cache when fresh.
func (l *Loader) Load(ctx context.Context, serveID string) ([]model.StageImpact, error) {
	if serveID == "" {
		return nil, eris.New("impact: empty serve id")
	}
	key := RecordKey(serveID)
	log := zap.L().With(zap.String("serve_id", serveID))

	if l.opts.Cache != nil {
		data, err := l.opts.Cache.GetCachedImpact(ctx, key)
		if err != nil {
			log.Warn("impact: cache read failed", zap.Error(err))
		} else if data != nil {
			impacts, err := Decode(data)
			if err == nil {
				log.Debug("impact: cache hit")
				return impacts, nil
			}
			log.Warn("impact: discarding unreadable cache entry", zap.Error(err))
		}
	}

	url := l.URL(serveID)
	body, err := l.fetcher.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "impact: download %s", url)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "impact: read %s", url)
	}
	impacts, err := Decode(data)
	if err != nil {
		return nil, eris.Wrapf(err, "impact: decode %s", url)
	}

	if l.opts.Cache != nil && l.opts.CacheTTL > 0 {
		if err := l.opts.Cache.SetCachedImpact(ctx, key, data, l.opts.CacheTTL); err != nil {
			log.Warn("impact: cache write failed", zap.Error(err))
		}
	}
	log.Debug("impact: loaded", zap.Int("records", len(impacts)))
	return impacts, nil
}

// Decode accepts either a CoffeeImpact envelope or a bare array of stage
// impacts.
func Decode(data []byte) ([]model.StageImpact, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, eris.New("impact: empty record")
	}
	switch trimmed[0] {
	case '[':
		return fetcher.CollectJSONArray[model.StageImpact](context.Background(), bytes.NewReader(trimmed))
	case '{':
		env, err := fetcher.DecodeJSONObject[model.CoffeeImpact](bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
		return env.Impacts, nil
	}
	return nil, eris.Errorf("impact: unexpected record start %q", trimmed[0])
}
