package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Multi dispatches downloads by URL scheme. URLs without a scheme, and
// file:// URLs, go to File.
type Multi struct {
	HTTP Fetcher
	FTP  Fetcher
	File Fetcher
}

// Download routes rawURL to the fetcher registered for its scheme.
func (m *Multi) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := m.route(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

func (m *Multi) route(rawURL string) (Fetcher, error) {
	scheme := ""
	if i := strings.Index(rawURL, "://"); i > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: parse url")
		}
		scheme = strings.ToLower(u.Scheme)
	}

	var f Fetcher
	switch scheme {
	case "http", "https":
		f = m.HTTP
	case "ftp":
		f = m.FTP
	case "", "file":
		f = m.File
	default:
		return nil, eris.Errorf("fetch: unsupported scheme %q", scheme)
	}
	if f == nil {
		return nil, eris.Errorf("fetch: no fetcher configured for %q", rawURL)
	}
	return f, nil
}
