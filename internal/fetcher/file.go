package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// FileFetcher reads resources from the local filesystem. Relative paths are
// resolved against Root when it is set.
type FileFetcher struct {
	Root string
}

// Download opens a local path or file:// URL.
func (f *FileFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "file: context cancelled")
	}

	path, err := localPath(rawURL)
	if err != nil {
		return nil, err
	}
	if f.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "file: open %s", path)
	}
	return file, nil
}

func localPath(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "file://") {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "file: parse url")
	}
	if u.Path == "" {
		return "", eris.New("file: empty path in url")
	}
	return u.Path, nil
}
