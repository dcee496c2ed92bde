// Package fetcher downloads catalog and impact resources from local files,
// HTTP and FTP, and parses the CSV, XLSX and JSON payloads they carry.
package fetcher

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading a resource.
type Fetcher interface {
	// Download fetches the resource and returns its body. Callers must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// DownloadToFile fetches url through f and writes it to path. Returns bytes written.
func DownloadToFile(ctx context.Context, f Fetcher, url, path string) (int64, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
