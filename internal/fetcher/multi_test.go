package fetcher

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestMulti_RoutesByScheme(t *testing.T) {
	httpF, ftpF, fileF := &mockFetcher{}, &mockFetcher{}, &mockFetcher{}
	m := &Multi{HTTP: httpF, FTP: ftpF, File: fileF}
	ctx := context.Background()

	body := func(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }
	httpF.On("Download", ctx, "https://data.example/a.csv").Return(body("http"), nil)
	ftpF.On("Download", ctx, "ftp://ftp.example/a.csv").Return(body("ftp"), nil)
	fileF.On("Download", ctx, "data/a.csv").Return(body("file"), nil)
	fileF.On("Download", ctx, "file:///tmp/a.csv").Return(body("file-url"), nil)

	for url, want := range map[string]string{
		"https://data.example/a.csv": "http",
		"ftp://ftp.example/a.csv":    "ftp",
		"data/a.csv":                 "file",
		"file:///tmp/a.csv":          "file-url",
	} {
		rc, err := m.Download(ctx, url)
		require.NoError(t, err, url)
		data, _ := io.ReadAll(rc)
		assert.Equal(t, want, string(data))
	}

	httpF.AssertExpectations(t)
	ftpF.AssertExpectations(t)
	fileF.AssertExpectations(t)
}

func TestMulti_UnsupportedScheme(t *testing.T) {
	m := &Multi{File: &mockFetcher{}}
	_, err := m.Download(context.Background(), "s3://bucket/key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestMulti_MissingFetcher(t *testing.T) {
	m := &Multi{}
	_, err := m.Download(context.Background(), "http://example.com/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetcher configured")
}
