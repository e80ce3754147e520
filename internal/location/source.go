package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	domerrors "github.com/garyellow/line-foodfinder/internal/errors"
	"github.com/garyellow/line-foodfinder/internal/r2client"
)

// Source opens the raw location file.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrDataUnavailable, err)
	}
	return decompress(s.Path, f)
}

// Downloader is the subset of r2client.Client the R2 source needs.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// R2Source reads an object from an R2 bucket.
type R2Source struct {
	Client Downloader
	Key    string
}

func (s R2Source) Name() string { return "r2:" + s.Key }

func (s R2Source) Open(ctx context.Context) (io.ReadCloser, error) {
	body, _, err := s.Client.Download(ctx, s.Key)
	if errors.Is(err, r2client.ErrNotFound) {
		return nil, fmt.Errorf("%w: object %q not found", domerrors.ErrDataUnavailable, s.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrDataUnavailable, err)
	}
	return decompress(s.Key, body)
}

// decompress wraps rc according to the name suffix. Closing the result
// closes rc.
func decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("%w: gzip: %w", domerrors.ErrDataUnavailable, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("%w: zstd: %w", domerrors.ErrDataUnavailable, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			rc.Close,
		}}, nil
	default:
		return rc, nil
	}
}

type stackedReader struct {
	io.Reader
	closers []func() error
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
