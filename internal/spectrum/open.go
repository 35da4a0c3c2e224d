package spectrum

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Open opens a capture for reading. Paths ending in .gz are decompressed
// with parallel gzip, paths ending in .zst with zstd. Closing the returned
// reader closes the file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedReader{Reader: gz, closers: []io.Closer{gz, f}}, nil

	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc := dec.IOReadCloser()
		return &stackedReader{Reader: rc, closers: []io.Closer{rc, f}}, nil
	}

	return f, nil
}

// TrimExt strips a compression suffix and then the data suffix from path,
// e.g. "scan.csv.gz" -> "scan".
func TrimExt(path string) string {
	for _, ext := range []string{".gz", ".zst", ".csv"} {
		path = strings.TrimSuffix(path, ext)
	}
	return path
}

// stackedReader closes a decompressor before its underlying file.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
