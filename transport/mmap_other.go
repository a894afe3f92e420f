//go:build !unix

package transport

import (
	"errors"
	"io"
)

var errMmapUnsupported = errors.New("transport: memory-mapped IO not supported on this platform")

func mmapReader(path string, offset, size int64) (io.ReadCloser, error) {
	return nil, errMmapUnsupported
}
