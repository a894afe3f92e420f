//go:build unix

package transport

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// mmapReader maps [offset, offset+size) of the file and serves it as a
// reader. The mapping must start on a page boundary, so the requested
// offset is rounded down and the surplus skipped inside the mapping.
func mmapReader(path string, offset, size int64) (rc io.ReadCloser, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	defer file.Close()

	pageSize := int64(os.Getpagesize())
	aligned := offset - offset%pageSize
	skip := offset - aligned

	data, err := unix.Mmap(int(file.Fd()), aligned, int(size+skip),
		unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("transport: mmap %s: %w", path, err)
	}
	return &mmapCloser{
		Reader: bytes.NewReader(data[skip : skip+size]),
		mapped: data,
	}, nil
}

type mmapCloser struct {
	*bytes.Reader
	mapped []byte
}

func (m *mmapCloser) Close() error { return unix.Munmap(m.mapped) }
