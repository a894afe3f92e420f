package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// IOMode selects the strategy used to read file-backed request bodies.
type IOMode int

const (
	// Buffered streams the file range through a buffered reader.
	Buffered IOMode = iota
	// Positional issues offset reads (pread) without a shared file cursor,
	// so concurrent workers can share one descriptor safely.
	Positional
	// MemoryMapped maps the file range into memory. Falls back to
	// Positional on platforms without mmap support.
	MemoryMapped
)

// BodySource supplies a request body. Sources are re-openable: retries call
// NewReader again instead of rewinding a consumed stream.
type BodySource interface {
	// NewReader opens a fresh reader over the full payload.
	NewReader() (io.ReadCloser, error)
	// Len returns the exact payload size in bytes.
	Len() int64
}

// memorySource serves a byte slice.
type memorySource struct {
	data []byte
}

// NewMemorySource returns a BodySource over data. The slice is not copied;
// callers must not mutate it while a transfer is in flight.
func NewMemorySource(data []byte) BodySource {
	return &memorySource{data: data}
}

func (m *memorySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *memorySource) Len() int64 { return int64(len(m.data)) }

// FileSource serves a byte range of a file using the configured IOMode.
type FileSource struct {
	Path   string
	Offset int64
	Size   int64
	Mode   IOMode
}

func (f *FileSource) Len() int64 { return f.Size }

func (f *FileSource) NewReader() (rc io.ReadCloser, err error) {
	switch f.Mode {
	case MemoryMapped:
		if rc, err = mmapReader(f.Path, f.Offset, f.Size); err == nil {
			return
		}
		// fall back to positional reads when mapping is unavailable
		fallthrough
	case Positional:
		var file *os.File
		if file, err = os.Open(f.Path); err != nil {
			return nil, fmt.Errorf("transport: open %s: %w", f.Path, err)
		}
		return &sectionCloser{
			SectionReader: io.NewSectionReader(file, f.Offset, f.Size),
			file:          file,
		}, nil
	default:
		var file *os.File
		if file, err = os.Open(f.Path); err != nil {
			return nil, fmt.Errorf("transport: open %s: %w", f.Path, err)
		}
		if _, err = file.Seek(f.Offset, io.SeekStart); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("transport: seek %s: %w", f.Path, err)
		}
		return &readCloser{
			Reader: io.LimitReader(bufio.NewReader(file), f.Size),
			close:  file.Close,
		}, nil
	}
}

type sectionCloser struct {
	*io.SectionReader
	file *os.File
}

func (s *sectionCloser) Close() error { return s.file.Close() }

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }

// readerSource serves a caller-supplied reader factory.
type readerSource struct {
	open func() (io.ReadCloser, error)
	size int64
}

// NewReaderSource returns a BodySource backed by a reader factory. The
// factory is invoked once per attempt, so it must yield the payload from
// the start each time.
func NewReaderSource(open func() (io.ReadCloser, error), size int64) BodySource {
	return &readerSource{open: open, size: size}
}

func (r *readerSource) NewReader() (io.ReadCloser, error) { return r.open() }

func (r *readerSource) Len() int64 { return r.size }
