package http11

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/originserver/internal/metrics"
)

// spillDirGroup deduplicates concurrent first-spill callers so only
// one of them actually does the os.MkdirAll for the shared spill
// directory; the rest wait for and reuse that result instead of
// racing redundant MkdirAll calls against each other.
var spillDirGroup singleflight.Group

// spillDir returns the directory spilled bodies are created in,
// creating it on first use.
func spillDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "http11-spill")
	_, err, _ := spillDirGroup.Do(dir, func() (interface{}, error) {
		return dir, os.MkdirAll(dir, 0o700)
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}

// Spill is a backing store that starts in memory (pooled via
// bytebufferpool, per DESIGN.md) and transparently transitions to a
// temporary file once its configured in-memory threshold is exceeded.
// It backs every Fixed body with a positive Content-Length and every
// Chunked body (whose total length is unknown until the terminating
// chunk arrives); a body no larger than max_memory_receiver stays in
// memory.
type Spill struct {
	threshold int64

	mem      *bytebufferpool.ByteBuffer
	memBytes int64

	file     *os.File
	fileSize int64
	spilled  bool

	closed bool
}

// NewSpill creates a Spill that stays in memory until threshold bytes
// have been written, then migrates to a temp file.
func NewSpill(threshold int64) *Spill {
	return &Spill{
		threshold: threshold,
		mem:       bytebufferpool.Get(),
	}
}

// Write appends p to the backing store, migrating to disk if threshold
// is crossed.
func (s *Spill) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("http11: write to closed spill")
	}

	if !s.spilled {
		if s.memBytes+int64(len(p)) <= s.threshold || s.threshold <= 0 {
			n, err := s.mem.Write(p)
			s.memBytes += int64(n)
			return n, err
		}
		if err := s.migrateToDisk(); err != nil {
			return 0, err
		}
	}

	n, err := s.file.Write(p)
	s.fileSize += int64(n)
	return n, err
}

func (s *Spill) migrateToDisk() error {
	dir, err := spillDir()
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "spill-*")
	if err != nil {
		return err
	}
	metrics.BodySpillsTotal.Inc()
	if _, err := f.Write(s.mem.B); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	s.fileSize = int64(len(s.mem.B))
	bytebufferpool.Put(s.mem)
	s.mem = nil
	s.file = f
	s.spilled = true
	return nil
}

// Size returns the total number of bytes written so far.
func (s *Spill) Size() int64 {
	if s.spilled {
		return s.fileSize
	}
	return s.memBytes
}

// Open returns a fresh io.ReadCloser positioned at the start of the
// spilled data, regardless of whether it lives in memory or on disk.
func (s *Spill) Open() (io.ReadCloser, error) {
	if s.spilled {
		f, err := os.Open(s.file.Name())
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	data := make([]byte, len(s.mem.B))
	copy(data, s.mem.B)
	return io.NopCloser(newByteSliceReader(data)), nil
}

// Read materializes the entire backing store into a single []byte.
// Intended for small/typical bodies; large spilled bodies should
// prefer Open() to avoid holding the whole payload in memory twice.
func (s *Spill) Read() ([]byte, error) {
	if !s.spilled {
		out := make([]byte, len(s.mem.B))
		copy(out, s.mem.B)
		return out, nil
	}
	return os.ReadFile(s.file.Name())
}

// Close releases the backing store, removing any temp file created.
func (s *Spill) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.mem != nil {
		bytebufferpool.Put(s.mem)
		s.mem = nil
	}
	if s.file != nil {
		name := s.file.Name()
		s.file.Close()
		return os.Remove(name)
	}
	return nil
}

// byteSliceReader is a minimal io.Reader over an owned []byte, used to
// avoid pulling in bytes.Reader's Seek/ReadAt surface that Spill.Open
// callers don't need.
type byteSliceReader struct {
	data []byte
	pos  int
}

func newByteSliceReader(data []byte) *byteSliceReader {
	return &byteSliceReader{data: data}
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
