package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/odina101/cossacks-web/logging"
)

// Zstd writes newline-delimited JSON events through a zstd encoder. It keeps
// long simulation runs cheap to archive.
type Zstd struct {
	mu     sync.Mutex
	closer io.Closer
	enc    *zstd.Encoder
	w      *bufio.Writer
	closed bool
}

// NewZstdFile creates (or truncates) path and returns a sink writing to it.
func NewZstdFile(path string) (*Zstd, error) {
	if path == "" {
		return nil, errors.New("zstd sink: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("zstd sink: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("zstd sink: open %s: %w", path, err)
	}
	sink, err := NewZstd(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sink.closer = f
	return sink, nil
}

// NewZstd wraps w. The caller keeps ownership of w.
func NewZstd(w io.Writer) (*Zstd, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd sink: %w", err)
	}
	return &Zstd{enc: enc, w: bufio.NewWriter(enc)}, nil
}

func (s *Zstd) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("zstd sink: closed")
	}
	data, err := json.Marshal(wireEvent(event))
	if err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close flushes the frame and closes the underlying file when the sink
// opened it.
func (s *Zstd) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.w.Flush()
	if cerr := s.enc.Close(); err == nil {
		err = cerr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
