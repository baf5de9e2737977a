package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Cells is byte-addressable persistent memory.
type Cells interface {
	io.ReaderAt
	io.WriterAt
}

// MemCells keeps the record in memory. The zero value is unusable; use
// NewMemCells.
type MemCells struct {
	mu    sync.Mutex
	cells []byte
}

// NewMemCells returns size erased (0xFF) cells.
func NewMemCells(size int) *MemCells {
	m := &MemCells{cells: make([]byte, size)}
	for i := range m.cells {
		m.cells[i] = 0xFF
	}
	return m
}

func (m *MemCells) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off >= int64(len(m.cells)) {
		return 0, io.EOF
	}
	n := copy(p, m.cells[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemCells) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(m.cells)) {
		return 0, fmt.Errorf("write %d cells at %d: %w", len(p), off, io.ErrShortWrite)
	}
	return copy(m.cells[off:], p), nil
}

// Bytes returns a copy of the cells.
func (m *MemCells) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.cells...)
}

// FileCells keeps the record in a fixed-size file. Every write is synced
// before it returns.
type FileCells struct {
	f *os.File
}

// OpenFileCells opens path, creating it and growing it to size erased
// cells when needed.
func OpenFileCells(path string, size int64) (*FileCells, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat config store: %w", err)
	}
	if have := info.Size(); have < size {
		pad := make([]byte, size-have)
		for i := range pad {
			pad[i] = 0xFF
		}
		if _, err := f.WriteAt(pad, have); err != nil {
			f.Close()
			return nil, fmt.Errorf("grow config store: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("sync config store: %w", err)
		}
	}
	return &FileCells{f: f}, nil
}

func (c *FileCells) ReadAt(p []byte, off int64) (int, error) {
	return c.f.ReadAt(p, off)
}

func (c *FileCells) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.f.WriteAt(p, off)
	if err != nil {
		return n, err
	}
	return n, c.f.Sync()
}

// Close closes the underlying file.
func (c *FileCells) Close() error {
	if c.f == nil {
		return errors.New("config store not open")
	}
	err := c.f.Close()
	c.f = nil
	return err
}
