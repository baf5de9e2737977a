// Package store persists the node's configuration record: the recipient
// numbers, the customer identifier and the event counter.
//
// The record is a fixed table of reserved spans over a Cells device. It is
// read once at boot by Load and every mutation is written through
// immediately, rewriting the field's full span.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Config is the in-memory copy of the record.
type Config struct {
	Numbers    [NumPhoneNumbers]string
	CustomerID string
	Counter    uint8
}

// Store owns the record and its in-memory copy. It is not safe for
// concurrent use.
type Store struct {
	cells     Cells
	layout    Layout
	threshold uint8
	logger    *slog.Logger

	config Config
	// readOnly is set when the record's layout is unknown. Setters then
	// only change the in-memory copy.
	readOnly bool
}

// New returns a Store over cells whose in-memory configuration starts from
// defaults. threshold bounds the counter: a stored counter outside
// [0, threshold) loads as zero.
func New(cells Cells, defaults Config, threshold uint8, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cells:     cells,
		layout:    LayoutV1,
		threshold: threshold,
		logger:    logger,
		config:    defaults,
	}
}

// Load reads the record. Empty fields keep their defaults. A blank record
// is read as the current version and stamped.
func (s *Store) Load() error {
	stamp := make([]byte, s.layout.Stamp.Span)
	if err := s.read(s.layout.Stamp, stamp); err != nil {
		return err
	}

	fresh := false
	switch {
	case blank(stamp[0]) && blank(stamp[1]):
		fresh = true
	case stamp[0] == Magic && stamp[1] == s.layout.Version:
	default:
		s.readOnly = true
		return fmt.Errorf("stamp %#02x/%d: %w", stamp[0], stamp[1], ErrUnknownVersion)
	}

	counter := make([]byte, 1)
	if err := s.read(s.layout.Counter, counter); err != nil {
		return err
	}
	loaded := s.config
	loaded.Counter = counter[0]
	if loaded.Counter >= s.threshold {
		if !blank(loaded.Counter) {
			s.logger.Warn("Stored counter out of range, resetting", "counter", loaded.Counter)
		}
		loaded.Counter = 0
	}

	for i, f := range s.layout.Numbers {
		v, err := s.readString(f)
		if err != nil {
			return err
		}
		if v != "" {
			loaded.Numbers[i] = v
		}
	}
	id, err := s.readString(s.layout.CustomerID)
	if err != nil {
		return err
	}
	if id != "" {
		loaded.CustomerID = id
	}

	s.config = loaded

	if fresh {
		if err := s.write(s.layout.Stamp, []byte{Magic, s.layout.Version}); err != nil {
			return err
		}
		s.logger.Info("Stamped blank config record", "version", s.layout.Version)
	}

	s.logger.Info("Configuration loaded",
		"counter", s.config.Counter,
		"numbers", s.config.Numbers,
		"customer_id", s.config.CustomerID,
	)
	return nil
}

// Config returns a copy of the in-memory configuration.
func (s *Store) Config() Config {
	return s.config
}

// ReadOnly reports whether Load found a record it cannot write to.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Numbers returns the configured recipients; empty slots are unset.
func (s *Store) Numbers() [NumPhoneNumbers]string {
	return s.config.Numbers
}

// CustomerID returns the configured customer identifier.
func (s *Store) CustomerID() string {
	return s.config.CustomerID
}

// Counter returns the event counter.
func (s *Store) Counter() uint8 {
	return s.config.Counter
}

// SetNumber updates recipient slot i and persists it.
func (s *Store) SetNumber(i int, v string) error {
	if i < 0 || i >= NumPhoneNumbers {
		return fmt.Errorf("slot %d: %w", i, ErrNoSuchNumber)
	}
	if err := s.writeString(s.layout.Numbers[i], v); err != nil {
		return err
	}
	s.config.Numbers[i] = v
	return nil
}

// SetCustomerID updates the customer identifier and persists it.
func (s *Store) SetCustomerID(v string) error {
	if err := s.writeString(s.layout.CustomerID, v); err != nil {
		return err
	}
	s.config.CustomerID = v
	return nil
}

// SetCounter updates the event counter and persists it.
func (s *Store) SetCounter(n uint8) error {
	if err := s.write(s.layout.Counter, []byte{n}); err != nil {
		return err
	}
	s.config.Counter = n
	return nil
}

func (s *Store) read(f Field, p []byte) error {
	n, err := s.cells.ReadAt(p, f.Offset)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(p)) {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	return nil
}

func (s *Store) write(f Field, p []byte) error {
	if s.readOnly {
		s.logger.Warn("Record layout unknown, change kept in memory only", "field", f.Name)
		return nil
	}
	if _, err := s.cells.WriteAt(p, f.Offset); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return nil
}

// readString returns the value stored in f: the bytes before the first
// terminator or erased cell.
func (s *Store) readString(f Field) (string, error) {
	buf := make([]byte, f.Span)
	if err := s.read(f, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		if blank(b) {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// writeString rewrites the whole span of f with v and zero padding.
func (s *Store) writeString(f Field, v string) error {
	if len(v) >= f.Span {
		return fmt.Errorf("%s %q: %w", f.Name, v, ErrFieldTooLong)
	}
	buf := make([]byte, f.Span)
	copy(buf, v)
	return s.write(f, buf)
}
