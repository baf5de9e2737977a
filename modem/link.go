package modem

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/telenode/at"
	"i4.energy/across/telenode/clock"
)

const (
	// readChunk is the size of a single transport read.
	readChunk = 256
	// maxReadsPerPump bounds the time a single Pump can spend reading.
	maxReadsPerPump = 16
	// maxLineLength is the longest unterminated line kept by the line
	// assembler: a 160 character body plus a generous header.
	maxLineLength = 512
	// maxQueuedURCs bounds the unsolicited result codes kept between ticks.
	maxQueuedURCs = 16
)

// pendingCommand is the last command issued through IssueOnce.
type pendingCommand struct {
	command  string
	issuedAt uint32
}

// window is a response collection window.
type window struct {
	open  bool
	start uint32
}

// Link owns the serial connection to the modem. It is not safe for
// concurrent use: the node drives it from a single cooperative loop and at
// most one state machine holds it at a time.
//
// All bytes read from the transport pass through Pump. From the moment a
// command is written until its collection window closes they are appended
// to the response buffer, so a reply that arrives during the settle delay
// is not lost to the unsolicited-input drain. Independently, every byte is
// split into lines and unsolicited result codes are queued for URCs.
type Link struct {
	clock  clock.Clock
	logger *slog.Logger

	transport Transport
	closed    bool

	pending  pendingCommand
	window   window
	capture  bool
	response []byte

	partial []byte
	urcs    []string
	scratch [readChunk]byte
}

// NewLink creates a Link with no transport attached.
func NewLink(c clock.Clock, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		clock:  c,
		logger: logger,
	}
}

// Attach binds an open transport to the link and clears all transaction
// state.
func (l *Link) Attach(t Transport) {
	l.transport = t
	l.closed = false
	l.Reset()
	l.partial = l.partial[:0]
	l.urcs = nil
}

// Attached reports whether a transport is bound.
func (l *Link) Attached() bool {
	return l.transport != nil && !l.closed
}

// Close releases the transport.
func (l *Link) Close() error {
	if l.closed {
		return ErrAlreadyClosed
	}
	l.closed = true
	if l.transport != nil {
		return l.transport.Close()
	}
	return nil
}

// IssueOnce transmits command the first time it is asked for, and reports
// readiness once settle has elapsed since that transmission.
//
// While command is the pending command repeated calls never retransmit it.
// When it reports true the pending slot is cleared, so the next call with
// the same command starts a new logical request.
func (l *Link) IssueOnce(command string, settle time.Duration) bool {
	if l.pending.command != command {
		l.pending = pendingCommand{command: command, issuedAt: l.clock.Millis()}
		if err := l.Send(command); err != nil {
			l.logger.Warn("Failed to write command", "command", command, "error", err)
		}
		return false
	}

	if clock.Reached(l.clock, l.pending.issuedAt, settle) {
		l.pending = pendingCommand{}
		return true
	}
	return false
}

// CollectWindow accumulates modem output for timeout. The first call after
// idle starts the window, clearing the response buffer unless a command
// written since the last window is already being captured; every call
// pumps available bytes. It reports true once timeout elapsed since the
// window started, whether or not a final result was seen.
func (l *Link) CollectWindow(timeout time.Duration) bool {
	if !l.window.open {
		l.window = window{open: true, start: l.clock.Millis()}
		if !l.capture {
			l.response = l.response[:0]
			l.capture = true
		}
	}

	if err := l.Pump(); err != nil {
		l.logger.Debug("Read during response window failed", "error", err)
	}

	if clock.Reached(l.clock, l.window.start, timeout) {
		l.window.open = false
		l.capture = false
		return true
	}
	return false
}

// Send writes command terminated by CRLF.
func (l *Link) Send(command string) error {
	return l.Write([]byte(strings.TrimSpace(command) + at.CRLF))
}

// Write writes raw bytes, such as a message body or its terminator, and
// starts capturing the reply.
func (l *Link) Write(p []byte) error {
	if !l.Attached() {
		return ErrNotAttached
	}
	if !l.window.open {
		l.response = l.response[:0]
		l.capture = true
	}
	if _, err := l.transport.Write(p); err != nil {
		return fmt.Errorf("write %q: %w", p, err)
	}
	return nil
}

// Pump reads what the transport has available right now.
func (l *Link) Pump() error {
	if !l.Attached() {
		return ErrNotAttached
	}

	var errs []error
	for range maxReadsPerPump {
		n, err := l.transport.Read(l.scratch[:])
		if n > 0 {
			chunk := l.scratch[:n]
			if l.capture {
				l.response = append(l.response, chunk...)
			}
			if err := l.assemble(chunk); err != nil {
				errs = append(errs, err)
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("read: %w", err))
			break
		}
		if n == 0 {
			break
		}
	}
	return errors.Join(errs...)
}

// assemble splits incoming bytes into lines and queues URCs.
func (l *Link) assemble(chunk []byte) error {
	data := append(l.partial, chunk...)
	off := 0
	for {
		advance, token, _ := at.Splitter(data[off:], false)
		if advance == 0 {
			break
		}
		off += advance

		line := strings.TrimSpace(string(token))
		if line == "" || at.Classify(line) != at.TypeURC {
			continue
		}
		if len(l.urcs) >= maxQueuedURCs {
			l.logger.Warn("Dropping unsolicited result code, queue full", "urc", l.urcs[0])
			l.urcs = l.urcs[1:]
		}
		l.urcs = append(l.urcs, line)
	}

	l.partial = append(data[:0], data[off:]...)
	if len(l.partial) > maxLineLength {
		l.partial = l.partial[:0]
		return ErrLineTooLong
	}
	return nil
}

// URCs returns and clears the queued unsolicited result codes.
func (l *Link) URCs() []string {
	urcs := l.urcs
	l.urcs = nil
	return urcs
}

// Response returns what the most recent window collected.
func (l *Link) Response() string {
	return string(l.response)
}

// Busy reports whether a command is awaiting its settle delay or its
// reply is still being collected.
func (l *Link) Busy() bool {
	return l.pending.command != "" || l.capture
}

// Reset abandons the pending command and any open window.
func (l *Link) Reset() {
	l.pending = pendingCommand{}
	l.window = window{}
	l.capture = false
	l.response = l.response[:0]
}
