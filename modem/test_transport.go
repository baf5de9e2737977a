package modem

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// TestTransport is a test helper that simulates a serial port with a short
// read timeout: Read returns whatever has been fed so far, or (0, nil) when
// nothing is pending. Everything written is recorded for inspection.
type TestTransport struct {
	mu      sync.Mutex
	inbound bytes.Buffer
	writes  []string
	closed  bool
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests of packages built on the modem link.
func NewTestTransport() *TestTransport {
	return &TestTransport{}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.writes = append(t.writes, string(p))
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	if t.inbound.Len() == 0 {
		return 0, nil
	}
	return t.inbound.Read(p)
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the modem.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound.WriteString(data)
}

// Writes returns every chunk written so far, in order.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// Count returns how many writes started with prefix.
func (t *TestTransport) Count(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, w := range t.writes {
		if strings.HasPrefix(w, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets recorded writes.
func (t *TestTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = nil
}
