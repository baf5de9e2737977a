package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional byte stream to a GSM modem.
//
// A Transport is assumed to be already connected and ready for use. Read
// must not block for longer than a few milliseconds: when nothing is
// available it returns (0, nil) so the node's cooperative loop keeps
// ticking. Typical implementations include serial ports opened with a short
// read timeout, or in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a GSM modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or test double) and is used by the Initializer during its
// first bring-up step. Once a Transport is obtained, the Dialer is only
// needed again if the link is closed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It may
	// perform blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}

// DefaultReadTimeout bounds how long a serial Read waits for data.
const DefaultReadTimeout = 5 * time.Millisecond

// SerialDialer opens a GSM modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. /dev/ttyUSB0 or /dev/ttyS1.
	PortName string
	// BaudRate is used when Mode is nil. Defaults to 9600, the SIM800L
	// factory rate.
	BaudRate int
	// Mode overrides the full serial line settings.
	Mode *serial.Mode
	// ReadTimeout keeps reads non-blocking. Defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

var (
	errNoPortName = errors.New("modem: serial port name is required")
	errNilContext = errors.New("modem: context is nil")
)

// Dial opens the configured port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errNilContext
	}
	if d.PortName == "" {
		return nil, errNoPortName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 9600
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}

	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.PortName, err)
	}

	return port, nil
}
