// Package node wires the modem, the SMS machine, the configuration store
// and the sampling cycle into one cooperatively scheduled device.
//
// Everything runs on the goroutine calling Tick. Each tick drains the modem
// input, advances the SMS transaction, advances the sampling cycle and,
// until the modem is ready, advances its bring-up.
package node

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"i4.energy/across/telenode/at"
	"i4.energy/across/telenode/clock"
	"i4.energy/across/telenode/command"
	"i4.energy/across/telenode/modem"
	"i4.energy/across/telenode/sensor"
	"i4.energy/across/telenode/store"
)

const (
	// DefaultTickInterval is how often Run calls Tick.
	DefaultTickInterval = 10 * time.Millisecond
	// DefaultInitBackoff is the pause after a failed bring-up.
	DefaultInitBackoff = 5 * time.Second

	maxInbox = 16
)

// Options holds what a Node is built from. Clock, Modem, Store, Pair and
// Probe are required.
type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger

	Modem modem.Config
	Store *store.Store
	Pair  sensor.HumidityThermometer
	Probe sensor.Thermometer
	Cycle sensor.CycleConfig

	// InitBackoff defaults to DefaultInitBackoff.
	InitBackoff time.Duration
}

// Node is the device context: every piece of mutable state lives here and
// is only touched from Tick.
type Node struct {
	clock  clock.Clock
	logger *slog.Logger

	link   *modem.Link
	init   *modem.Initializer
	sms    *modem.SMS
	cycle  *sensor.Cycle
	store  *store.Store

	ready       bool
	backoff     time.Duration
	backingOff  bool
	failedAt    uint32
	inbox       []int
	initFailure error

	mu       sync.Mutex
	snapshot Status
}

// New builds a Node. Nothing touches the modem until the first Tick.
func New(o Options) *Node {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backoff := o.InitBackoff
	if backoff <= 0 {
		backoff = DefaultInitBackoff
	}

	n := &Node{
		clock:   o.Clock,
		logger:  logger,
		store:   o.Store,
		backoff: backoff,
	}
	n.link = modem.NewLink(o.Clock, logger.With("component", "link"))
	n.init = modem.NewInitializer(n.link, o.Modem, o.Clock, logger.With("component", "init"))
	n.sms = modem.NewSMS(n.link, o.Modem, o.Clock, logger.With("component", "sms"),
		n.Ready,
		command.Handler{Target: o.Store, Logger: logger.With("component", "command")},
		o.Store,
	)
	n.cycle = sensor.NewCycle(o.Clock, o.Cycle, o.Pair, o.Probe, o.Store, n.sms, logger.With("component", "cycle"))
	n.snapshot = n.status()
	return n
}

// Ready reports whether modem bring-up has completed.
func (n *Node) Ready() bool {
	return n.ready
}

// Tick runs one cooperative step of every state machine.
func (n *Node) Tick(ctx context.Context) {
	n.drain()
	n.sms.Advance()
	n.cycle.Step()
	if !n.ready {
		n.bringUp(ctx)
	}

	n.mu.Lock()
	n.snapshot = n.status()
	n.mu.Unlock()
}

// Run calls Tick every interval until ctx is done, then releases the modem.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n.logger.Info("Node started", "tick", interval)
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Node stopping")
			if n.link.Attached() {
				if err := n.link.Close(); err != nil {
					n.logger.Warn("Failed to close modem link", "error", err)
				}
			}
			return nil
		case <-ticker.C:
			n.Tick(ctx)
		}
	}
}

// drain reads pending modem input, queues new-message notices and offers
// the oldest one to the SMS machine.
func (n *Node) drain() {
	if !n.link.Attached() {
		return
	}
	if err := n.link.Pump(); err != nil {
		n.logger.Debug("Modem read failed", "error", err)
	}

	for _, urc := range n.link.URCs() {
		if urc == at.UrcCall {
			n.logger.Debug("Incoming call ignored")
			continue
		}
		index, ok := at.ParseNewMessageIndex(urc)
		if !ok {
			n.logger.Warn("Ignoring malformed new message notice", "urc", urc)
			continue
		}
		n.logger.Info("New SMS received", "index", index)
		if len(n.inbox) >= maxInbox {
			n.logger.Warn("Inbox full, dropping oldest notice", "index", n.inbox[0])
			n.inbox = n.inbox[1:]
		}
		n.inbox = append(n.inbox, index)
	}

	if len(n.inbox) > 0 && n.ready && n.sms.Idle() {
		if n.sms.RequestRead(n.inbox[0]) {
			n.inbox = n.inbox[1:]
		}
	}
}

func (n *Node) bringUp(ctx context.Context) {
	if n.backingOff {
		if !clock.Reached(n.clock, n.failedAt, n.backoff) {
			return
		}
		n.backingOff = false
	}

	if n.init.Step(ctx) {
		n.ready = true
		n.initFailure = nil
		return
	}
	if err := n.init.Err(); err != nil {
		n.initFailure = err
		n.backingOff = true
		n.failedAt = n.clock.Millis()
		n.logger.Warn("Retrying modem bring-up after backoff", "backoff", n.backoff)
	}
}
