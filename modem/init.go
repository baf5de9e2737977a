package modem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/telenode/at"
	"i4.energy/across/telenode/clock"
)

// bringUpStep is one AT exchange of the bring-up sequence.
type bringUpStep struct {
	command   string
	settle    func(Config) time.Duration
	requireOK bool
	// registration marks the network registration query, whose absence is
	// only worth a warning.
	registration bool
}

func commandSettle(c Config) time.Duration  { return c.commandSettle }
func registerSettle(c Config) time.Duration { return c.registerSettle }

// bringUp lists the steps that follow the transport start, in order.
var bringUp = []bringUpStep{
	{command: at.CmdEchoOff, settle: commandSettle},
	{command: at.CmdAt, settle: commandSettle, requireOK: true},
	{command: at.CmdStorage, settle: commandSettle},
	{command: at.CmdSetTextMode, settle: commandSettle, requireOK: true},
	{command: at.CmdNotify, settle: commandSettle},
	{command: at.CmdRegistration, settle: registerSettle, registration: true},
}

// Initializer brings the modem up as a one-shot, non-blocking state
// machine. Step 0 opens the transport and waits for the modem to boot;
// steps 1 to 6 each issue one command through the Link and collect its
// response window.
type Initializer struct {
	link   *Link
	config Config
	clock  clock.Clock
	logger *slog.Logger

	step        int
	stepStart   uint32
	stepStarted bool
	// settled is set once the current step's command passed its settle
	// delay and the step is collecting the response.
	settled bool
	err     error
}

// NewInitializer creates an Initializer driving link.
func NewInitializer(link *Link, config Config, c clock.Clock, logger *slog.Logger) *Initializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{
		link:   link,
		config: config,
		clock:  c,
		logger: logger,
	}
}

// Step advances the bring-up sequence by at most one transition. It
// returns true exactly once, on the tick the final step completes, and
// false on every other tick including failures. After a failure Err
// reports the cause and the sequence has been reset to its first step; the
// caller should back off before calling Step again.
func (i *Initializer) Step(ctx context.Context) bool {
	i.err = nil

	if !i.stepStarted {
		i.stepStart = i.clock.Millis()
		i.stepStarted = true
	}

	if i.step == 0 {
		return i.start(ctx)
	}

	s := bringUp[i.step-1]
	if !i.settled {
		if !i.link.IssueOnce(s.command, s.settle(i.config)) {
			return false
		}
		i.settled = true
	}
	if !i.link.CollectWindow(i.config.responseTimeout) {
		return false
	}

	resp := i.link.Response()
	if s.requireOK && !at.Acknowledged(resp) {
		i.fail(fmt.Errorf("%s: %w", s.command, ErrNotAcknowledged))
		return false
	}
	if s.registration && !at.Registered(resp) {
		i.logger.Warn("Not registered on network yet", "response", resp)
	}

	if i.step == len(bringUp) {
		i.logger.Info("Modem initialized and configured")
		i.reset()
		return true
	}
	i.next()
	return false
}

// Err returns why the most recent Step failed, or nil.
func (i *Initializer) Err() error {
	return i.err
}

// Running reports whether a bring-up is past its first step.
func (i *Initializer) Running() bool {
	return i.step > 0
}

func (i *Initializer) start(ctx context.Context) bool {
	if !i.link.Attached() {
		i.logger.Info("Attempting to initialize GSM modem")
		if i.config.dialer == nil {
			i.fail(ErrNoDialer)
			return false
		}
		transport, err := i.config.dialer.Dial(ctx)
		if err != nil {
			i.fail(fmt.Errorf("dial modem: %w", err))
			return false
		}
		if transport == nil {
			i.fail(fmt.Errorf("dial modem: %w", ErrNotAttached))
			return false
		}
		i.link.Attach(transport)
		i.stepStart = i.clock.Millis()
	}

	if !clock.Reached(i.clock, i.stepStart, i.config.bootDelay) {
		return false
	}
	i.logger.Info("Configuring GSM modem")
	i.next()
	return false
}

func (i *Initializer) next() {
	i.step++
	i.stepStarted = false
	i.settled = false
}

func (i *Initializer) reset() {
	i.step = 0
	i.stepStarted = false
	i.settled = false
}

func (i *Initializer) fail(err error) {
	i.err = err
	i.logger.Error("GSM init failed", "step", i.step, "error", err)
	i.link.Reset()
	i.reset()
}
