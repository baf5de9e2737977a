package sensor

import (
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/telenode/clock"
	"i4.energy/across/telenode/modem"
	"i4.energy/across/telenode/store"
)

// State is the sampling cycle's position.
type State int

const (
	Idle State = iota
	WaitFirstSensorSettle
	ReadFirstSensor
	WaitSecondSensorSettle
	ReadSecondSensor
	ProcessAndMaybeReport
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitFirstSensorSettle:
		return "wait-first-sensor"
	case ReadFirstSensor:
		return "read-first-sensor"
	case WaitSecondSensorSettle:
		return "wait-second-sensor"
	case ReadSecondSensor:
		return "read-second-sensor"
	case ProcessAndMaybeReport:
		return "process"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sender starts an SMS transaction. It is satisfied by *modem.SMS.
type Sender interface {
	RequestSend(message, recipient string) modem.SendResult
	Idle() bool
}

// Record is the persistent part of the cycle: the event counter and the
// report recipients. It is satisfied by *store.Store.
type Record interface {
	Counter() uint8
	SetCounter(n uint8) error
	Numbers() [store.NumPhoneNumbers]string
}

// CycleConfig tunes the sampling cycle. Zero durations take the defaults
// below.
type CycleConfig struct {
	// Interval separates the end of one cycle from the start of the next.
	// Defaults to 5 minutes.
	Interval time.Duration
	// FirstSettle precedes the humidity read. Defaults to 2s.
	FirstSettle time.Duration
	// SecondSettle precedes the probe read. Defaults to 100ms.
	SecondSettle time.Duration
	// IdleCheck is how often a closed Gate is consulted again. Defaults
	// to 5s.
	IdleCheck time.Duration
	// RetryDelay is how long a queued report waits after the modem turned
	// it away as not ready. Defaults to 5s.
	RetryDelay time.Duration
	// Threshold is the counter value that triggers a report. Defaults to 12.
	Threshold uint8

	// Gate, when set, must report true for a cycle to start.
	Gate func() bool
	// OnReport, when set, receives every report as it is queued.
	OnReport func(Report)
}

func (c *CycleConfig) setDefaults() {
	if c.Interval == 0 {
		c.Interval = 5 * time.Minute
	}
	if c.FirstSettle == 0 {
		c.FirstSettle = 2 * time.Second
	}
	if c.SecondSettle == 0 {
		c.SecondSettle = 100 * time.Millisecond
	}
	if c.IdleCheck == 0 {
		c.IdleCheck = 5 * time.Second
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.Threshold == 0 {
		c.Threshold = 12
	}
}

// Cycle is the periodic sampling state machine. Every Step makes at most one
// transition and never blocks.
type Cycle struct {
	clock  clock.Clock
	config CycleConfig
	logger *slog.Logger

	pair   HumidityThermometer
	probe  Thermometer
	record Record
	sender Sender

	state     State
	since     uint32
	lastCycle uint32
	gated     bool
	gateSince uint32
	acc       Accumulator

	outbox     *outbox
	offering   bool
	retrying   bool
	retrySince uint32
}

// NewCycle creates a Cycle. The first cycle starts one Interval after
// construction.
func NewCycle(c clock.Clock, config CycleConfig, pair HumidityThermometer, probe Thermometer, record Record, sender Sender, logger *slog.Logger) *Cycle {
	if logger == nil {
		logger = slog.Default()
	}
	config.setDefaults()
	return &Cycle{
		clock:     c,
		config:    config,
		logger:    logger,
		pair:      pair,
		probe:     probe,
		record:    record,
		sender:    sender,
		lastCycle: c.Millis(),
		outbox:    newOutbox(store.NumPhoneNumbers*2, logger),
	}
}

// State returns the current state.
func (c *Cycle) State() State {
	return c.state
}

// Accumulator returns a copy of the running sums.
func (c *Cycle) Accumulator() Accumulator {
	return c.acc
}

// Queued returns the number of report messages awaiting admission.
func (c *Cycle) Queued() int {
	return c.outbox.size()
}

// Step offers the next queued report to the sender and advances the cycle.
func (c *Cycle) Step() {
	c.flush()

	now := c.clock.Millis()
	switch c.state {
	case Idle:
		if !clock.Reached(c.clock, c.lastCycle, c.config.Interval) {
			return
		}
		if c.config.Gate != nil {
			if c.gated && !clock.Reached(c.clock, c.gateSince, c.config.IdleCheck) {
				return
			}
			if !c.config.Gate() {
				c.logger.Debug("Trigger condition not met, waiting")
				c.gated = true
				c.gateSince = now
				return
			}
			c.gated = false
		}
		c.logger.Info("Starting new reading cycle")
		c.enter(WaitFirstSensorSettle)

	case WaitFirstSensorSettle:
		if clock.Reached(c.clock, c.since, c.config.FirstSettle) {
			c.enter(ReadFirstSensor)
		}

	case ReadFirstSensor:
		h, t := c.pair.Read()
		if c.acc.AddPair(h, t) {
			c.logger.Info("Humidity sensor read", "humidity", h, "temperature", t)
		} else {
			c.logger.Warn("Humidity sensor read failed")
		}
		c.enter(WaitSecondSensorSettle)

	case WaitSecondSensorSettle:
		if clock.Reached(c.clock, c.since, c.config.SecondSettle) {
			c.enter(ReadSecondSensor)
		}

	case ReadSecondSensor:
		c.probe.RequestTemperatures()
		t := c.probe.TemperatureC()
		if c.acc.AddProbe(t) {
			c.logger.Info("Probe read", "temperature", t)
		} else {
			c.logger.Warn("Probe read rejected", "temperature", t)
		}
		c.enter(ProcessAndMaybeReport)

	case ProcessAndMaybeReport:
		c.process()
		c.lastCycle = c.clock.Millis()
		c.logger.Info("Reading cycle complete")
		c.enter(Idle)
	}
}

func (c *Cycle) process() {
	c.acc.CompleteCycle()

	counter := c.record.Counter() + 1
	if err := c.record.SetCounter(counter); err != nil {
		c.logger.Error("Failed to persist counter", "counter", counter, "error", err)
	}
	c.logger.Info("Event counter", "counter", counter)

	if counter < c.config.Threshold || c.acc.Count == 0 {
		return
	}

	report := c.acc.Report()
	message := report.String()
	c.logger.Info("Queueing report", "message", message)
	for i, number := range c.record.Numbers() {
		if number == "" {
			c.logger.Debug("Recipient not configured, skipping", "slot", i)
			continue
		}
		c.outbox.push(message, number)
	}
	if c.config.OnReport != nil {
		c.config.OnReport(report)
	}

	c.acc.Reset()
	if err := c.record.SetCounter(0); err != nil {
		c.logger.Error("Failed to persist counter", "counter", 0, "error", err)
	}
}

// flush offers the outbox head to the sender. A send whose network time
// is still being fetched is offered again on every tick; otherwise the
// sender must be idle, and after a not-ready rejection RetryDelay must
// pass first.
func (c *Cycle) flush() {
	entry, ok := c.outbox.head()
	if !ok {
		return
	}
	if !c.offering {
		if !c.sender.Idle() {
			return
		}
		if c.retrying && !clock.Reached(c.clock, c.retrySince, c.config.RetryDelay) {
			return
		}
	}

	result := c.sender.RequestSend(entry.message, entry.recipient)
	c.offering = result == modem.SendPending
	c.retrying = false
	switch result {
	case modem.SendAdmitted:
		c.outbox.pop()
	case modem.SendNotReady:
		c.retrying = true
		c.retrySince = c.clock.Millis()
	}
}

func (c *Cycle) enter(state State) {
	c.state = state
	c.since = c.clock.Millis()
}
