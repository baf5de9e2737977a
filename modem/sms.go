package modem

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/telenode/at"
	"i4.energy/across/telenode/clock"
)

// SMSState is the discriminant of the SMS transaction state machine.
type SMSState int

const (
	SMSIdle SMSState = iota
	SMSReading
	SMSDeleting
	SMSSendingNumber
	SMSSendingMessage
	SMSSendingEnd
)

func (s SMSState) String() string {
	switch s {
	case SMSIdle:
		return "idle"
	case SMSReading:
		return "reading"
	case SMSDeleting:
		return "deleting"
	case SMSSendingNumber:
		return "sending-number"
	case SMSSendingMessage:
		return "sending-message"
	case SMSSendingEnd:
		return "sending-end"
	default:
		return fmt.Sprintf("SMSState(%d)", int(s))
	}
}

// SendResult tells a caller of RequestSend what became of the request.
type SendResult int

const (
	// SendAdmitted means the transaction started; the caller is done.
	SendAdmitted SendResult = iota
	// SendPending means the network time is still being fetched. Nothing
	// was sent for this request; call again on a later tick.
	SendPending
	// SendBusy means another transaction holds the modem. The request was
	// dropped.
	SendBusy
	// SendNotReady means the modem has not finished bring-up. The request
	// was dropped.
	SendNotReady
)

func (r SendResult) String() string {
	switch r {
	case SendAdmitted:
		return "admitted"
	case SendPending:
		return "pending"
	case SendBusy:
		return "busy"
	case SendNotReady:
		return "not-ready"
	default:
		return fmt.Sprintf("SendResult(%d)", int(r))
	}
}

// Handler receives the body of every message read from the modem.
type Handler interface {
	HandleSMS(body string)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(body string)

func (f HandlerFunc) HandleSMS(body string) { f(body) }

// Identity supplies the customer identifier prefixed to outgoing messages.
type Identity interface {
	CustomerID() string
}

// SMS serializes every text-message transaction (read, delete, send) over
// the Link. It is the only user of the Link once the modem is ready.
//
// Requests are admitted only while the machine is idle; anything arriving
// during a transaction is dropped and reported to the caller.
type SMS struct {
	link     *Link
	config   Config
	clock    clock.Clock
	logger   *slog.Logger
	ready    func() bool
	handler  Handler
	identity Identity

	state     SMSState
	since     uint32
	index     int
	message   string
	recipient string
	fetch     timestampFetch
}

// NewSMS creates the SMS state machine. ready reports whether bring-up has
// completed; handler receives read message bodies and identity supplies the
// customer id. handler and identity may be nil.
func NewSMS(link *Link, config Config, c clock.Clock, logger *slog.Logger, ready func() bool, handler Handler, identity Identity) *SMS {
	if logger == nil {
		logger = slog.Default()
	}
	if ready == nil {
		ready = func() bool { return true }
	}
	return &SMS{
		link:     link,
		config:   config,
		clock:    c,
		logger:   logger,
		ready:    ready,
		handler:  handler,
		identity: identity,
	}
}

// State returns the current transaction state.
func (s *SMS) State() SMSState {
	return s.state
}

// Idle reports whether a new transaction could be admitted now.
func (s *SMS) Idle() bool {
	return s.state == SMSIdle && !s.fetch.inFlight()
}

// RequestRead starts reading the message stored at index. It is admitted
// only when the modem is ready and no transaction or time fetch is in
// flight.
func (s *SMS) RequestRead(index int) bool {
	if !s.ready() {
		s.logger.Warn("Cannot read SMS, modem not ready", "index", index)
		return false
	}
	if !s.Idle() {
		s.logger.Warn("SMS operation in progress, dropping read", "index", index, "state", s.state)
		return false
	}

	s.logger.Info("Reading SMS", "index", index)
	s.index = index
	if err := s.link.Send(fmt.Sprintf(at.CmdReadMessage, index)); err != nil {
		s.logger.Warn("Failed to request SMS", "index", index, "error", err)
	}
	s.enter(SMSReading)
	return true
}

// RequestSend starts sending message to recipient, prefixed with the
// customer id and the network time.
//
// The network time is fetched first without blocking: while it is pending
// RequestSend returns SendPending and writes nothing beyond the single
// clock query, so the caller can simply call again on the next tick.
func (s *SMS) RequestSend(message, recipient string) SendResult {
	if !s.ready() {
		s.logger.Warn("Cannot send SMS, modem not ready", "recipient", recipient)
		return SendNotReady
	}
	if s.state != SMSIdle {
		s.logger.Warn("SMS operation in progress, skipping send", "recipient", recipient, "state", s.state)
		return SendBusy
	}

	ts, ok, done := s.fetch.poll(s.link, s.config)
	if !done {
		return SendPending
	}

	if ok {
		message = ts + " - " + message
	} else {
		s.logger.Warn("Failed to get network time, sending with placeholder")
		message = "No TS - " + message
	}
	message = "ID:" + s.customerID() + " - " + message

	if len(message) > s.config.maxMessageLength {
		s.logger.Warn("SMS is long, may be truncated or split", "length", len(message))
	}

	s.logger.Info("Setting phone number", "recipient", recipient)
	s.message = message
	s.recipient = recipient
	if err := s.link.Send(fmt.Sprintf(at.CmdSendMessage, recipient)); err != nil {
		s.logger.Warn("Failed to start SMS", "recipient", recipient, "error", err)
	}
	s.enter(SMSSendingNumber)
	return SendAdmitted
}

// Advance runs one step of the current transaction.
func (s *SMS) Advance() {
	switch s.state {
	case SMSIdle:
		return

	case SMSReading:
		if !s.collected(s.config.readDeleteSettle) {
			return
		}
		body := at.MessageBody(s.link.Response())
		s.logger.Debug("SMS read", "index", s.index, "body", body)
		if s.handler != nil {
			s.handler.HandleSMS(body)
		}
		if err := s.link.Send(fmt.Sprintf(at.CmdDeleteMessage, s.index)); err != nil {
			s.logger.Warn("Failed to delete SMS", "index", s.index, "error", err)
		}
		s.enter(SMSDeleting)

	case SMSDeleting:
		if !s.collected(s.config.readDeleteSettle) {
			return
		}
		s.logger.Info("SMS deleted", "index", s.index)
		s.enter(SMSIdle)

	case SMSSendingNumber:
		if !s.collected(s.config.sendSettle) {
			return
		}
		if err := s.link.Send(s.message); err != nil {
			s.logger.Warn("Failed to write SMS body", "error", err)
		}
		s.enter(SMSSendingMessage)

	case SMSSendingMessage:
		if !clock.Reached(s.clock, s.since, s.config.sendDataDelay) {
			return
		}
		if err := s.link.Write([]byte{at.Terminator}); err != nil {
			s.logger.Warn("Failed to terminate SMS", "error", err)
		}
		s.enter(SMSSendingEnd)

	case SMSSendingEnd:
		if !s.collected(s.config.sendEndSettle) {
			return
		}
		if strings.Contains(s.link.Response(), at.RespSentMessage) {
			s.logger.Info("SMS send completed", "recipient", s.recipient)
		} else {
			s.logger.Warn("SMS send not confirmed by modem", "recipient", s.recipient)
		}
		s.message = ""
		s.recipient = ""
		s.enter(SMSIdle)
	}
}

// collected reports whether settle has elapsed since the state was entered
// and a full response window has been collected after it.
func (s *SMS) collected(settle time.Duration) bool {
	if !clock.Reached(s.clock, s.since, settle) {
		return false
	}
	return s.link.CollectWindow(s.config.responseTimeout)
}

func (s *SMS) enter(state SMSState) {
	s.state = state
	s.since = s.clock.Millis()
}

func (s *SMS) customerID() string {
	if s.identity == nil {
		return ""
	}
	return s.identity.CustomerID()
}
