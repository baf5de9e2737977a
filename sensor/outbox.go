package sensor

import "log/slog"

type outboxEntry struct {
	message   string
	recipient string
}

// outbox holds report messages until the SMS machine admits them. When
// full, the oldest entry is dropped.
type outbox struct {
	entries  []outboxEntry
	capacity int
	logger   *slog.Logger
}

func newOutbox(capacity int, logger *slog.Logger) *outbox {
	return &outbox{capacity: capacity, logger: logger}
}

func (o *outbox) push(message, recipient string) {
	if len(o.entries) >= o.capacity {
		dropped := o.entries[0]
		o.logger.Warn("Outbox full, dropping oldest report", "recipient", dropped.recipient)
		o.entries = o.entries[1:]
	}
	o.entries = append(o.entries, outboxEntry{message: message, recipient: recipient})
}

func (o *outbox) head() (outboxEntry, bool) {
	if len(o.entries) == 0 {
		return outboxEntry{}, false
	}
	return o.entries[0], true
}

func (o *outbox) pop() {
	if len(o.entries) > 0 {
		o.entries = o.entries[1:]
	}
}

func (o *outbox) size() int {
	return len(o.entries)
}
