package modem

import (
	"i4.energy/across/telenode/at"
	"i4.energy/across/telenode/clock"
)

type fetchPhase int

const (
	fetchIdle fetchPhase = iota
	fetchSettling
	fetchCollecting
)

// timestampFetch queries the modem's network clock in three non-blocking
// phases: issue AT+CCLK?, wait the clock settle delay, then collect a
// response window. The query is written once per fetch no matter how many
// times the fetch is polled.
type timestampFetch struct {
	phase fetchPhase
	since uint32
}

func (f *timestampFetch) inFlight() bool {
	return f.phase != fetchIdle
}

// poll advances the fetch. It returns done=false while the timestamp is
// pending. When done, ok tells whether ts holds a parsed timestamp;
// otherwise ts is at.ClockUnavailable.
func (f *timestampFetch) poll(l *Link, c Config) (ts string, ok, done bool) {
	switch f.phase {
	case fetchIdle:
		if err := l.Send(at.CmdClock); err != nil {
			l.logger.Warn("Failed to request network time", "error", err)
			return at.ClockUnavailable, false, true
		}
		f.phase = fetchSettling
		f.since = l.clock.Millis()
		return "", false, false

	case fetchSettling:
		if !clock.Reached(l.clock, f.since, c.clockSettle) {
			return "", false, false
		}
		f.phase = fetchCollecting
		fallthrough

	case fetchCollecting:
		if !l.CollectWindow(c.responseTimeout) {
			return "", false, false
		}
		f.phase = fetchIdle
		ts, ok = at.ParseClock(l.Response())
		if !ok {
			l.logger.Warn("Could not parse network time", "response", l.Response())
		}
		return ts, ok, true
	}
	return at.ClockUnavailable, false, true
}
