package modem

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"i4.energy/across/telenode/at"
	"i4.energy/across/telenode/clock"
)

// responder answers every command written to a TestTransport from a table
// of canned replies. Commands missing from the table get no reply.
type responder struct {
	transport *TestTransport
	replies   map[string]string
	seen      int
}

func (r *responder) answer() {
	writes := r.transport.Writes()
	for _, w := range writes[r.seen:] {
		if reply, ok := r.replies[strings.TrimSpace(w)]; ok {
			r.transport.SendData(reply)
		}
	}
	r.seen = len(writes)
}

func healthyReplies() map[string]string {
	return map[string]string{
		at.CmdEchoOff:      "ATE0\r\r\nOK\r\n",
		at.CmdAt:           "\r\nOK\r\n",
		at.CmdStorage:      "\r\n+CPMS: 0,30,0,30,0,30\r\n\r\nOK\r\n",
		at.CmdSetTextMode:  "\r\nOK\r\n",
		at.CmdNotify:       "\r\nOK\r\n",
		at.CmdRegistration: "\r\n+CREG: 0,1\r\n\r\nOK\r\n",
	}
}

func newTestInitializer(t *testing.T, start uint32) (*Initializer, *TestTransport, *clock.Manual) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tt := NewTestTransport()
	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any()).Return(tt, nil).Times(1)

	config, err := NewConfigBuilder().WithDialer(dialer).Build()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	clk := clock.NewManual(start)
	return NewInitializer(NewLink(clk, nil), config, clk, nil), tt, clk
}

// runInit steps the initializer every 10ms until it reports completion, a
// Step fails, or the tick budget runs out. It returns the number of ticks
// taken and whether bring-up completed.
func runInit(i *Initializer, r *responder, clk *clock.Manual, budget int) (int, bool) {
	ctx := context.Background()
	for n := range budget {
		clk.Advance(10 * time.Millisecond)
		if i.Step(ctx) {
			return n, true
		}
		if i.Err() != nil {
			return n, false
		}
		r.answer()
	}
	return budget, false
}

func TestInitializer_Success(t *testing.T) {
	i, tt, clk := newTestInitializer(t, 0)
	r := &responder{transport: tt, replies: healthyReplies()}

	_, done := runInit(i, r, clk, 3000)
	if !done {
		t.Fatalf("bring-up did not complete, err=%v", i.Err())
	}

	want := []string{
		"ATE0\r\n",
		"AT\r\n",
		"AT+CPMS=\"SM\",\"SM\",\"SM\"\r\n",
		"AT+CMGF=1\r\n",
		"AT+CNMI=2,1,0,0,0\r\n",
		"AT+CREG?\r\n",
	}
	got := tt.Writes()
	if len(got) != len(want) {
		t.Fatalf("expected each command once, got %q", got)
	}
	for n := range want {
		if got[n] != want[n] {
			t.Errorf("write %d: expected %q, got %q", n, want[n], got[n])
		}
	}
	if i.Running() {
		t.Error("expected initializer to be reset after completion")
	}
}

func TestInitializer_AcrossClockWrap(t *testing.T) {
	i, tt, clk := newTestInitializer(t, 0xFFFFFFFF-3000)
	r := &responder{transport: tt, replies: healthyReplies()}

	if _, done := runInit(i, r, clk, 3000); !done {
		t.Fatalf("bring-up did not complete across the wrap, err=%v", i.Err())
	}
	if n := tt.Count("AT+CMGF=1"); n != 1 {
		t.Errorf("expected text mode set once, got %d", n)
	}
}

func TestInitializer_NotAcknowledged(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{name: "AT answers ERROR", command: at.CmdAt},
		{name: "text mode answers ERROR", command: at.CmdSetTextMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, transport, clk := newTestInitializer(t, 0)
			replies := healthyReplies()
			replies[tt.command] = "\r\nERROR\r\n"
			r := &responder{transport: transport, replies: replies}

			if _, done := runInit(i, r, clk, 3000); done {
				t.Fatal("expected bring-up to fail")
			}
			if !errors.Is(i.Err(), ErrNotAcknowledged) {
				t.Errorf("expected ErrNotAcknowledged, got %v", i.Err())
			}
			if i.Running() {
				t.Error("expected sequence reset to its first step")
			}
		})
	}
}

func TestInitializer_UnregisteredStillCompletes(t *testing.T) {
	i, tt, clk := newTestInitializer(t, 0)
	replies := healthyReplies()
	replies[at.CmdRegistration] = "\r\n+CREG: 0,2\r\n\r\nOK\r\n"
	r := &responder{transport: tt, replies: replies}

	if _, done := runInit(i, r, clk, 3000); !done {
		t.Fatalf("expected bring-up to complete, err=%v", i.Err())
	}
}

func TestInitializer_RetryAfterFailure(t *testing.T) {
	i, tt, clk := newTestInitializer(t, 0)
	replies := healthyReplies()
	replies[at.CmdAt] = "\r\nERROR\r\n"
	r := &responder{transport: tt, replies: replies}

	if _, done := runInit(i, r, clk, 3000); done {
		t.Fatal("expected first attempt to fail")
	}

	replies[at.CmdAt] = "\r\nOK\r\n"
	clk.Advance(5 * time.Second)
	if _, done := runInit(i, r, clk, 3000); !done {
		t.Fatalf("expected retry to complete, err=%v", i.Err())
	}
	if n := tt.Count("ATE0"); n != 2 {
		t.Errorf("expected echo off sent once per attempt, got %d", n)
	}
}

func TestInitializer_DialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	dialError := errors.New("no such device")
	dialer.EXPECT().Dial(gomock.Any()).Return(nil, dialError)

	config, err := NewConfigBuilder().WithDialer(dialer).Build()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	clk := clock.NewManual(0)
	i := NewInitializer(NewLink(clk, nil), config, clk, nil)

	if i.Step(context.Background()) {
		t.Fatal("expected Step to fail")
	}
	if !errors.Is(i.Err(), dialError) {
		t.Errorf("expected dial error, got %v", i.Err())
	}
	if i.Running() {
		t.Error("expected initializer to stay at its first step")
	}
}
