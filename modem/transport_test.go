package modem

import (
	"context"
	"errors"
	"testing"

	"go.bug.st/serial"
	"go.uber.org/mock/gomock"
)

func TestSerialDialer_Dial(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		dialer  SerialDialer
		ctx     context.Context
		wantErr error
		wantMsg string
	}{
		{
			name:    "empty port name",
			dialer:  SerialDialer{},
			ctx:     context.Background(),
			wantMsg: "modem: serial port name is required",
		},
		{
			name:    "nil context",
			dialer:  SerialDialer{PortName: "/dev/ttyS1"},
			ctx:     nil,
			wantMsg: "modem: context is nil",
		},
		{
			name:    "canceled context",
			dialer:  SerialDialer{PortName: "/dev/nonexistent"},
			ctx:     canceled,
			wantErr: context.Canceled,
		},
		{
			name: "explicit mode on missing port",
			dialer: SerialDialer{
				PortName: "/dev/nonexistent",
				Mode: &serial.Mode{
					BaudRate: 9600,
					Parity:   serial.NoParity,
					DataBits: 8,
					StopBits: serial.OneStopBit,
				},
			},
			ctx: context.Background(),
		},
		{
			name:   "default mode on missing port",
			dialer: SerialDialer{PortName: "/dev/nonexistent"},
			ctx:    context.Background(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, err := tt.dialer.Dial(tt.ctx)
			if err == nil {
				t.Fatal("expected an error")
			}
			if transport != nil {
				t.Error("expected nil transport")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got: %v", tt.wantErr, err)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("unexpected error message: %v", err)
			}
		})
	}
}

func TestTransportInterface(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockTransport := NewMockTransport(ctrl)
	var _ Transport = mockTransport

	data := []byte("AT\r\n")
	mockTransport.EXPECT().Write(data).Return(len(data), nil)
	mockTransport.EXPECT().Read(gomock.Any()).Return(0, nil)
	mockTransport.EXPECT().Close().Return(nil)

	if n, err := mockTransport.Write(data); err != nil || n != len(data) {
		t.Errorf("unexpected write result: %d, %v", n, err)
	}
	if n, err := mockTransport.Read(make([]byte, 8)); err != nil || n != 0 {
		t.Errorf("unexpected read result: %d, %v", n, err)
	}
	if err := mockTransport.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestDialerInterface(t *testing.T) {
	t.Run("returns transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDialer := NewMockDialer(ctrl)
		mockTransport := NewMockTransport(ctrl)
		var _ Dialer = mockDialer

		ctx := context.Background()
		mockDialer.EXPECT().Dial(ctx).Return(mockTransport, nil)

		transport, err := mockDialer.Dial(ctx)
		if err != nil {
			t.Errorf("unexpected dial error: %v", err)
		}
		if transport != mockTransport {
			t.Error("expected mock transport to be returned")
		}
	})

	t.Run("returns error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDialer := NewMockDialer(ctrl)
		dialError := errors.New("dial failed")

		ctx := context.Background()
		mockDialer.EXPECT().Dial(ctx).Return(nil, dialError)

		transport, err := mockDialer.Dial(ctx)
		if err != dialError {
			t.Errorf("expected dial error, got: %v", err)
		}
		if transport != nil {
			t.Error("expected nil transport on error")
		}
	})
}
