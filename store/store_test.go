package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"i4.energy/across/telenode/store"
)

const threshold = 12

func defaults() store.Config {
	return store.Config{
		Numbers:    [store.NumPhoneNumbers]string{"+306900000001", "", ""},
		CustomerID: "C001",
	}
}

func TestLoad_BlankRecordKeepsDefaults(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	s := store.New(cells, defaults(), threshold, nil)

	require.NoError(t, s.Load())
	require.Equal(t, defaults(), s.Config())

	raw := cells.Bytes()
	require.Equal(t, store.Magic, raw[2])
	require.Equal(t, store.Version1, raw[3])
}

func TestLoad_ZeroedRecordKeepsDefaults(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	_, err := cells.WriteAt(make([]byte, store.LayoutV1.Size), 0)
	require.NoError(t, err)

	s := store.New(cells, defaults(), threshold, nil)
	require.NoError(t, s.Load())
	require.Equal(t, defaults(), s.Config())
}

func TestLoad_UnknownVersion(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	_, err := cells.WriteAt([]byte{store.Magic, 7}, 2)
	require.NoError(t, err)
	_, err = cells.WriteAt([]byte("+306911111111\x00"), 10)
	require.NoError(t, err)

	s := store.New(cells, defaults(), threshold, nil)
	err = s.Load()
	require.ErrorIs(t, err, store.ErrUnknownVersion)
	require.Equal(t, defaults(), s.Config())
	require.Equal(t, byte(7), cells.Bytes()[3], "record must not be restamped")
	require.True(t, s.ReadOnly())
}

func TestStore_UnknownVersionIsNeverWritten(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	_, err := cells.WriteAt([]byte{3, 0xFF, store.Magic, 7}, 0)
	require.NoError(t, err)
	before := append([]byte(nil), cells.Bytes()...)

	s := store.New(cells, defaults(), threshold, nil)
	require.ErrorIs(t, s.Load(), store.ErrUnknownVersion)

	require.NoError(t, s.SetCounter(4))
	require.NoError(t, s.SetNumber(1, "+306922222222"))
	require.NoError(t, s.SetCustomerID("ACME"))
	require.ErrorIs(t, s.SetCustomerID("TOOLONGID"), store.ErrFieldTooLong)

	require.Equal(t, uint8(4), s.Counter())
	require.Equal(t, "+306922222222", s.Numbers()[1])
	require.Equal(t, "ACME", s.CustomerID())
	require.Equal(t, before, cells.Bytes())
}

func TestLoad_CounterOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		stored byte
		want   uint8
	}{
		{name: "in range", stored: 5, want: 5},
		{name: "last valid", stored: threshold - 1, want: threshold - 1},
		{name: "at threshold", stored: threshold, want: 0},
		{name: "erased", stored: 0xFF, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := store.NewMemCells(int(store.LayoutV1.Size))
			_, err := cells.WriteAt([]byte{tt.stored}, 0)
			require.NoError(t, err)

			s := store.New(cells, defaults(), threshold, nil)
			require.NoError(t, s.Load())
			require.Equal(t, tt.want, s.Counter())
		})
	}
}

func TestSetNumber_RoundTrip(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	s := store.New(cells, defaults(), threshold, nil)
	require.NoError(t, s.Load())

	require.NoError(t, s.SetNumber(0, "+15551234567"))
	require.NoError(t, s.SetNumber(2, "+306977777777"))
	require.NoError(t, s.SetCustomerID("ACME01"))
	require.NoError(t, s.SetCounter(4))

	reloaded := store.New(cells, store.Config{}, threshold, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, s.Config(), reloaded.Config())
	require.Equal(t, "+15551234567", reloaded.Numbers()[0])
	require.Equal(t, "ACME01", reloaded.CustomerID())
	require.Equal(t, uint8(4), reloaded.Counter())
}

func TestSetNumber_RewritesFullSpan(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	s := store.New(cells, defaults(), threshold, nil)
	require.NoError(t, s.Load())

	require.NoError(t, s.SetNumber(1, "+30691234567890"))
	require.NoError(t, s.SetNumber(1, "+3069"))

	span := cells.Bytes()[30 : 30+18]
	want := make([]byte, 18)
	copy(want, "+3069")
	require.Equal(t, want, span)
}

func TestSet_TooLong(t *testing.T) {
	cells := store.NewMemCells(int(store.LayoutV1.Size))
	s := store.New(cells, defaults(), threshold, nil)
	require.NoError(t, s.Load())
	before := cells.Bytes()

	err := s.SetNumber(0, "+1234567890123456789")
	require.ErrorIs(t, err, store.ErrFieldTooLong)
	err = s.SetCustomerID("12345678")
	require.ErrorIs(t, err, store.ErrFieldTooLong)

	require.Equal(t, defaults(), s.Config())
	require.Equal(t, before, cells.Bytes())
}

func TestSetNumber_NoSuchSlot(t *testing.T) {
	s := store.New(store.NewMemCells(int(store.LayoutV1.Size)), defaults(), threshold, nil)

	require.ErrorIs(t, s.SetNumber(3, "+3069"), store.ErrNoSuchNumber)
	require.ErrorIs(t, s.SetNumber(-1, "+3069"), store.ErrNoSuchNumber)
}

func TestFileCells_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.bin")

	cells, err := store.OpenFileCells(path, store.LayoutV1.Size)
	require.NoError(t, err)
	s := store.New(cells, defaults(), threshold, nil)
	require.NoError(t, s.Load())
	require.NoError(t, s.SetNumber(1, "+306955555555"))
	require.NoError(t, cells.Close())

	cells, err = store.OpenFileCells(path, store.LayoutV1.Size)
	require.NoError(t, err)
	defer cells.Close()

	reloaded := store.New(cells, defaults(), threshold, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, "+306955555555", reloaded.Numbers()[1])
	require.Equal(t, "+306900000001", reloaded.Numbers()[0])
}
