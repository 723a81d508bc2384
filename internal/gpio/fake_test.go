package gpio

import (
	"errors"
	"testing"
)

// clockOut drives one full transaction by hand and returns the received value.
func clockOut(t *testing.T, l Lines) uint32 {
	t.Helper()
	if err := l.Act.Set(false); err != nil {
		t.Fatalf("act low: %v", err)
	}
	var v uint32
	for i := 31; i >= 0; i-- {
		if err := l.Clk.Set(false); err != nil {
			t.Fatalf("clk low: %v", err)
		}
		if err := l.Clk.Set(true); err != nil {
			t.Fatalf("clk high: %v", err)
		}
		high, err := l.Data.Get()
		if err != nil {
			t.Fatalf("data: %v", err)
		}
		if high {
			v |= 1 << uint(i)
		}
	}
	if err := l.Act.Set(true); err != nil {
		t.Fatalf("act high: %v", err)
	}
	return v
}

func TestFakeMCUTransmitsFrames(t *testing.T) {
	m := NewFakeMCU(0x55AB1234, 0x55000001)
	l := m.Lines()

	if got := clockOut(t, l); got != 0x55AB1234 {
		t.Errorf("frame 0: got 0x%08x, want 0x55ab1234", got)
	}
	if got := clockOut(t, l); got != 0x55000001 {
		t.Errorf("frame 1: got 0x%08x, want 0x55000001", got)
	}
	// Last frame repeats
	if got := clockOut(t, l); got != 0x55000001 {
		t.Errorf("frame 2 (repeat): got 0x%08x, want 0x55000001", got)
	}

	if m.Transactions() != 3 {
		t.Errorf("transactions: got %d, want 3", m.Transactions())
	}
	if m.Edges() != 96 {
		t.Errorf("edges: got %d, want 96", m.Edges())
	}
	if m.Overlaps() != 0 || m.Stray() != 0 {
		t.Errorf("unexpected misuse: overlaps=%d stray=%d", m.Overlaps(), m.Stray())
	}
}

func TestFakeMCUNoFrames(t *testing.T) {
	m := NewFakeMCU()
	if got := clockOut(t, m.Lines()); got != 0 {
		t.Errorf("got 0x%08x, want 0", got)
	}
}

func TestFakeMCUDetectsOverlap(t *testing.T) {
	m := NewFakeMCU(0x55000000)
	l := m.Lines()

	l.Act.Set(false)
	l.Act.Set(false)
	if m.Overlaps() != 1 {
		t.Errorf("overlaps: got %d, want 1", m.Overlaps())
	}
	l.Act.Set(true)
	if m.Active() {
		t.Error("expected transaction to end")
	}
}

func TestFakeMCUDetectsStray(t *testing.T) {
	m := NewFakeMCU(0x55000000)
	l := m.Lines()

	l.Clk.Set(false)
	l.Data.Get()
	if m.Stray() != 2 {
		t.Errorf("stray: got %d, want 2", m.Stray())
	}
}

func TestFakeMCUErrors(t *testing.T) {
	m := NewFakeMCU(0x55000000)
	m.GetError = map[string]error{LineData: errors.New("data fault")}
	m.SetError = map[string]error{LineClk: errors.New("clk fault")}
	l := m.Lines()

	if err := l.Clk.Set(true); err == nil || err.Error() != "clk fault" {
		t.Errorf("clk: unexpected error %v", err)
	}
	if _, err := l.Data.Get(); err == nil || err.Error() != "data fault" {
		t.Errorf("data: unexpected error %v", err)
	}
}

func TestFakeMCUReleaseError(t *testing.T) {
	m := NewFakeMCU(0x55000000)
	m.ReleaseError = errors.New("stuck")
	l := m.Lines()

	l.Act.Set(false)
	if err := l.Act.Set(true); err == nil {
		t.Error("expected release error")
	}
	if m.Active() {
		t.Error("transaction should end even when release fails")
	}
	if m.Transactions() != 1 {
		t.Errorf("transactions: got %d, want 1", m.Transactions())
	}
}

func TestLinesClose(t *testing.T) {
	m := NewFakeMCU()
	l := m.Lines()

	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{LineAct, LineClk, LineData} {
		if !m.Closed(name) {
			t.Errorf("%s line not closed", name)
		}
	}
}

func TestLinesCloseCollectsErrors(t *testing.T) {
	m := NewFakeMCU()
	m.CloseError = errors.New("busy")
	l := m.Lines()

	err := l.Close()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{LineAct, LineClk, LineData} {
		if !m.Closed(name) {
			t.Errorf("%s line not closed after earlier failure", name)
		}
	}
}

func TestLinesClosePartial(t *testing.T) {
	m := NewFakeMCU()
	l := m.Lines()
	l.Data = nil

	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Closed(LineData) {
		t.Error("nil data line should be skipped")
	}
}

func TestAcquireError(t *testing.T) {
	inner := errors.New("device or resource busy")
	err := error(&AcquireError{Line: LineClk, Pin: "16", Err: inner})

	if got, want := err.Error(), "acquire clk line (pin 16): device or resource busy"; got != want {
		t.Errorf("Error(): got %q, want %q", got, want)
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to match wrapped error")
	}
	var ae *AcquireError
	if !errors.As(err, &ae) || ae.Line != LineClk {
		t.Errorf("errors.As: got %+v", ae)
	}
}
