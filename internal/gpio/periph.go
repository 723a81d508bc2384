package gpio

import (
	"errors"
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periphLine wraps a periph.io pin.
type periphLine struct {
	pin pgpio.PinIO
}

func (l *periphLine) Set(high bool) error {
	return l.pin.Out(pgpio.Level(high))
}

func (l *periphLine) Get() (bool, error) {
	return l.pin.Read() == pgpio.High, nil
}

func (l *periphLine) Close() error {
	return l.pin.Halt()
}

// OpenPeriph acquires the MCU lines by periph.io pin name (e.g. "GPIO17").
// Pins are configured the same way as OpenChip: ACT and CLK high, DATA input.
func OpenPeriph(act, clk, data string) (Lines, error) {
	if _, err := host.Init(); err != nil {
		return Lines{}, fmt.Errorf("init periph host: %w", err)
	}

	var lines Lines
	for _, req := range []struct {
		name string
		pin  string
		out  bool
		dst  *Line
	}{
		{LineAct, act, true, &lines.Act},
		{LineClk, clk, true, &lines.Clk},
		{LineData, data, false, &lines.Data},
	} {
		p := gpioreg.ByName(req.pin)
		if p == nil {
			lines.Close()
			return Lines{}, &AcquireError{Line: req.name, Pin: req.pin, Err: errors.New("pin not found")}
		}
		var err error
		if req.out {
			err = p.Out(pgpio.High)
		} else {
			err = p.In(pgpio.PullNoChange, pgpio.NoEdge)
		}
		if err != nil {
			lines.Close()
			return Lines{}, &AcquireError{Line: req.name, Pin: req.pin, Err: err}
		}
		*req.dst = &periphLine{pin: p}
	}
	return lines, nil
}
