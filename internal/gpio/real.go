//go:build linux

package gpio

import (
	"strconv"

	"github.com/warthog618/go-gpiocdev"
)

// Consumer is the label attached to requested lines.
const Consumer = "mcu-sensor"

// cdevLine wraps a requested gpiocdev line.
type cdevLine struct {
	line *gpiocdev.Line
}

func (l *cdevLine) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *cdevLine) Get() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Close returns the line to an input before releasing it.
func (l *cdevLine) Close() error {
	_ = l.line.Reconfigure(gpiocdev.AsInput)
	return l.line.Close()
}

// OpenChip acquires the MCU lines on the given chip (e.g. "gpiochip0").
// ACT and CLK are requested as outputs driven high (idle), DATA as an input.
// On failure any line already acquired is released and an *AcquireError
// naming the failing line is returned.
func OpenChip(chip string, pinAct, pinClk, pinData int) (Lines, error) {
	var lines Lines

	act, err := gpiocdev.RequestLine(chip, pinAct, gpiocdev.AsOutput(1), gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return Lines{}, &AcquireError{Line: LineAct, Pin: strconv.Itoa(pinAct), Err: err}
	}
	lines.Act = &cdevLine{line: act}

	clk, err := gpiocdev.RequestLine(chip, pinClk, gpiocdev.AsOutput(1), gpiocdev.WithConsumer(Consumer))
	if err != nil {
		lines.Close()
		return Lines{}, &AcquireError{Line: LineClk, Pin: strconv.Itoa(pinClk), Err: err}
	}
	lines.Clk = &cdevLine{line: clk}

	data, err := gpiocdev.RequestLine(chip, pinData, gpiocdev.AsInput, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		lines.Close()
		return Lines{}, &AcquireError{Line: LineData, Pin: strconv.Itoa(pinData), Err: err}
	}
	lines.Data = &cdevLine{line: data}

	return lines, nil
}
