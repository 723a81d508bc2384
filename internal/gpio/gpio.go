// Package gpio provides the three single-bit lines used to talk to the MCU.
// The real implementations use the Linux GPIO character device or periph.io.
// The fake implementation simulates the MCU so the protocol can be tested
// without hardware.
package gpio

import (
	"errors"
	"fmt"
)

// Line is a single GPIO pin owned exclusively by one driver instance.
type Line interface {
	// Set drives an output line high (true) or low (false).
	Set(high bool) error

	// Get samples an input line. Returns true when the line is high.
	Get() (bool, error)

	// Close releases the line.
	Close() error
}

// Lines groups the ACT, CLK and DATA lines of one MCU.
type Lines struct {
	Act  Line
	Clk  Line
	Data Line
}

// Close releases all three lines unconditionally and reports every failure.
func (l Lines) Close() error {
	var errs []error
	for _, nl := range []struct {
		name string
		line Line
	}{
		{LineAct, l.Act},
		{LineClk, l.Clk},
		{LineData, l.Data},
	} {
		if nl.line == nil {
			continue
		}
		if err := nl.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s line: %w", nl.name, err))
		}
	}
	return errors.Join(errs...)
}

// Line names used in errors and logs.
const (
	LineAct  = "act"
	LineClk  = "clk"
	LineData = "data"
)

// Default pin assignments (ZyXEL NSA310/NSA320 wiring to the Holtek MCU).
const (
	DefaultPinAct  = 17
	DefaultPinClk  = 16
	DefaultPinData = 14
)

// AcquireError reports which line could not be acquired.
type AcquireError struct {
	Line string // "act", "clk" or "data"
	Pin  string // pin number or name as configured
	Err  error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire %s line (pin %s): %v", e.Line, e.Pin, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}
