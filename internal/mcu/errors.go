package mcu

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrame indicates the frame's top byte was not the marker.
	ErrInvalidFrame = errors.New("mcu: invalid frame")

	// ErrLineFault indicates a GPIO line operation failed mid-read.
	// Returned errors are *LineError values which match it with errors.Is.
	ErrLineFault = errors.New("mcu: line fault")
)

// LineError reports a GPIO failure during a read.
type LineError struct {
	Line string // "act", "clk" or "data"
	Op   string // "set" or "get"
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("mcu: %s %s line: %v", e.Op, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrLineFault) true for any *LineError.
func (e *LineError) Is(target error) bool {
	return target == ErrLineFault
}
