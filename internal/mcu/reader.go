package mcu

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/mcu-sensor/internal/gpio"
	"github.com/sweeney/mcu-sensor/internal/logging"
)

// Protocol timing. These are the MCU's real timing budget and must not change.
const (
	// SettleDelay is the dwell after pulling ACT low before the first clock.
	SettleDelay = 100 * time.Millisecond

	// HalfClock is how long CLK is held in each state.
	HalfClock = 100 * time.Microsecond

	// FrameBits is the number of bits clocked per transaction.
	FrameBits = 32
)

// Reader executes read transactions over a set of lines it owns.
// Not safe for concurrent use; callers must serialize ReadFrame.
type Reader struct {
	lines gpio.Lines
	delay func(time.Duration)
	log   *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithDelay replaces the blocking wait used between line transitions.
// Tests use it to avoid real sleeps.
func WithDelay(fn func(time.Duration)) Option {
	return func(r *Reader) { r.delay = fn }
}

// WithLogger sets the logger for non-fatal line problems.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.log = l }
}

// NewReader creates a Reader that takes ownership of lines.
func NewReader(lines gpio.Lines, opts ...Option) *Reader {
	r := &Reader{
		lines: lines,
		delay: Delay,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFrame runs one complete transaction and returns the validated frame.
//
// ACT is always driven high again before returning, even if clocking failed.
// A failure to release ACT after a clean transfer is logged and does not
// reject the frame. Errors are ErrInvalidFrame or a *LineError.
func (r *Reader) ReadFrame() (Frame, error) {
	v, err := r.transfer()

	if rerr := r.set(gpio.LineAct, r.lines.Act, true); rerr != nil {
		if err != nil {
			return 0, errors.Join(err, rerr)
		}
		r.log.Warn("release act line failed", "error", rerr)
	}
	if err != nil {
		return 0, err
	}

	f := Frame(v)
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFrame, f)
	}
	return f, nil
}

// transfer pulls ACT low and clocks in FrameBits bits, MSB first.
func (r *Reader) transfer() (uint32, error) {
	if err := r.set(gpio.LineAct, r.lines.Act, false); err != nil {
		return 0, err
	}
	r.delay(SettleDelay)

	var v uint32
	for i := FrameBits - 1; i >= 0; i-- {
		if err := r.set(gpio.LineClk, r.lines.Clk, false); err != nil {
			return 0, err
		}
		r.delay(HalfClock)

		// MCU latches DATA on the rising edge
		if err := r.set(gpio.LineClk, r.lines.Clk, true); err != nil {
			return 0, err
		}
		r.delay(HalfClock)

		high, err := r.lines.Data.Get()
		if err != nil {
			return 0, &LineError{Line: gpio.LineData, Op: "get", Err: err}
		}
		if high {
			v |= 1 << uint(i)
		}
	}
	return v, nil
}

func (r *Reader) set(name string, l gpio.Line, high bool) error {
	if err := l.Set(high); err != nil {
		return &LineError{Line: name, Op: "set", Err: err}
	}
	return nil
}

// Close releases the lines.
func (r *Reader) Close() error {
	return r.lines.Close()
}

// spinThreshold is the longest wait done by spinning rather than sleeping.
const spinThreshold = time.Millisecond

// Delay blocks for d. Waits under a millisecond spin on the clock since
// scheduler sleeps are far too coarse for the half-clock period.
func Delay(d time.Duration) {
	if d >= spinThreshold {
		time.Sleep(d)
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}
