//go:build !linux

package gpio

import "errors"

// OpenChip returns an error on non-Linux platforms.
func OpenChip(chip string, pinAct, pinClk, pinData int) (Lines, error) {
	return Lines{}, errors.New("gpio: character device not supported on this platform (requires Linux)")
}
