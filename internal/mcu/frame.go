// Package mcu implements the bit-banged read protocol of the sensor MCU.
//
// One transaction pulls ACT low, waits for the MCU to settle, clocks 32 bits
// out of DATA (MSB first, sampled after each rising CLK edge) and releases
// ACT. The resulting frame is only trusted if its top byte is the marker.
package mcu

import "fmt"

// Marker is the value the top byte of every valid frame must carry.
const Marker = 0x55

// Frame is one 32-bit value read from the MCU:
//
//	bits 31-24  marker (0x55)
//	bits 23-16  fan speed raw counter
//	bits 15-0   temperature raw counter
type Frame uint32

// Marker returns the top byte of the frame.
func (f Frame) Marker() uint8 {
	return uint8(f >> 24)
}

// Fan returns the raw fan speed counter.
func (f Frame) Fan() uint8 {
	return uint8(f >> 16)
}

// Temperature returns the raw temperature counter.
func (f Frame) Temperature() uint16 {
	return uint16(f)
}

// Valid reports whether the frame carries the marker byte.
func (f Frame) Valid() bool {
	return f.Marker() == Marker
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%08x", uint32(f))
}
