package sensor

import "github.com/sweeney/mcu-sensor/internal/mcu"

// Channel identifies which reading a query wants.
type Channel int

const (
	Temperature Channel = iota
	FanSpeed
)

// Scale converts raw frame counters to the reported units.
const Scale = 100

// DeviceName identifies the sensor chip to hwmon-style consumers.
const DeviceName = "nsa3xx"

// Label returns the presentation label for the channel.
func (c Channel) Label() string {
	switch c {
	case Temperature:
		return "System Temperature"
	case FanSpeed:
		return "Chassis Fan"
	}
	return ""
}

func (c Channel) String() string {
	switch c {
	case Temperature:
		return "temperature"
	case FanSpeed:
		return "fan"
	}
	return "unknown"
}

// Decode extracts the channel's field from f and scales it.
// Temperature is reported in milli-degrees, fan speed in raw×100.
func (c Channel) Decode(f mcu.Frame) uint32 {
	switch c {
	case Temperature:
		return uint32(f.Temperature()) * Scale
	case FanSpeed:
		return uint32(f.Fan()) * Scale
	}
	return 0
}
