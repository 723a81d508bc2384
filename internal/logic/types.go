// Package logic contains pure business logic for turning sensor readings into events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents whether the MCU is answering with valid frames.
type State string

const (
	StateOnline  State = "ONLINE"
	StateOffline State = "OFFLINE"
)

// EventType represents an event to be published.
type EventType string

const (
	EventReading   EventType = "READING"
	EventLost      EventType = "MCU_LOST"
	EventRecovered EventType = "MCU_RECOVERED"
)

// Event is a detected change to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	State       State
	Temperature uint32 // raw × 100, 0 when offline
	Fan         uint32
}

// Input represents a single sample taken from the sensor store.
type Input struct {
	Valid       bool
	Temperature uint32
	Fan         uint32
	Time        time.Time
}

// Deadband is the minimum change that produces a READING event.
type Deadband struct {
	Temperature uint32
	Fan         uint32
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Readings  int
	Lost      int
	Recovered int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
