package logic

import "time"

// Detector tracks MCU availability and reading changes.
type Detector struct {
	debounceDuration time.Duration
	deadband         Deadband

	stable       State
	pending      State
	pendingSince time.Time
	baselined    bool

	lastTemperature uint32
	lastFan         uint32

	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector that debounces availability changes over
// debounceDuration and reports readings that move by at least deadband.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, deadband Deadband, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		deadband:         deadband,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new sample and returns any events that should be emitted.
// Events are only returned after baseline is established.
func (d *Detector) Process(input Input) []Event {
	state := validToState(input.Valid)

	transition := d.processState(state, input.Time)

	if !d.baselined {
		if d.stable != "" {
			d.baselined = true
			d.remember(input)
		}
		return nil // No events until baseline established
	}

	var events []Event

	switch {
	case transition:
		e := Event{Timestamp: input.Time, State: d.stable}
		if d.stable == StateOnline {
			e.Type = EventRecovered
			e.Temperature = input.Temperature
			e.Fan = input.Fan
			d.remember(input)
			d.eventCounts.Recovered++
		} else {
			e.Type = EventLost
			d.eventCounts.Lost++
		}
		events = append(events, e)

	case d.stable == StateOnline && input.Valid && d.moved(input):
		d.remember(input)
		d.eventCounts.Readings++
		events = append(events, Event{
			Timestamp:   input.Time,
			Type:        EventReading,
			State:       StateOnline,
			Temperature: input.Temperature,
			Fan:         input.Fan,
		})
	}

	return events
}

// processState handles debounce logic for availability.
// Returns true if a debounced transition occurred after baseline.
func (d *Detector) processState(newState State, now time.Time) bool {
	// Before baseline: wait for a stable state
	if d.stable == "" {
		if d.pending != newState {
			d.pending = newState
			d.pendingSince = now
			return false
		}
		if now.Sub(d.pendingSince) >= d.debounceDuration {
			d.stable = newState
			d.pending = ""
		}
		return false
	}

	if newState == d.stable {
		// No change from stable state, clear any pending
		d.pending = ""
		return false
	}

	if d.pending != newState {
		d.pending = newState
		d.pendingSince = now
		return false
	}

	if now.Sub(d.pendingSince) >= d.debounceDuration {
		d.stable = newState
		d.pending = ""
		return true
	}
	return false
}

// moved reports whether input differs from the last published reading by at
// least the deadband on either channel.
func (d *Detector) moved(input Input) bool {
	return exceeds(input.Temperature, d.lastTemperature, d.deadband.Temperature) ||
		exceeds(input.Fan, d.lastFan, d.deadband.Fan)
}

func exceeds(v, last, band uint32) bool {
	diff := v - last
	if v < last {
		diff = last - v
	}
	return diff != 0 && diff >= band
}

func (d *Detector) remember(input Input) {
	d.lastTemperature = input.Temperature
	d.lastFan = input.Fan
}

func validToState(valid bool) State {
	if valid {
		return StateOnline
	}
	return StateOffline
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the current stable availability state.
func (d *Detector) CurrentState() State {
	return d.stable
}

// EventCountsSnapshot returns a copy of the event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
