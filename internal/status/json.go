package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/mcu-sensor/internal/sensor"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BootID        string       `json:"boot_id"`
	MCU           string       `json:"mcu"`
	Ready         bool         `json:"ready"`
	Sensors       SensorsJSON  `json:"sensors"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SensorsJSON reports the cached MCU reading.
type SensorsJSON struct {
	Temperature ChannelJSON `json:"temperature"`
	Fan         ChannelJSON `json:"fan"`
	Valid       bool        `json:"valid"`
	RefreshedAt string      `json:"refreshed_at,omitempty"`
	Reads       int         `json:"reads"`
	Failures    int         `json:"failures"`
}

// ChannelJSON is one labelled reading.
type ChannelJSON struct {
	Label string `json:"label"`
	Value uint32 `json:"value"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Readings  int `json:"readings"`
	Lost      int `json:"mcu_lost"`
	Recovered int `json:"mcu_recovered"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string `json:"backend"`
	Pins        string `json:"pins"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	InfluxDB    bool   `json:"influxdb"`
}

func buildInner(snap Snapshot) StatusInner {
	mcu := string(snap.State)
	if mcu == "" {
		mcu = "UNKNOWN"
	}

	inner := StatusInner{
		BootID:        snap.BootID,
		MCU:           mcu,
		Ready:         snap.Baselined,
		Sensors:       buildSensors(snap.Reading),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Readings:  snap.Counts.Readings,
			Lost:      snap.Counts.Lost,
			Recovered: snap.Counts.Recovered,
		},
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			Pins:        snap.Config.Pins,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			InfluxDB:    snap.Config.InfluxDB,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

func buildSensors(r sensor.Reading) SensorsJSON {
	s := SensorsJSON{
		Temperature: ChannelJSON{Label: sensor.Temperature.Label(), Value: r.Temperature},
		Fan:         ChannelJSON{Label: sensor.FanSpeed.Label(), Value: r.Fan},
		Valid:       r.Valid,
		Reads:       r.Reads,
		Failures:    r.Failures,
	}
	if !r.RefreshedAt.IsZero() {
		s.RefreshedAt = r.RefreshedAt.UTC().Format(time.RFC3339)
	}
	return s
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
