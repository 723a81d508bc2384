package tsdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/mcu-sensor/internal/sensor"
)

// Measurement is the InfluxDB measurement name for readings.
const Measurement = "mcu_sensor"

// NewPoint converts a reading to a point tagged with the device name.
// Values are in the same scaled units as the hwmon attributes.
func NewPoint(device string, r sensor.Reading, at time.Time) *write.Point {
	return write.NewPoint(
		Measurement,
		map[string]string{
			"device": device,
		},
		map[string]interface{}{
			"temperature": int64(r.Temperature),
			"fan":         int64(r.Fan),
			"valid":       r.Valid,
		},
		at,
	)
}
