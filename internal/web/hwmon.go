package web

import (
	"fmt"
	"net/http"

	"github.com/sweeney/mcu-sensor/internal/sensor"
)

// attrChannels maps hwmon attribute prefixes to sensor channels.
var attrChannels = map[string]sensor.Channel{
	"temp1": sensor.Temperature,
	"fan1":  sensor.FanSpeed,
}

// attribute returns the text for a hwmon attribute, one value per line.
// Input attributes query the sensor store and may trigger an MCU read.
func (s *Server) attribute(name string) (string, bool) {
	if name == "name" {
		return sensor.DeviceName + "\n", true
	}
	for prefix, ch := range attrChannels {
		switch name {
		case prefix + "_label":
			return ch.Label() + "\n", true
		case prefix + "_input":
			return fmt.Sprintf("%d\n", s.sensors.Query(ch)), true
		}
	}
	return "", false
}

func (s *Server) handleHwmon(w http.ResponseWriter, r *http.Request) {
	text, ok := s.attribute(r.PathValue("attr"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, text)
}
