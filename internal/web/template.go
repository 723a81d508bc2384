package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/mcu-sensor/internal/sensor"
	"github.com/sweeney/mcu-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	// Readings are hundredths of the raw unit.
	"scaled": func(v uint32) string {
		return fmt.Sprintf("%d.%02d", v/sensor.Scale, v%sensor.Scale)
	},
	"label": func(ch sensor.Channel) string {
		return ch.Label()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>MCU Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.online { color: green; font-weight: bold; }
.offline { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>MCU Sensor</h1>

<h2>Sensors</h2>
<table>
<tr><th>MCU</th><td id="mcu-state" class="{{if eq (stateOrUnknown (printf "%s" .State)) "ONLINE"}}online{{else if eq (stateOrUnknown (printf "%s" .State)) "OFFLINE"}}offline{{else}}unknown{{end}}">{{stateOrUnknown (printf "%s" .State)}}</td></tr>
<tr><th>{{label .Temperature}}</th><td id="temperature">{{scaled .Reading.Temperature}}</td></tr>
<tr><th>{{label .Fan}}</th><td id="fan">{{scaled .Reading.Fan}}</td></tr>
<tr><th>Last refresh</th><td>{{if .Reading.RefreshedAt.IsZero}}never{{else}}{{.Reading.RefreshedAt.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
<tr><th>Reads</th><td>{{.Reading.Reads}} ({{.Reading.Failures}} failed)</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>InfluxDB</th><td>{{if .Config.InfluxDB}}enabled{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Readings</th><td>{{.Counts.Readings}}</td></tr>
<tr><th>MCU lost</th><td>{{.Counts.Lost}}</td></tr>
<tr><th>MCU recovered</th><td>{{.Counts.Recovered}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Boot ID</th><td>{{.BootID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}} ({{.Config.Pins}})</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		Temperature sensor.Channel
		Fan         sensor.Channel
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		Temperature: sensor.Temperature,
		Fan:         sensor.FanSpeed,
	}
	indexTmpl.Execute(w, data)
}
