package tsdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/mcu-sensor/internal/config"
	"github.com/sweeney/mcu-sensor/internal/sensor"
)

// fakeInflux answers pings and records write bodies.
type fakeInflux struct {
	mu      sync.Mutex
	healthy bool
	writes  []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/write"):
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) bodies() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "sensors",
		BatchSize:     10,
		FlushInterval: time.Hour,
	}
}

func TestNewPoint(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := sensor.Reading{Temperature: 466000, Fan: 17100, Valid: true}

	line := strings.TrimSpace(write.PointToLineProtocol(NewPoint("nsa3xx", r, at), time.Second))

	want := "mcu_sensor,device=nsa3xx fan=17100i,temperature=466000i,valid=true 1767225600"
	if line != want {
		t.Errorf("line protocol:\ngot  %s\nwant %s", line, want)
	}
}

func TestNewPointInvalidReading(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	line := write.PointToLineProtocol(NewPoint("nsa3xx", sensor.Reading{}, at), time.Second)

	if !strings.Contains(line, "fan=0i,temperature=0i,valid=false") {
		t.Errorf("expected zero fields and valid=false, got %s", line)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := Connect(context.Background(), cfg, nil)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(&fakeInflux{healthy: false})
	defer srv.Close()

	_, err := Connect(context.Background(), testConfig(srv.URL), nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Connect(context.Background(), testConfig(url), nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteReading(t *testing.T) {
	fake := &fakeInflux{healthy: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := Connect(context.Background(), testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.WriteReading(sensor.Reading{Temperature: 466000, Fan: 17100, Valid: true}, at)
	c.Flush()

	got := fake.bodies()
	if !strings.Contains(got, "mcu_sensor,device=nsa3xx fan=17100i,temperature=466000i,valid=true") {
		t.Errorf("unexpected write body: %q", got)
	}
}

func TestClose(t *testing.T) {
	fake := &fakeInflux{healthy: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := Connect(context.Background(), testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}

	// Dropped silently.
	c.WriteReading(sensor.Reading{Valid: true}, time.Now())
	c.Flush()
	if got := fake.bodies(); got != "" {
		t.Errorf("expected no writes after Close, got %q", got)
	}
}
