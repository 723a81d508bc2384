// Package sensor shares one MCU between any number of concurrent readers.
//
// The Store caches the last valid frame and only runs a physical read when
// the cache is older than RefreshInterval. Read failures never reach callers:
// the cache is cleared and every channel reads 0 until the MCU answers again.
package sensor

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/mcu-sensor/internal/logging"
	"github.com/sweeney/mcu-sensor/internal/mcu"
)

// RefreshInterval is the minimum time between physical MCU reads.
const RefreshInterval = 3 * time.Second

// FrameReader performs one physical read of the MCU.
type FrameReader interface {
	ReadFrame() (mcu.Frame, error)
	Close() error
}

// Reading is a decoded view of the cache at one point in time.
type Reading struct {
	Temperature uint32 // milli-degrees
	Fan         uint32 // raw×100
	Valid       bool   // false when the last read failed or none has run
	RefreshedAt time.Time
	Reads       int // physical reads attempted
	Failures    int // physical reads rejected
}

// Store serializes access to the MCU lines and caches the last frame.
type Store struct {
	reader FrameReader
	now    func() time.Time
	log    *slog.Logger

	mu          sync.Mutex // guards everything below and the reader's lines
	frame       mcu.Frame
	valid       bool
	attempted   bool
	refreshedAt time.Time
	reads       int
	failures    int
	closed      bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger for read failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a Store that owns reader. The cache starts empty, so the first
// query triggers a read.
func New(reader FrameReader, opts ...Option) *Store {
	s := &Store{
		reader: reader,
		now:    time.Now,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns the scaled value for ch, refreshing the cache first if it is
// stale. Returns 0 when the MCU has no valid data.
func (s *Store) Query(ch Channel) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	if !s.valid {
		return 0
	}
	return ch.Decode(s.frame)
}

// Reading returns both channels decoded from the same cached frame, applying
// the same refresh policy as Query.
func (s *Store) Reading() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	r := Reading{
		Valid:       s.valid,
		RefreshedAt: s.refreshedAt,
		Reads:       s.reads,
		Failures:    s.failures,
	}
	if s.valid {
		r.Temperature = Temperature.Decode(s.frame)
		r.Fan = FanSpeed.Decode(s.frame)
	}
	return r
}

// stale reports whether a physical read is due. A failed read counts as a
// refresh, so an unresponsive MCU is polled once per interval.
func (s *Store) stale(now time.Time) bool {
	return !s.attempted || now.Sub(s.refreshedAt) > RefreshInterval
}

func (s *Store) refreshLocked() {
	if s.closed {
		return
	}
	now := s.now()
	if !s.stale(now) {
		return
	}

	s.log.Debug("reading MCU data")
	s.reads++
	f, err := s.reader.ReadFrame()
	s.attempted = true
	s.refreshedAt = now

	if err != nil {
		s.failures++
		s.frame = 0
		s.valid = false
		if errors.Is(err, mcu.ErrInvalidFrame) {
			s.log.Warn("failed to read MCU data", "error", err)
		} else {
			s.log.Error("MCU line fault", "error", err)
		}
		return
	}

	s.frame = f
	s.valid = true
}

// Close releases the MCU lines. Later queries report 0 without touching the
// hardware.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.valid = false
	s.frame = 0
	return s.reader.Close()
}
