package gpio

import "sync"

// FakeMCU is a test double that behaves like the MCU on the other end of the
// ACT/CLK/DATA lines. Pulling ACT low starts a transaction, each rising CLK
// edge shifts out the next bit (MSB first) onto DATA, and releasing ACT ends
// the transaction.
//
// It also records misuse: a second transaction starting while one is active
// (Overlaps), or CLK/DATA activity outside a transaction (Stray).
type FakeMCU struct {
	mu sync.Mutex

	// Frames contains scripted 32-bit values to transmit.
	// Each transaction consumes the next frame; the last one repeats.
	Frames []uint32

	// SetError and GetError, if set, are returned by the matching line
	// operation. Keyed by line name ("act", "clk", "data").
	SetError map[string]error
	GetError map[string]error

	// ReleaseError, if set, is returned when ACT is driven high. The
	// transaction still ends.
	ReleaseError error

	// CloseError, if set, is returned by every line's Close.
	CloseError error

	index  int
	active bool
	clk    bool
	bit    int
	frame  uint32
	level  bool
	closed map[string]bool

	transactions int
	overlaps     int
	stray        int
	edges        int
}

// NewFakeMCU creates a FakeMCU transmitting the given frames.
func NewFakeMCU(frames ...uint32) *FakeMCU {
	return &FakeMCU{
		Frames: frames,
		clk:    true,
		closed: make(map[string]bool),
	}
}

// Lines returns line handles wired to this MCU.
func (m *FakeMCU) Lines() Lines {
	return Lines{
		Act:  &fakeLine{mcu: m, name: LineAct},
		Clk:  &fakeLine{mcu: m, name: LineClk},
		Data: &fakeLine{mcu: m, name: LineData},
	}
}

// Transactions returns the number of completed ACT low/high cycles.
func (m *FakeMCU) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions
}

// Overlaps returns how many transactions began while another was active.
func (m *FakeMCU) Overlaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlaps
}

// Stray returns how many CLK or DATA operations happened outside a transaction.
func (m *FakeMCU) Stray() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stray
}

// Edges returns the total number of rising CLK edges seen.
func (m *FakeMCU) Edges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges
}

// Active reports whether ACT is currently held low.
func (m *FakeMCU) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Closed reports whether the named line was closed.
func (m *FakeMCU) Closed(line string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[line]
}

// SetFrames replaces the scripted frames and restarts from the first one.
func (m *FakeMCU) SetFrames(frames ...uint32) {
	m.mu.Lock()
	m.Frames = frames
	m.index = 0
	m.mu.Unlock()
}

func (m *FakeMCU) set(line string, high bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.SetError[line]; err != nil {
		return err
	}

	switch line {
	case LineAct:
		m.setAct(high)
		if high && m.ReleaseError != nil {
			return m.ReleaseError
		}
	case LineClk:
		if !m.active {
			m.stray++
		}
		rising := high && !m.clk
		m.clk = high
		if rising && m.active {
			m.edges++
			if m.bit >= 0 {
				m.level = m.frame&(1<<uint(m.bit)) != 0
				m.bit--
			} else {
				m.level = false
			}
		}
	}
	return nil
}

func (m *FakeMCU) setAct(high bool) {
	if !high {
		if m.active {
			m.overlaps++
			return
		}
		m.active = true
		m.bit = 31
		m.level = false
		m.frame = 0
		if len(m.Frames) > 0 {
			m.frame = m.Frames[m.index]
		}
		return
	}

	if m.active {
		m.active = false
		m.transactions++
		if m.index < len(m.Frames)-1 {
			m.index++
		}
	}
}

func (m *FakeMCU) get(line string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.GetError[line]; err != nil {
		return false, err
	}
	if line != LineData {
		return false, nil
	}
	if !m.active {
		m.stray++
	}
	return m.level, nil
}

func (m *FakeMCU) close(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[line] = true
	return m.CloseError
}

type fakeLine struct {
	mcu  *FakeMCU
	name string
}

func (l *fakeLine) Set(high bool) error { return l.mcu.set(l.name, high) }
func (l *fakeLine) Get() (bool, error)  { return l.mcu.get(l.name) }
func (l *fakeLine) Close() error        { return l.mcu.close(l.name) }
