package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pinger probes remote reachability. Satisfied by the ERP client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Change is one connectivity transition delivered to subscribers.
type Change struct {
	Online bool
	At     time.Time
}

// Monitor tracks whether the remote system is believed reachable. A probe
// loop flips the state; subscribers receive only transitions, never repeats
// of the current state.
type Monitor struct {
	pinger   Pinger
	interval time.Duration

	mu     sync.RWMutex
	online bool
	subs   map[chan Change]struct{}

	loopMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(pinger Pinger, interval time.Duration) *Monitor {
	if interval == 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		subs:     make(map[chan Change]struct{}),
	}
}

// Online returns the last probed state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers for transition events and returns the channel and a
// cleanup function.
func (m *Monitor) Subscribe() (<-chan Change, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Change, 4)
	m.subs[ch] = struct{}{}

	cleanup := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}

	return ch, cleanup
}

// SetOnline records an observed state and fans out a Change when it differs
// from the previous one. The probe loop calls this; components that observe
// a hard transport failure mid-call may call it too.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	change := Change{Online: online, At: time.Now()}
	for ch := range m.subs {
		select {
		case ch <- change:
		default:
		}
	}
	m.mu.Unlock()

	if online {
		slog.Info("connectivity regained")
	} else {
		slog.Warn("connectivity lost")
	}
}

// Start launches the probe loop. Calling it while running is a no-op.
func (m *Monitor) Start() {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop cancels the probe loop. Safe to call when not running.
func (m *Monitor) Stop() {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.pinger.Ping(probeCtx)
	if ctx.Err() != nil {
		return
	}
	m.SetOnline(err == nil)
}
