package ttl

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neekrasov/kvstore/internal/model"
	"github.com/neekrasov/kvstore/pkg/logger"
)

// DefaultSweepInterval is the sweep period a lazily-created Manager is
// built with. main sets this from configuration before constructing the
// first engine; once the singleton exists the value is fixed.
var DefaultSweepInterval = time.Second

// Manager is the process-wide TTL service: one singleton holds one
// Dispatcher per live engine and ticks them all on a single background
// goroutine. Engines register themselves on construction and unregister
// on Close; the sweep goroutine starts with the first registration and
// stops once the last engine unregisters.
type Manager struct {
	interval time.Duration

	mu          sync.Mutex
	dispatchers map[Deleter]*Dispatcher

	workerMu sync.Mutex
	cancel   context.CancelFunc
	group    *errgroup.Group
}

var (
	instance     *Manager
	instanceOnce sync.Once
)

// Instance returns the process-wide Manager, constructing it on first
// call with the current DefaultSweepInterval.
func Instance() *Manager {
	instanceOnce.Do(func() {
		instance = &Manager{
			interval:    DefaultSweepInterval,
			dispatchers: make(map[Deleter]*Dispatcher),
		}
	})
	return instance
}

// Register adds a new engine to the manager and starts the sweep
// goroutine if this is the first registered engine.
func (m *Manager) Register(e Deleter) {
	m.mu.Lock()
	m.dispatchers[e] = newDispatcher(e)
	m.mu.Unlock()

	m.ensureStarted()
}

// Unregister removes an engine from the manager, stopping the sweep
// goroutine once no engines remain.
func (m *Manager) Unregister(e Deleter) {
	m.mu.Lock()
	delete(m.dispatchers, e)
	empty := len(m.dispatchers) == 0
	m.mu.Unlock()

	if empty {
		m.stop()
	}
}

// Arm installs a deadline ttlSeconds from now for key on e. ttlSeconds <= 0
// is treated as "no deadline" and disarms key instead, matching the ttl
// semantics Set and Update use everywhere else.
func (m *Manager) Arm(e Deleter, key model.Key, ttlSeconds int) {
	if ttlSeconds <= 0 {
		m.Disarm(e, key)
		return
	}
	m.ArmAt(e, key, time.Now().Unix()+int64(ttlSeconds))
}

// ArmAt installs an absolute deadline for key on e. expireAt <= 0 disarms
// key instead. Rename uses this to carry a deadline across unchanged
// rather than recomputing it from a fresh ttl.
func (m *Manager) ArmAt(e Deleter, key model.Key, expireAt int64) {
	if expireAt <= 0 {
		m.Disarm(e, key)
		return
	}

	m.mu.Lock()
	d, ok := m.dispatchers[e]
	m.mu.Unlock()
	if !ok {
		logger.Warn("arm for an unregistered engine", zap.String("key", key))
		return
	}
	d.Arm(key, expireAt)
}

// Disarm clears key's deadline on e, if any.
func (m *Manager) Disarm(e Deleter, key model.Key) {
	m.mu.Lock()
	d, ok := m.dispatchers[e]
	m.mu.Unlock()
	if !ok {
		return
	}
	d.Disarm(key)
}

func (m *Manager) ensureStarted() {
	m.workerMu.Lock()
	defer m.workerMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	m.cancel = cancel
	m.group = g

	logger.Debug("ttl sweep worker starting", zap.Duration("interval", m.interval))

	g.Go(func() error {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				m.sweepAll()
			}
		}
	})
}

// stop cancels the sweep goroutine and waits for it to exit. Safe to call
// when no goroutine is running.
func (m *Manager) stop() {
	m.workerMu.Lock()
	cancel, g := m.cancel, m.group
	m.cancel, m.group = nil, nil
	m.workerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = g.Wait()
	logger.Debug("ttl sweep worker stopped")
}

func (m *Manager) sweepAll() {
	m.mu.Lock()
	dispatchers := make([]*Dispatcher, 0, len(m.dispatchers))
	for _, d := range m.dispatchers {
		dispatchers = append(dispatchers, d)
	}
	m.mu.Unlock()

	for _, d := range dispatchers {
		d.Sweep()
	}
}
