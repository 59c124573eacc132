package ttl

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neekrasov/kvstore/internal/model"
	"github.com/neekrasov/kvstore/pkg/logger"
)

// Deleter is the one method a storage engine must offer the TTL subsystem:
// a way to delete one of its own keys. Both engines satisfy it with their
// Del method directly, so an engine registers itself.
type Deleter interface {
	Del(key model.Key) model.Error
}

// Dispatcher tracks the deadlines armed for one engine and sweeps the
// ones that are due. It exists so the engine's Del and the dispatcher's
// own sweep never deadlock each other: Sweep calls engine.Del, and Del
// calls back into Disarm, so Sweep releases the mapping lock before it
// deletes anything. The mapping mutex protects the deadline map; the
// single-slot "deleting now" interlock is how Disarm recognizes a call
// that's just the sweep's own Del reporting back and skips it, leaving
// the map entry for Sweep to drop once the delete succeeds.
type Dispatcher struct {
	engine Deleter

	mapMu   sync.Mutex
	entries map[model.Key]int64 // key -> absolute deadline, unix seconds

	slotMu      sync.Mutex
	deleting    bool
	deletingKey model.Key
}

func newDispatcher(e Deleter) *Dispatcher {
	return &Dispatcher{
		engine:  e,
		entries: make(map[model.Key]int64),
	}
}

// Arm installs an absolute deadline for key, replacing any deadline it
// already had, then sweeps immediately so a deadline that is already in
// the past doesn't sit around until the next tick.
func (d *Dispatcher) Arm(key model.Key, expireAt int64) {
	d.mapMu.Lock()
	d.entries[key] = expireAt
	d.mapMu.Unlock()

	d.Sweep()
}

// Disarm removes key's deadline, if any. It's a no-op for a key whose
// deletion the dispatcher is already mid-sweeping, since that sweep will
// drop the map entry itself once the delete succeeds.
func (d *Dispatcher) Disarm(key model.Key) {
	d.slotMu.Lock()
	skip := d.deleting && d.deletingKey == key
	d.slotMu.Unlock()
	if skip {
		return
	}

	d.mapMu.Lock()
	delete(d.entries, key)
	d.mapMu.Unlock()
}

// Sweep deletes every key whose deadline has passed. Deadlines are
// collected under the mapping lock, then the lock is released before any
// deletes happen, so a concurrent Arm/Disarm from the owning engine never
// blocks behind a slow Del.
func (d *Dispatcher) Sweep() {
	now := time.Now().Unix()

	d.mapMu.Lock()
	var due []model.Key
	for key, expireAt := range d.entries {
		if expireAt <= now {
			due = append(due, key)
		}
	}
	d.mapMu.Unlock()

	for _, key := range due {
		d.slotMu.Lock()
		d.deleting = true
		d.deletingKey = key
		d.slotMu.Unlock()

		result := d.engine.Del(key)

		d.slotMu.Lock()
		d.deleting = false
		d.deletingKey = ""
		d.slotMu.Unlock()

		switch result {
		case model.Ok:
			logger.Debug("expired key evicted", zap.String("key", key))
			d.mapMu.Lock()
			delete(d.entries, key)
			d.mapMu.Unlock()
		case model.KeyNotFound:
			// a user operation consumed the key first; Disarm will
			// drop the entry, or the next sweep retries
		default:
			logger.Error("evicting expired key failed",
				zap.String("key", key), zap.String("result", result.Error()))
		}
	}
}
