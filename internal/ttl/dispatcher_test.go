package ttl

import (
	"sync"
	"testing"
	"time"

	"github.com/neekrasov/kvstore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu      sync.Mutex
	deleted []model.Key
	missing map[model.Key]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{missing: make(map[model.Key]bool)}
}

func (f *fakeEngine) Del(key model.Key) model.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[key] {
		return model.KeyNotFound
	}
	f.deleted = append(f.deleted, key)
	return model.Ok
}

func (f *fakeEngine) deletedKeys() []model.Key {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Key(nil), f.deleted...)
}

func TestDispatcher_SweepDeletesDueKeys(t *testing.T) {
	t.Parallel()

	e := newFakeEngine()
	d := newDispatcher(e)

	d.Arm("past", time.Now().Unix()-5)
	d.Arm("future", time.Now().Unix()+100)

	d.Sweep()

	assert.Equal(t, []model.Key{"past"}, e.deletedKeys())

	d.mapMu.Lock()
	_, stillArmed := d.entries["future"]
	_, pastRemains := d.entries["past"]
	d.mapMu.Unlock()
	assert.True(t, stillArmed)
	assert.False(t, pastRemains)
}

func TestDispatcher_DisarmRemovesDeadline(t *testing.T) {
	t.Parallel()

	e := newFakeEngine()
	d := newDispatcher(e)

	d.Arm("k", time.Now().Unix()+100)
	d.Disarm("k")

	d.mapMu.Lock()
	_, ok := d.entries["k"]
	d.mapMu.Unlock()
	assert.False(t, ok)
}

func TestDispatcher_SweepLeavesEntryOnFailedDelete(t *testing.T) {
	t.Parallel()

	e := newFakeEngine()
	e.missing["gone"] = true
	d := newDispatcher(e)

	d.Arm("gone", time.Now().Unix()-1)
	d.Sweep()

	d.mapMu.Lock()
	_, ok := d.entries["gone"]
	d.mapMu.Unlock()
	require.True(t, ok, "an entry whose delete failed should stay armed")
}

// TestDispatcher_DisarmDuringOwnSweepDoesNotDeadlock exercises the
// interlock directly: a Del implementation that calls back into Disarm
// for the same key it's being deleted for must not block or re-delete.
func TestDispatcher_DisarmDuringOwnSweepDoesNotDeadlock(t *testing.T) {
	t.Parallel()

	d := &Dispatcher{entries: make(map[model.Key]int64)}
	reentrant := reentrantDeleter{d: d}
	d.engine = reentrant

	d.Arm("k", time.Now().Unix()-1)

	done := make(chan struct{})
	go func() {
		d.Sweep()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sweep did not return, interlock likely deadlocked")
	}
}

type reentrantDeleter struct {
	d *Dispatcher
}

func (r reentrantDeleter) Del(key model.Key) model.Error {
	r.d.Disarm(key)
	return model.Ok
}
