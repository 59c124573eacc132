// Package hashengine implements the chained hash table storage engine:
// a fixed-size bucket array, each bucket a singly-linked chain of items,
// addressed by a byte-sum checksum hash rather than a general-purpose
// one. Chain order (and so the order Keys/ShowAll/Find report) reflects
// insertion order within a bucket, not key order.
package hashengine

import (
	"sync"
	"time"

	"github.com/neekrasov/kvstore/internal/codec"
	"github.com/neekrasov/kvstore/internal/model"
	"github.com/neekrasov/kvstore/internal/ttl"
)

// bucketCount mirrors UCHAR_MAX: the hash is a one-byte checksum, so the
// table never needs more buckets than the checksum has distinct values.
const bucketCount = 255

type item struct {
	key      model.Key
	value    model.Record
	expireAt int64 // <= 0 means no deadline
	next     *item
}

// Engine is the chained hash table. The zero value is not usable; build
// one with New.
type Engine struct {
	mu      sync.Mutex
	buckets [bucketCount]*item
	size    int
}

// New builds an empty hash table engine and registers it with the
// process-wide TTL manager.
func New() *Engine {
	e := &Engine{}
	ttl.Instance().Register(e)
	return e
}

// Close deregisters e from the TTL manager.
func (e *Engine) Close() {
	ttl.Instance().Unregister(e)
}

// hashKey sums the key's bytes into a single byte (wrapping the way an
// unsigned char accumulator would) and clamps it into [0, bucketCount)
// since a sum of exactly 255 would otherwise index one past the table.
func hashKey(key model.Key) int {
	var sum byte
	for i := 0; i < len(key); i++ {
		sum += key[i]
	}
	idx := int(sum)
	if idx >= bucketCount {
		idx = bucketCount - 1
	}
	return idx
}

func normalizeTTL(ttlSeconds int) int64 {
	if ttlSeconds > 0 {
		return time.Now().Unix() + int64(ttlSeconds)
	}
	return 0
}

// find locates key's chain node. Callers must hold e.mu.
func (e *Engine) find(key model.Key) *item {
	it := e.buckets[hashKey(key)]
	for it != nil && it.key != key {
		it = it.next
	}
	return it
}

// insert appends a new item with an absolute expiry, without touching
// the TTL manager. Callers handle arming the deadline themselves so Set
// (relative ttl) and Rename (absolute ttl) can share this.
func (e *Engine) insert(key model.Key, rec model.Record, expireAt int64) model.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.find(key) != nil {
		return model.KeyAlreadyExists
	}

	idx := hashKey(key)
	newItem := &item{key: key, value: rec, expireAt: expireAt}
	if e.buckets[idx] == nil {
		e.buckets[idx] = newItem
	} else {
		tail := e.buckets[idx]
		for tail.next != nil {
			tail = tail.next
		}
		tail.next = newItem
	}
	e.size++
	return model.Ok
}

// Set implements storage.Engine.
func (e *Engine) Set(key model.Key, rec model.Record, ttlSeconds int) model.Error {
	expireAt := normalizeTTL(ttlSeconds)
	if err := e.insert(key, rec, expireAt); err != model.Ok {
		return err
	}
	if ttlSeconds > 0 {
		ttl.Instance().Arm(e, key, ttlSeconds)
	}
	return model.Ok
}

// Get implements storage.Engine.
func (e *Engine) Get(key model.Key) (model.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it := e.find(key)
	if it == nil {
		return model.Record{}, false
	}
	return it.value, true
}

// Exists implements storage.Engine.
func (e *Engine) Exists(key model.Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.find(key) != nil
}

// Del implements storage.Engine.
func (e *Engine) Del(key model.Key) model.Error {
	e.mu.Lock()

	idx := hashKey(key)
	it := e.buckets[idx]
	if it == nil {
		e.mu.Unlock()
		return model.KeyNotFound
	}

	var hadTTL bool
	if it.key == key {
		e.buckets[idx] = it.next
		hadTTL = it.expireAt > 0
	} else {
		prev := it
		for prev.next != nil && prev.next.key != key {
			prev = prev.next
		}
		if prev.next == nil {
			e.mu.Unlock()
			return model.KeyNotFound
		}
		hadTTL = prev.next.expireAt > 0
		prev.next = prev.next.next
	}
	e.size--
	e.mu.Unlock()

	if hadTTL {
		ttl.Instance().Disarm(e, key)
	}
	return model.Ok
}

// Update implements storage.Engine.
func (e *Engine) Update(key model.Key, rec model.Record, ttlSeconds int, mask model.FieldMask) model.Error {
	e.mu.Lock()
	it := e.find(key)
	if it == nil {
		e.mu.Unlock()
		return model.KeyNotFound
	}

	it.value = model.Merge(it.value, rec, mask)
	ttlChanged := mask.Has(model.FieldTTL)
	if ttlChanged {
		it.expireAt = normalizeTTL(ttlSeconds)
	}
	e.mu.Unlock()

	if ttlChanged {
		ttl.Instance().Arm(e, key, ttlSeconds)
	}
	return model.Ok
}

// Rename implements storage.Engine. The deadline moves with the record
// unchanged: newKey inherits oldKey's absolute expiry rather than being
// given a fresh ttl computed from now.
func (e *Engine) Rename(oldKey, newKey model.Key) model.Error {
	e.mu.Lock()
	old := e.find(oldKey)
	if old == nil {
		e.mu.Unlock()
		return model.KeyNotFound
	}
	rec, expireAt := old.value, old.expireAt
	e.mu.Unlock()

	if err := e.insert(newKey, rec, expireAt); err != model.Ok {
		return err
	}
	if expireAt > 0 {
		ttl.Instance().ArmAt(e, newKey, expireAt)
	}

	return e.Del(oldKey)
}

// TTL implements storage.Engine.
func (e *Engine) TTL(key model.Key) int {
	e.mu.Lock()
	it := e.find(key)
	if it == nil {
		e.mu.Unlock()
		return model.KeyNotFound.Int()
	}
	expireAt := it.expireAt
	e.mu.Unlock()

	if expireAt > 0 {
		return int(expireAt - time.Now().Unix())
	}
	return model.HasNoTTL.Int()
}

// Keys implements storage.Engine. Order follows bucket index, then chain
// order within a bucket — not key order.
func (e *Engine) Keys() []model.Key {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]model.Key, 0, e.size)
	for _, head := range e.buckets {
		for it := head; it != nil; it = it.next {
			keys = append(keys, it.key)
		}
	}
	return keys
}

// Find implements storage.Engine.
func (e *Engine) Find(want model.Record, ttlSeconds int, mask model.FieldMask) []model.Key {
	e.mu.Lock()
	defer e.mu.Unlock()

	var matches []model.Key
	wantExpireAt := time.Now().Unix() + int64(ttlSeconds)
	for _, head := range e.buckets {
		for it := head; it != nil; it = it.next {
			if !model.Matches(it.value, want, mask) {
				continue
			}
			if mask.Has(model.FieldTTL) && it.expireAt != wantExpireAt {
				continue
			}
			matches = append(matches, it.key)
		}
	}
	return matches
}

// ShowAll implements storage.Engine.
func (e *Engine) ShowAll() []model.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	records := make([]model.Record, 0, e.size)
	for _, head := range e.buckets {
		for it := head; it != nil; it = it.next {
			records = append(records, it.value)
		}
	}
	return records
}

// Size implements storage.Engine.
func (e *Engine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

// Import implements storage.Engine.
func (e *Engine) Import(path string) (int, model.Error) {
	pairs, errKind := codec.Load(path)
	if errKind != model.Ok {
		return 0, errKind
	}

	inserted := 0
	for _, p := range pairs {
		if e.Set(p.Key, p.Record, 0) == model.Ok {
			inserted++
		}
	}
	return inserted, model.Ok
}

// Export implements storage.Engine.
func (e *Engine) Export(path string) (int, model.Error) {
	e.mu.Lock()
	pairs := make([]codec.Pair, 0, e.size)
	for _, head := range e.buckets {
		for it := head; it != nil; it = it.next {
			pairs = append(pairs, codec.Pair{Key: it.key, Record: it.value})
		}
	}
	e.mu.Unlock()

	return codec.Save(path, pairs)
}
