// Package rbtree implements the ordered storage engine: a classical
// red-black tree keyed by string, kept balanced with the textbook
// insert/delete fix-up cases (parent pointers, no sentinel nil node).
// Unlike hashengine, iteration order here is meaningful: Keys, ShowAll
// and Find all walk the tree in ascending key order.
package rbtree

import (
	"sync"
	"time"

	"github.com/neekrasov/kvstore/internal/codec"
	"github.com/neekrasov/kvstore/internal/model"
	"github.com/neekrasov/kvstore/internal/ttl"
)

type color bool

const (
	red   color = false
	black color = true
)

type node struct {
	key      model.Key
	value    model.Record
	expireAt int64 // <= 0 means no deadline

	parent, left, right *node
	color                color
}

// Engine is the red-black tree. The zero value is not usable; build one
// with New.
type Engine struct {
	mu   sync.Mutex
	root *node
	size int
}

// New builds an empty tree engine and registers it with the process-wide
// TTL manager.
func New() *Engine {
	e := &Engine{}
	ttl.Instance().Register(e)
	return e
}

// Close deregisters e from the TTL manager.
func (e *Engine) Close() {
	ttl.Instance().Unregister(e)
}

func normalizeTTL(ttlSeconds int) int64 {
	if ttlSeconds > 0 {
		return time.Now().Unix() + int64(ttlSeconds)
	}
	return 0
}

// insert places a new node with an absolute expiry and rebalances,
// without touching the TTL manager; Set and Rename arm the deadline
// themselves once the insert has succeeded.
func (e *Engine) insert(key model.Key, rec model.Record, expireAt int64) model.Error {
	n := &node{key: key, value: rec, expireAt: expireAt, color: red}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.placeNewNode(n) {
		return model.KeyAlreadyExists
	}
	e.insertCase1(n)
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

	n := e.findNode(key)
	if n == nil {
		return model.Record{}, false
	}
	return n.value, true
}

// Exists implements storage.Engine.
func (e *Engine) Exists(key model.Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findNode(key) != nil
}

// Del implements storage.Engine.
func (e *Engine) Del(key model.Key) model.Error {
	e.mu.Lock()

	n := e.findNode(key)
	if n == nil {
		e.mu.Unlock()
		return model.KeyNotFound
	}
	hadTTL := n.expireAt > 0

	var replaced *node
	if n.left != nil && n.right != nil {
		replaced = n.left
		for replaced.right != nil {
			replaced = replaced.right
		}
	}

	child := n.left
	if child == nil {
		child = n.right
	}

	if replaced != nil {
		child = replaced.left
		if child == nil {
			child = replaced.right
		}
		if child != nil {
			child.parent = replaced.parent
		}
		if replaced.color == black {
			if child != nil && child.color == red {
				child.color = black
			} else {
				e.deleteCase1(replaced)
			}
		}
		n.key, n.value, n.expireAt = replaced.key, replaced.value, replaced.expireAt
		n = replaced
	} else {
		if child != nil {
			child.parent = n.parent
		}
		if n.color == black {
			if child != nil && child.color == red {
				child.color = black
				if n == e.root {
					e.root = child
				}
			} else {
				e.deleteCase1(n)
			}
		}
	}

	if n.parent != nil && n == n.parent.left {
		n.parent.left = child
	} else if n.parent != nil && n == n.parent.right {
		n.parent.right = child
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
	n := e.findNode(key)
	if n == nil {
		e.mu.Unlock()
		return model.KeyNotFound
	}

	n.value = model.Merge(n.value, rec, mask)
	ttlChanged := mask.Has(model.FieldTTL)
	if ttlChanged {
		n.expireAt = normalizeTTL(ttlSeconds)
	}
	e.mu.Unlock()

	if ttlChanged {
		ttl.Instance().Arm(e, key, ttlSeconds)
	}
	return model.Ok
}

// Rename implements storage.Engine. newKey inherits oldKey's absolute
// expiry unchanged.
func (e *Engine) Rename(oldKey, newKey model.Key) model.Error {
	e.mu.Lock()
	n := e.findNode(oldKey)
	if n == nil {
		e.mu.Unlock()
		return model.KeyNotFound
	}
	rec, expireAt := n.value, n.expireAt
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
	n := e.findNode(key)
	if n == nil {
		e.mu.Unlock()
		return model.KeyNotFound.Int()
	}
	expireAt := n.expireAt
	e.mu.Unlock()

	if expireAt > 0 {
		return int(expireAt - time.Now().Unix())
	}
	return model.HasNoTTL.Int()
}

// Keys implements storage.Engine, in ascending key order.
func (e *Engine) Keys() []model.Key {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]model.Key, 0, e.size)
	for n := findMin(e.root); n != nil; n = e.nextElem(n) {
		keys = append(keys, n.key)
	}
	return keys
}

// Find implements storage.Engine, in ascending key order.
func (e *Engine) Find(want model.Record, ttlSeconds int, mask model.FieldMask) []model.Key {
	e.mu.Lock()
	defer e.mu.Unlock()

	var matches []model.Key
	wantExpireAt := time.Now().Unix() + int64(ttlSeconds)
	for n := findMin(e.root); n != nil; n = e.nextElem(n) {
		if !model.Matches(n.value, want, mask) {
			continue
		}
		if mask.Has(model.FieldTTL) && n.expireAt != wantExpireAt {
			continue
		}
		matches = append(matches, n.key)
	}
	return matches
}

// ShowAll implements storage.Engine, in ascending key order.
func (e *Engine) ShowAll() []model.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	records := make([]model.Record, 0, e.size)
	for n := findMin(e.root); n != nil; n = e.nextElem(n) {
		records = append(records, n.value)
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
	for n := findMin(e.root); n != nil; n = e.nextElem(n) {
		pairs = append(pairs, codec.Pair{Key: n.key, Record: n.value})
	}
	e.mu.Unlock()

	return codec.Save(path, pairs)
}
