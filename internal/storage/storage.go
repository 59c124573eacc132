// Package storage defines the contract both storage engines (hashengine,
// rbtree) implement. The mask helpers their Update and Find operations
// share (Merge, Matches) live in package model.
package storage

import "github.com/neekrasov/kvstore/internal/model"

// Engine is the storage contract the rest of the program talks to. Both
// the chained hash table and the red-black tree implement it, and callers
// (the REPL, the CLI import/export commands) don't know or care which one
// is underneath.
type Engine interface {
	// Set inserts rec under key. ttlSeconds > 0 installs a deadline
	// ttlSeconds from now; ttlSeconds <= 0 means no deadline. Returns
	// KeyAlreadyExists if key is already present.
	Set(key model.Key, rec model.Record, ttlSeconds int) model.Error

	// Get returns the record stored under key, if any.
	Get(key model.Key) (model.Record, bool)

	// Exists reports whether key is present.
	Exists(key model.Key) bool

	// Del removes key. Returns KeyNotFound if it isn't present.
	Del(key model.Key) model.Error

	// Update selectively overwrites the fields of key's record named by
	// mask, and optionally its deadline (see FieldTTL in mask). Returns
	// KeyNotFound if key isn't present.
	Update(key model.Key, rec model.Record, ttlSeconds int, mask model.FieldMask) model.Error

	// Rename moves the record stored under oldKey to newKey, preserving
	// its deadline unchanged. Returns KeyNotFound if oldKey is absent or
	// KeyAlreadyExists if newKey is already taken.
	Rename(oldKey, newKey model.Key) model.Error

	// TTL returns the number of seconds remaining before key's deadline,
	// HasNoTTL if key has no deadline, or KeyNotFound if key is absent.
	TTL(key model.Key) int

	// Keys returns every key currently stored. Order is engine-specific:
	// the hash table's order reflects bucket/chain layout, the tree's is
	// ascending key order.
	Keys() []model.Key

	// Find returns every key whose record (and, if the ttl bit is set in
	// mask, whose deadline) matches want under mask.
	Find(want model.Record, ttlSeconds int, mask model.FieldMask) []model.Key

	// ShowAll returns every stored record, in the same key order as Keys.
	ShowAll() []model.Record

	// Size reports the number of keys currently stored.
	Size() int

	// Import loads key/record pairs from path via the textual codec and
	// inserts each one, skipping (without aborting) any key already
	// present. It returns the count of pairs actually inserted.
	Import(path string) (int, model.Error)

	// Export writes every stored pair to path via the textual codec.
	Export(path string) (int, model.Error)

	// Close deregisters the engine from the TTL manager. Callers must
	// call it once they're done with the engine.
	Close()
}
