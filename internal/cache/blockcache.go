// Package cache provides a bounded LRU used to memoize decrypted
// anchor-candidate plaintexts across Safe.OpenContainers calls on the
// same loaded Safe.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// Key identifies one (block index, private-key fingerprint) decryption
// attempt.
type Key struct {
	BlockIndex int
	KeyFP      [8]byte
}

// PlaintextCache memoizes per-block decryptions so probing the same
// block with the same derived key again (a later OpenContainers call
// with the same password on the same Safe; one scan probes each block
// only once) skips the repeated modexp work.
type PlaintextCache struct {
	lru *lru.Cache
}

// New builds a cache holding up to size entries. size <= 0 disables
// caching (every Get misses).
func New(size int) *PlaintextCache {
	if size <= 0 {
		return &PlaintextCache{}
	}
	c, err := lru.New(size)
	if err != nil {
		// Only returns an error for size <= 0, already handled above.
		panic(err)
	}
	return &PlaintextCache{lru: c}
}

func (c *PlaintextCache) Get(k Key) ([]byte, bool) {
	if c.lru == nil {
		return nil, false
	}
	v, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *PlaintextCache) Put(k Key, plaintext []byte) {
	if c.lru == nil {
		return
	}
	c.lru.Add(k, append([]byte(nil), plaintext...))
}
