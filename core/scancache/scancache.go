// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package scancache keeps the results of recent file scans so that unchanged
sources are not scanned again by a long-lived collector.

Entries are keyed by the digest of the file contents together with the
fingerprint of the marker set they were scanned with, see [Key]. Values are
opaque encoded scan results. The cache has a fixed capacity and evicts the
least recently used entry. When created with compression enabled, values are
stored zstd-compressed whenever that makes them smaller.
*/
package scancache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// Cache is a fixed-capacity LRU cache of encoded scan results. It is safe
// for concurrent use. The zero value is not ready for use; see [New].
type Cache struct {
	size      int
	evictList *list.List
	items     map[string]*list.Element
	lock      sync.RWMutex

	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

type entry struct {
	key        string
	value      []byte
	compressed bool
}

// Key derives the cache key for a source file scanned with the marker set
// identified by fingerprint.
func Key(content []byte, fingerprint string) string {
	sum := sha256.Sum256(content)

	return fingerprint + ":" + hex.EncodeToString(sum[:])
}

// New creates a cache holding at most size entries.
// It returns [ErrInvalidSize] if size is not positive.
func New(size int, compress bool) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Cache{
		size:      size,
		evictList: list.New(),
		items:     make(map[string]*list.Element),
		compress:  compress,
	}

	if compress {
		// A nil writer/reader allows stateless EncodeAll/DecodeAll.
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, err
		}

		c.enc = enc
		c.dec = dec
	}

	return c, nil
}

// Add stores value under key, making it the most recently used entry.
// It reports whether an older entry was evicted to make room.
func (c *Cache) Add(key string, value []byte) bool {
	stored, compressed := c.pack(value)

	c.lock.Lock()
	defer c.lock.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)

		ent := el.Value.(*entry)
		ent.value = stored
		ent.compressed = compressed

		return false
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: stored, compressed: compressed})

	if c.evictList.Len() <= c.size {
		return false
	}

	if oldest := c.evictList.Back(); oldest != nil {
		c.removeElement(oldest)
	}

	return true
}

// Get returns a copy of the value for key and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.lock.Lock()

	el, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	c.evictList.MoveToFront(el)

	ent := el.Value.(*entry)
	stored, compressed := ent.value, ent.compressed

	c.lock.Unlock()

	return c.unpack(stored, compressed)
}

// Peek is like Get but leaves the LRU order unchanged.
func (c *Cache) Peek(key string) ([]byte, bool) {
	c.lock.RLock()

	el, ok := c.items[key]
	if !ok {
		c.lock.RUnlock()

		return nil, false
	}

	ent := el.Value.(*entry)
	stored, compressed := ent.value, ent.compressed

	c.lock.RUnlock()

	return c.unpack(stored, compressed)
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	el, ok := c.items[key]
	if ok {
		c.removeElement(el)
	}

	return ok
}

// Keys returns the keys from the least to the most recently used.
func (c *Cache) Keys() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	keys := make([]string, 0, len(c.items))
	for el := c.evictList.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry).key)
	}

	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.evictList.Len()
}

func (c *Cache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// pack copies or compresses value for storage. It runs without the lock;
// the zstd encoder supports concurrent EncodeAll calls.
func (c *Cache) pack(value []byte) ([]byte, bool) {
	if len(value) == 0 {
		return []byte{}, false
	}

	if c.compress {
		if packed := c.enc.EncodeAll(value, nil); len(packed) < len(value) {
			return packed, true
		}
	}

	return append([]byte(nil), value...), false
}

// unpack returns a caller-owned copy of a stored value. A value that fails
// to decompress is treated as missing.
func (c *Cache) unpack(stored []byte, compressed bool) ([]byte, bool) {
	if !compressed {
		return append([]byte{}, stored...), true
	}

	out, err := c.dec.DecodeAll(stored, nil)
	if err != nil {
		return nil, false
	}

	return out, true
}
