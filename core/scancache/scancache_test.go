// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scancache

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		cache, err := New(3, compress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cache.Len() != 0 {
			t.Errorf("expected empty cache, got %d entries", cache.Len())
		}
	}

	if cache, err := New(0, false); err != ErrInvalidSize || cache != nil {
		t.Errorf("expected ErrInvalidSize and no cache, got %v, %v", cache, err)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	a := Key([]byte("Drupal.t('a')"), "f1")
	if a != Key([]byte("Drupal.t('a')"), "f1") {
		t.Error("key must be deterministic")
	}

	if a == Key([]byte("Drupal.t('b')"), "f1") {
		t.Error("different content must give a different key")
	}

	if a == Key([]byte("Drupal.t('a')"), "f2") {
		t.Error("different marker fingerprints must give a different key")
	}
}

// TestAddGetEvict verifies storage, LRU ordering and eviction at capacity.
func TestAddGetEvict(t *testing.T) {
	t.Parallel()

	cache, err := New(2, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cache.Add("a", []byte("1")) {
		t.Error("eviction should not occur when the cache is not full")
	}

	cache.Add("b", []byte("2"))

	// Touch "a" so that "b" becomes the oldest entry.
	if v, ok := cache.Get("a"); !ok || string(v) != "1" {
		t.Errorf("expected 1, got %q (found %v)", v, ok)
	}

	if !cache.Add("c", []byte("3")) {
		t.Error("expected eviction when adding a third key to a size 2 cache")
	}

	if _, ok := cache.Peek("b"); ok {
		t.Error("expected 'b' to be evicted")
	}

	if got := strings.Join(cache.Keys(), ","); got != "a,c" {
		t.Errorf("expected keys a,c, got %s", got)
	}

	// Updating an existing key never evicts.
	if cache.Add("a", []byte("updated")) {
		t.Error("updating a key should not evict")
	}

	if v, _ := cache.Get("a"); string(v) != "updated" {
		t.Errorf("expected updated value, got %q", v)
	}

	if !cache.Remove("a") || cache.Remove("a") {
		t.Error("Remove should report presence exactly once")
	}

	if cache.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", cache.Len())
	}
}

// TestPeekKeepsOrder checks that Peek does not refresh an entry.
func TestPeekKeepsOrder(t *testing.T) {
	t.Parallel()

	cache, _ := New(2, false)
	cache.Add("a", []byte("1"))
	cache.Add("b", []byte("2"))

	if _, ok := cache.Peek("a"); !ok {
		t.Fatal("expected 'a' to be present")
	}

	cache.Add("c", []byte("3"))

	if _, ok := cache.Get("a"); ok {
		t.Error("expected 'a' to be evicted because Peek must not refresh it")
	}
}

func TestCompression(t *testing.T) {
	t.Parallel()

	cache, err := New(4, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	big := bytes.Repeat([]byte("- kind: singular\n  strings: [Standard Call t]\n"), 200)
	cache.Add("big", big)

	cache.lock.RLock()
	stored := cache.items["big"].Value.(*entry)
	cache.lock.RUnlock()

	if !stored.compressed || len(stored.value) >= len(big) {
		t.Errorf("expected a compressed entry smaller than %d bytes, got %d (compressed=%v)",
			len(big), len(stored.value), stored.compressed)
	}

	got, ok := cache.Get("big")
	if !ok || !bytes.Equal(got, big) {
		t.Error("decompressed value differs from the original")
	}

	// Tiny values do not shrink and are kept as they are.
	cache.Add("tiny", []byte("x"))

	if v, ok := cache.Get("tiny"); !ok || string(v) != "x" {
		t.Errorf("expected x, got %q", v)
	}
}

// TestReturnedValuesAreCopies ensures callers cannot mutate cached data.
func TestReturnedValuesAreCopies(t *testing.T) {
	t.Parallel()

	cache, _ := New(2, false)

	in := []byte("abc")
	cache.Add("k", in)
	in[0] = 'X'

	out, _ := cache.Get("k")
	out[1] = 'Y'

	again, _ := cache.Get("k")
	if string(again) != "abc" {
		t.Errorf("cached value was mutated: %q", again)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache, _ := New(50, true)

	var wg sync.WaitGroup

	for w := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 200 {
				key := strconv.Itoa((w*200 + i) % 80)
				value := []byte(strings.Repeat(key, 100))

				cache.Add(key, value)

				if got, ok := cache.Get(key); ok && !bytes.Equal(got, value) {
					t.Errorf("key %s: unexpected value", key)
				}
			}
		}()
	}

	wg.Wait()

	if cache.Len() > 50 {
		t.Errorf("cache exceeded its capacity: %d", cache.Len())
	}
}
