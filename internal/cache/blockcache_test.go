package cache

import (
	"bytes"
	"testing"
)

func TestCacheGetPutRoundTrip(t *testing.T) {
	c := New(4)
	k := Key{BlockIndex: 2, KeyFP: [8]byte{1, 2, 3}}
	if _, ok := c.Get(k); ok {
		t.Fatal("Get on an empty cache returned a hit")
	}
	c.Put(k, []byte("plaintext"))
	got, ok := c.Get(k)
	if !ok {
		t.Fatal("Get after Put returned a miss")
	}
	if !bytes.Equal(got, []byte("plaintext")) {
		t.Fatalf("Get returned %q, want %q", got, "plaintext")
	}
}

func TestCacheDisabled(t *testing.T) {
	c := New(0)
	k := Key{BlockIndex: 1}
	c.Put(k, []byte("x"))
	if _, ok := c.Get(k); ok {
		t.Fatal("a size-0 cache should never hit")
	}
}

func TestCachePutCopiesPlaintext(t *testing.T) {
	c := New(4)
	k := Key{BlockIndex: 1}
	src := []byte("mutate me")
	c.Put(k, src)
	src[0] = 'X'
	got, ok := c.Get(k)
	if !ok {
		t.Fatal("Get after Put returned a miss")
	}
	if bytes.Equal(got, src) {
		t.Fatal("cache stored a reference to the caller's slice instead of a copy")
	}
	if !bytes.Equal(got, []byte("mutate me")) {
		t.Fatalf("Get returned %q, want %q", got, "mutate me")
	}
}

func TestCacheDistinguishesKeys(t *testing.T) {
	c := New(4)
	k1 := Key{BlockIndex: 1, KeyFP: [8]byte{0xaa}}
	k2 := Key{BlockIndex: 1, KeyFP: [8]byte{0xbb}}
	c.Put(k1, []byte("one"))
	c.Put(k2, []byte("two"))
	got1, _ := c.Get(k1)
	got2, _ := c.Get(k2)
	if bytes.Equal(got1, got2) {
		t.Fatal("two different keys returned the same cached value")
	}
}
