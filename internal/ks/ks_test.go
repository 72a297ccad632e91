package ks

import (
	"bytes"
	"testing"
)

func TestSetupNilGeneratesFreshSalt(t *testing.T) {
	k1, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup(nil): %v", err)
	}
	k2, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup(nil): %v", err)
	}
	p1, p2 := k1.Params(), k2.Params()
	if bytes.Equal(p1["salt"].([]byte), p2["salt"].([]byte)) {
		t.Fatal("two Setup(nil) calls produced the same salt")
	}
}

func TestStretchRoundTripsThroughParams(t *testing.T) {
	// Small cost factors: this test exercises the round trip, not the
	// production cost parameters.
	orig, err := Setup(Params{"n": 16, "r": 8, "p": 1, "key-len": MinKeyLen, "salt": []byte("0123456789abcdef")})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	password := []byte("a test password")
	k1, err := orig.Stretch(password)
	if err != nil {
		t.Fatalf("Stretch: %v", err)
	}
	if len(k1) != MinKeyLen {
		t.Fatalf("Stretch returned %d bytes, want %d", len(k1), MinKeyLen)
	}

	restored, err := Setup(orig.Params())
	if err != nil {
		t.Fatalf("Setup(orig.Params()): %v", err)
	}
	k2, err := restored.Stretch(password)
	if err != nil {
		t.Fatalf("Stretch: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("stretching the same password through round-tripped params produced different keys")
	}
}

func TestStretchDifferentPasswordsDiffer(t *testing.T) {
	k, err := Setup(Params{"n": 16, "r": 8, "p": 1, "key-len": MinKeyLen, "salt": []byte("0123456789abcdef")})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	a, err := k.Stretch([]byte("password one"))
	if err != nil {
		t.Fatalf("Stretch: %v", err)
	}
	b, err := k.Stretch([]byte("password two"))
	if err != nil {
		t.Fatalf("Stretch: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two different passwords stretched to the same key")
	}
}

func TestSetupMissingSalt(t *testing.T) {
	if _, err := Setup(Params{"algorithm": "scrypt"}); err == nil {
		t.Fatal("expected an error when salt is missing")
	}
}

func TestSetupUnknownAlgorithm(t *testing.T) {
	if _, err := Setup(Params{"algorithm": "pbkdf2", "salt": []byte("x")}); err == nil {
		t.Fatal("expected an error for an unknown algorithm")
	}
}
