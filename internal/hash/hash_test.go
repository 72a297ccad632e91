package hash

import (
	"bytes"
	"math/big"
	"testing"
)

func TestTagsAreDistinct(t *testing.T) {
	tags := map[Tag]string{
		KCElGamal: "KCElGamal",
		KCList:    "KCList",
		KCAppend:  "KCAppend",
		KCID:      "KCID",
	}
	if len(tags) != 4 {
		t.Fatalf("expected 4 distinct tags, got %d", len(tags))
	}
}

func TestSetupDefaultsToSHA256(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup(nil): %v", err)
	}
	if h.Params()["algorithm"] != "sha256" {
		t.Fatalf("Params() = %v, want algorithm sha256", h.Params())
	}
}

func TestSetupUnknownAlgorithm(t *testing.T) {
	if _, err := Setup(map[string]interface{}{"algorithm": "md5"}); err == nil {
		t.Fatal("expected an error for an unknown algorithm")
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	baseKey := []byte("a base key")
	d1 := h.Derive(baseKey, KCList, 7)
	d2 := h.Derive(baseKey, KCList, 7)
	if !bytes.Equal(d1, d2) {
		t.Fatal("Derive is not deterministic for identical inputs")
	}
}

func TestDeriveDependsOnTagAndN(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	baseKey := []byte("a base key")
	base := h.Derive(baseKey, KCList, 0)
	if bytes.Equal(base, h.Derive(baseKey, KCAppend, 0)) {
		t.Fatal("Derive produced the same output for two different tags")
	}
	if bytes.Equal(base, h.Derive(baseKey, KCList, 1)) {
		t.Fatal("Derive produced the same output for two different n values")
	}
}

func TestDeriveExponentInRange(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	q := big.NewInt(104729) // a small prime, easy bound to check against
	baseKey := []byte("exponent test key")
	for n := uint64(0); n < 20; n++ {
		x := DeriveExponent(h, baseKey, KCElGamal, n, q)
		if x.Cmp(big.NewInt(1)) <= 0 || x.Cmp(q) >= 0 {
			t.Fatalf("DeriveExponent(n=%d) = %s, want in (1, %s)", n, x, q)
		}
	}
}

func TestDeriveExponentIsDeterministic(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	q := big.NewInt(104729)
	baseKey := []byte("determinism key")
	x1 := DeriveExponent(h, baseKey, KCElGamal, 3, q)
	x2 := DeriveExponent(h, baseKey, KCElGamal, 3, q)
	if x1.Cmp(x2) != 0 {
		t.Fatal("DeriveExponent is not deterministic for identical inputs")
	}
}

func TestDeriveSymmetricKeyLength(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	for _, length := range []int{1, 16, 32, 100} {
		k := DeriveSymmetricKey(h, []byte("base"), KCList, length)
		if len(k) != length {
			t.Fatalf("DeriveSymmetricKey(length=%d) returned %d bytes", length, len(k))
		}
	}
}

func TestDeriveSymmetricKeyIsDeterministic(t *testing.T) {
	h, err := Setup(nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	k1 := DeriveSymmetricKey(h, []byte("base"), KCAppend, 32)
	k2 := DeriveSymmetricKey(h, []byte("base"), KCAppend, 32)
	if !bytes.Equal(k1, k2) {
		t.Fatal("DeriveSymmetricKey is not deterministic for identical inputs")
	}
}
