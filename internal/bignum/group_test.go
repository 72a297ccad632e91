package bignum

import (
	"crypto/rand"
	"math/big"
	"testing"
)

func TestGenerateSafePrime(t *testing.T) {
	const bits = 32
	p, err := GenerateSafePrime(bits, rand.Reader, nil)
	if err != nil {
		t.Fatalf("GenerateSafePrime(%d): %v", bits, err)
	}
	if p.BitLen() != bits {
		t.Fatalf("p.BitLen() = %d, want %d", p.BitLen(), bits)
	}
	if !p.ProbablyPrime(20) {
		t.Fatalf("p = %s is not prime", p)
	}
	q := new(big.Int).Sub(p, big.NewInt(1))
	q.Rsh(q, 1)
	if !q.ProbablyPrime(20) {
		t.Fatalf("(p-1)/2 = %s is not prime", q)
	}
}

func TestGenerateSafePrimeRejectsTinyBits(t *testing.T) {
	if _, err := GenerateSafePrime(8, rand.Reader, nil); err == nil {
		t.Fatal("expected an error for an 8-bit request")
	}
}

func TestGenerateSafePrimeReportsProgress(t *testing.T) {
	var phases []string
	_, err := GenerateSafePrime(24, rand.Reader, func(p Progress) {
		phases = append(phases, p.Phase)
	})
	if err != nil {
		t.Fatalf("GenerateSafePrime: %v", err)
	}
	if len(phases) == 0 {
		t.Fatal("expected at least one progress callback")
	}
	for _, ph := range phases {
		if ph != "prime-search" {
			t.Fatalf("unexpected progress phase %q", ph)
		}
	}
}

func TestFixGenerator(t *testing.T) {
	p, err := GenerateSafePrime(32, rand.Reader, nil)
	if err != nil {
		t.Fatalf("GenerateSafePrime: %v", err)
	}
	g, err := FixGenerator(p)
	if err != nil {
		t.Fatalf("FixGenerator: %v", err)
	}
	q := new(big.Int).Sub(p, big.NewInt(1))
	q.Rsh(q, 1)
	one := big.NewInt(1)
	if gq := new(big.Int).Exp(g, q, p); gq.Cmp(one) != 0 {
		t.Fatalf("g^q mod p = %s, want 1", gq)
	}
	if g2 := new(big.Int).Exp(g, big.NewInt(2), p); g2.Cmp(one) == 0 {
		t.Fatal("g^2 mod p == 1, g does not generate the order-q subgroup")
	}
}

func TestGenerateGroupParams(t *testing.T) {
	gp, err := GenerateGroupParams(32, rand.Reader, nil)
	if err != nil {
		t.Fatalf("GenerateGroupParams: %v", err)
	}
	if gp.G == nil || gp.P == nil {
		t.Fatal("GenerateGroupParams returned nil fields")
	}
	q := gp.Q()
	want := new(big.Int).Sub(gp.P, big.NewInt(1))
	want.Rsh(want, 1)
	if q.Cmp(want) != 0 {
		t.Fatalf("Q() = %s, want %s", q, want)
	}
}

func TestPublicShare(t *testing.T) {
	gp, err := GenerateGroupParams(32, rand.Reader, nil)
	if err != nil {
		t.Fatalf("GenerateGroupParams: %v", err)
	}
	x := big.NewInt(7)
	got := gp.PublicShare(x)
	want := new(big.Int).Exp(gp.G, x, gp.P)
	if got.Cmp(want) != 0 {
		t.Fatalf("PublicShare(7) = %s, want %s", got, want)
	}
}

func TestRandMod(t *testing.T) {
	n := big.NewInt(100)
	for i := 0; i < 50; i++ {
		v, err := RandMod(rand.Reader, 2, n)
		if err != nil {
			t.Fatalf("RandMod: %v", err)
		}
		if v.Cmp(big.NewInt(2)) < 0 || v.Cmp(n) >= 0 {
			t.Fatalf("RandMod(2, 100) = %s, out of range [2, 100)", v)
		}
	}
}

func TestRandModEmptyRange(t *testing.T) {
	if _, err := RandMod(rand.Reader, 5, big.NewInt(5)); err == nil {
		t.Fatal("expected an error for an empty range")
	}
}
