// Package bignum implements the modular-arithmetic plumbing the
// ElGamal engine needs: safe-prime group-parameter search, generator
// fixing, and the handful of big.Int helpers callers otherwise end up
// rewriting everywhere.
//
// math/big is used rather than a third-party bignum library: Go's
// standard library already composes a Miller-Rabin test with a
// Baillie-PSW-style Lucas check inside ProbablyPrime, which is
// exactly what the safe-prime search needs, and it is the idiomatic
// choice in every Go codebase in this corpus that touches modular
// arithmetic (kr's protocol.go imports math/big directly for RSA).
package bignum

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"github.com/test-acc-vaccym/pol/internal/corelog"
)

var log = corelog.Log()

// GroupParams is the shared ElGamal group: g generates the large
// prime-order subgroup of order q = (p-1)/2 inside (Z/pZ)*.
type GroupParams struct {
	G *big.Int
	P *big.Int
}

// Q returns the subgroup order (p-1)/2.
func (gp *GroupParams) Q() *big.Int {
	q := new(big.Int).Sub(gp.P, big.NewInt(1))
	return q.Rsh(q, 1)
}

// Progress reports search status for long-running group generation.
type Progress struct {
	Phase    string // "prime-search" or "generator"
	Fraction float64
}

const millerRabinRounds = 20

// GenerateSafePrime searches for a safe prime p of the given bit
// length: p is prime and q = (p-1)/2 is also prime. It never returns a
// non-prime; on internal primality-test failure it silently retries
// with a fresh candidate (spec's "invisible" cryptographic-failure
// handling).
func GenerateSafePrime(bits int, rng io.Reader, progress func(Progress)) (*big.Int, error) {
	if bits < 16 {
		return nil, errors.New("bignum: bit size too small")
	}
	attempts := 0
	for {
		attempts++
		if progress != nil {
			// Asymptotically the chance a random odd number of this
			// size is a safe prime is O(1/bits^2); report a coarse,
			// monotonically-reassuring fraction rather than a precise
			// one, matching the spec's "estimated completion
			// fraction" language.
			frac := 1 - 1/(1+float64(attempts)/float64(bits))
			progress(Progress{Phase: "prime-search", Fraction: frac})
		}
		q, err := randPrimeCandidate(bits-1, rng)
		if err != nil {
			return nil, err
		}
		if !q.ProbablyPrime(millerRabinRounds) {
			continue
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, big.NewInt(1))
		if p.BitLen() != bits {
			continue
		}
		if !p.ProbablyPrime(millerRabinRounds) {
			continue
		}
		return p, nil
	}
}

// randPrimeCandidate draws a random bits-length probable prime via
// crypto/rand.Prime (used as the q = (p-1)/2 candidate).
func randPrimeCandidate(bits int, rng io.Reader) (*big.Int, error) {
	n, err := rand.Prime(rng, bits)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FixGenerator finds a generator g of the order-q subgroup of
// (Z/pZ)*, where q = (p-1)/2, by probing small bases. The search is
// deterministic given p; no randomness is needed.
func FixGenerator(p *big.Int) (*big.Int, error) {
	q := new(big.Int).Sub(p, big.NewInt(1))
	q.Rsh(q, 1)
	one := big.NewInt(1)
	for base := int64(2); base < 1000; base++ {
		g := big.NewInt(base)
		// g generates the order-q subgroup iff g^2 != 1 mod p and
		// g^q == 1 mod p (since the subgroup lattice of Z/pZ* for a
		// safe prime is {1, 2, q}-ordered).
		gq := new(big.Int).Exp(g, q, p)
		if gq.Cmp(one) != 0 {
			continue
		}
		g2 := new(big.Int).Exp(g, big.NewInt(2), p)
		if g2.Cmp(one) == 0 {
			continue
		}
		return g, nil
	}
	return nil, errors.New("bignum: failed to fix a generator")
}

// GenerateGroupParams runs the full search: a safe prime of the
// requested bit size, then a generator for its large subgroup.
func GenerateGroupParams(bits int, rng io.Reader, progress func(Progress)) (*GroupParams, error) {
	log.Debugf("searching for a %d-bit safe prime", bits)
	p, err := GenerateSafePrime(bits, rng, progress)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(Progress{Phase: "generator", Fraction: 0})
	}
	g, err := FixGenerator(p)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(Progress{Phase: "generator", Fraction: 1})
	}
	log.Debugf("found group parameters: %d-bit p", p.BitLen())
	return &GroupParams{G: g, P: p}, nil
}

// PublicShare computes g^x mod p, the ElGamal public share for
// private exponent x.
func (gp *GroupParams) PublicShare(x *big.Int) *big.Int {
	return new(big.Int).Exp(gp.G, x, gp.P)
}

// RandMod draws a uniform random value in [lo, n) using rng.
func RandMod(rng io.Reader, lo int64, n *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(n, big.NewInt(lo))
	if span.Sign() <= 0 {
		return nil, errors.New("bignum: empty range")
	}
	v, err := rand.Int(rng, span)
	if err != nil {
		return nil, err
	}
	return v.Add(v, big.NewInt(lo)), nil
}
