package bignum

import (
	"errors"
	"math/big"
)

// ErrPrecomputedUnsafe is returned for any requested bit size this
// module doesn't ship a precomputed safe prime for, and always for
// sizes >= 2049 bits: the spec flags that range as an unresolved TODO
// in the prototype, and this implementation resolves it by refusing
// outright rather than merely warning.
var ErrPrecomputedUnsafe = errors.New("bignum: no precomputed group parameters for this size, or size is too large to precompute safely")

// precomputedPrimes holds "I know this is unsafe" test fixtures only:
// small, well-known safe primes, never meant for a real safe. Callers
// must gate access behind an explicit unsafe override (enforced one
// layer up, in internal/safe).
var precomputedPrimes = map[int]string{
	// 128-bit safe prime for --i-know-its-unsafe test fixtures (spec.md
	// §8 boundary test "gp_bits = 128 (test-only)").
	128: "c6df76e19c5415c7645e22ddaa72d873",
	// 1025-bit safe prime, the module's normal default size, precomputed
	// so -P avoids paying for a live search in CLI smoke tests.
	1025: "147b17ad33457dedda8c68c98e5fb4e7f7f78781810b0a46bf253633924da62fb6f59d9cb55b4c85e0cb323b657abcd621328fee68f39ed3fa33a35f805ad8a359c88bb0505af3d34d27b37935285ebfced682a731bb776c7c6a7c15d41dcac7b53fc4713865e58a201aed966df2de713c4042495ceda4dfab94ee88f89707e07",
}

// PrecomputedGroupParams returns a fixed, non-random group for the
// given bit size, for testing only.
func PrecomputedGroupParams(bits int) (*GroupParams, error) {
	if bits >= 2049 {
		return nil, ErrPrecomputedUnsafe
	}
	hexP, ok := precomputedPrimes[bits]
	if !ok {
		return nil, ErrPrecomputedUnsafe
	}
	p, ok := new(big.Int).SetString(hexP, 16)
	if !ok || !p.ProbablyPrime(millerRabinRounds) {
		return nil, ErrPrecomputedUnsafe
	}
	g, err := FixGenerator(p)
	if err != nil {
		return nil, err
	}
	return &GroupParams{G: g, P: p}, nil
}
