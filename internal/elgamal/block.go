// Package elgamal implements the shared-group ElGamal ciphertext
// triples every safe block is made of, their rerandomization, and the
// worker-pool machinery that rerandomizes a whole block array.
package elgamal

import (
	"errors"
	"io"
	"math/big"

	"github.com/test-acc-vaccym/pol/internal/bignum"
)

// Block is one (c1, c2, h) ElGamal ciphertext triple, exactly as
// stored on disk: c1, c2 is the ciphertext, h = g^x is the public
// share under which it was encrypted (unchanged by rerandomization).
type Block struct {
	C1 *big.Int
	C2 *big.Int
	H  *big.Int
}

// PlaintextCapacity returns the number of plaintext bytes a single
// block can carry under group parameters gp. One byte is reserved
// internally (see Encrypt) so the encoded integer always falls in
// [2, p); everything else — length prefixes, padding, magic markers —
// is the concern of the layer above (BlockStore interprets nothing;
// AccessSlice and Container define their own wire layouts within this
// capacity).
func PlaintextCapacity(gp *bignum.GroupParams) int {
	total := (gp.P.BitLen() - 1) / 8 // integer strictly < p
	return total - 1
}

// Encrypt ElGamal-encrypts exactly PlaintextCapacity(gp) bytes of
// plaintext under public share h = g^x. Callers must pad/truncate to
// that exact length themselves (AccessSlice and the chain-block codec
// both do).
func Encrypt(gp *bignum.GroupParams, h *big.Int, plaintext []byte, rng io.Reader) (*Block, error) {
	cap := PlaintextCapacity(gp)
	if len(plaintext) != cap {
		return nil, errors.New("elgamal: plaintext must be exactly PlaintextCapacity(gp) bytes")
	}
	m := encodeMessage(plaintext)
	if m.Cmp(gp.P) >= 0 {
		return nil, errors.New("elgamal: encoded plaintext exceeds group modulus")
	}
	return encryptInt(gp, h, m, rng)
}

// Decrypt recovers the PlaintextCapacity(gp)-byte plaintext given the
// private exponent x matching b.H = g^x.
func Decrypt(gp *bignum.GroupParams, x *big.Int, b *Block) []byte {
	m := decryptInt(gp, x, b)
	return decodeMessage(gp, m)
}

func encryptInt(gp *bignum.GroupParams, h, m *big.Int, rng io.Reader) (*Block, error) {
	k, err := bignum.RandMod(rng, 2, gp.P)
	if err != nil {
		return nil, err
	}
	c1 := new(big.Int).Exp(gp.G, k, gp.P)
	hk := new(big.Int).Exp(h, k, gp.P)
	c2 := new(big.Int).Mod(new(big.Int).Mul(m, hk), gp.P)
	return &Block{C1: c1, C2: c2, H: new(big.Int).Set(h)}, nil
}

func decryptInt(gp *bignum.GroupParams, x *big.Int, b *Block) *big.Int {
	// m = c2 * c1^(-x) mod p = c2 * c1^(q-x mod q) mod p, since
	// c1's order divides q in the safe-prime subgroup.
	q := gp.Q()
	negX := new(big.Int).Mod(new(big.Int).Neg(x), q)
	inv := new(big.Int).Exp(b.C1, negX, gp.P)
	return new(big.Int).Mod(new(big.Int).Mul(b.C2, inv), gp.P)
}

// RandomBlock produces a fully random ciphertext triple,
// indistinguishable from a real encrypted block to anyone without its
// private key. Used to overwrite free space (trash_freespace) and to
// fill blocks at safe-creation time.
//
// c1 and h are drawn as g^a/g^b for fresh random exponents rather than
// uniform integers in [2, p): a real block's c1 = g^k and h = g^x are
// always elements of the order-q subgroup (quadratic residues mod p),
// so a uniform-integer trash block would be caught by an attacker
// computing c1^q mod p (1 for a real or subgroup-drawn block, 1 only
// ~half the time for a uniform one) — exactly the structural
// difference §3 and §4.8's trash_freespace forbid. c2 is left as a
// uniform integer in [2, p): a real c2 = m * h^k carries the
// arbitrary message bytes m, which are not themselves constrained to
// the subgroup, so c2's real distribution already matches this.
func RandomBlock(gp *bignum.GroupParams, rng io.Reader) (*Block, error) {
	c2, err := bignum.RandMod(rng, 2, gp.P)
	if err != nil {
		return nil, err
	}
	a, err := bignum.RandMod(rng, 2, gp.P)
	if err != nil {
		return nil, err
	}
	b, err := bignum.RandMod(rng, 2, gp.P)
	if err != nil {
		return nil, err
	}
	c1 := new(big.Int).Exp(gp.G, a, gp.P)
	h := new(big.Int).Exp(gp.G, b, gp.P)
	return &Block{C1: c1, C2: c2, H: h}, nil
}

// encodeMessage maps exactly PlaintextCapacity bytes to a group
// element by prefixing a fixed 0x01 marker byte, which guarantees the
// resulting integer is >= 2 regardless of the content bytes.
func encodeMessage(plaintext []byte) *big.Int {
	buf := make([]byte, len(plaintext)+1)
	buf[0] = 0x01
	copy(buf[1:], plaintext)
	return new(big.Int).SetBytes(buf)
}

// decodeMessage reverses encodeMessage, returning exactly
// PlaintextCapacity(gp) bytes (stripping the marker byte and
// restoring any leading zero bytes the content had).
func decodeMessage(gp *bignum.GroupParams, m *big.Int) []byte {
	cap := PlaintextCapacity(gp)
	buf := leftPad(m.Bytes(), cap+1)
	return append([]byte(nil), buf[1:]...)
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
