package elgamal

import (
	"context"
	"io"
	"math/big"

	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/corelog"
)

var log = corelog.Log()

func newIntFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Rerandomize refreshes a single block's ciphertext randomness
// without decrypting it: c1 <- c1*g^s, c2 <- c2*h^s for fresh random
// s, leaving h untouched. Any private key x with h = g^x still
// decrypts the same plaintext afterwards (spec.md §4.5).
func Rerandomize(gp *bignum.GroupParams, b *Block, rng io.Reader) (*Block, error) {
	s, err := bignum.RandMod(rng, 2, gp.P)
	if err != nil {
		return nil, err
	}
	gs := new(big.Int).Exp(gp.G, s, gp.P)
	hs := new(big.Int).Exp(b.H, s, gp.P)
	c1 := new(big.Int).Mod(new(big.Int).Mul(b.C1, gs), gp.P)
	c2 := new(big.Int).Mod(new(big.Int).Mul(b.C2, hs), gp.P)
	return &Block{C1: c1, C2: c2, H: new(big.Int).Set(b.H)}, nil
}

// RerandomizeAll refreshes every block in blocks via exec, preserving
// input order. It is all-or-nothing: a single block's failure aborts
// the call so a caller never ends up persisting a half-rerandomized
// array (spec.md §5 commit atomicity).
func RerandomizeAll(ctx context.Context, gp *bignum.GroupParams, blocks []Block, exec Executor) ([]Block, error) {
	log.Debugf("rerandomizing %d blocks", len(blocks))
	out, err := exec.Rerandomize(ctx, gp, blocks)
	if err != nil {
		return nil, err
	}
	if len(out) != len(blocks) {
		return nil, errMismatchedLength
	}
	return out, nil
}

var errMismatchedLength = &rerandomizeError{"rerandomizer returned a different number of blocks than it was given"}

type rerandomizeError struct{ msg string }

func (e *rerandomizeError) Error() string { return "elgamal: " + e.msg }
