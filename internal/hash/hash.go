// Package hash implements the domain-separated "KeyDerive" tagged
// hash: H(base_key, tag, n) -> bytes, used to turn one base key into
// an ElGamal private exponent per block plus the container's
// symmetric keys.
package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
)

// Tag is a 16-byte purpose constant.
type Tag [16]byte

var (
	// KCElGamal derives the per-block ElGamal private exponent.
	KCElGamal = Tag{0xd5, 0x3d, 0x37, 0x6a, 0x7d, 0xb4, 0x98, 0x95, 0x6d, 0x7d, 0x7f, 0x5e, 0x57, 0x05, 0x09, 0xd5}
	// KCList derives the symmetric key protecting (key, note) pairs.
	//
	// The Python prototype this module is modeled on
	// (original_source/src/safe.py) sets KC_LIST to the exact same 16
	// bytes as KC_ELGAMAL — almost certainly a copy-paste bug, since
	// using the same tag for two purposes defeats the domain
	// separation §4.3 requires. This module uses a distinct constant.
	KCList = Tag{0x4f, 0x1a, 0x2e, 0x9c, 0x33, 0x7b, 0x5d, 0x81, 0xaf, 0x06, 0xc4, 0x90, 0x1e, 0x77, 0x8a, 0x52}
	// KCAppend derives the symmetric key protecting append-only entries.
	KCAppend = Tag{0x76, 0x00, 0x1c, 0x34, 0x4c, 0xbd, 0x9e, 0x73, 0xa6, 0xb5, 0xbd, 0x48, 0xb6, 0x72, 0x66, 0xd9}
	// KCID derives the short human-displayable container id.
	KCID = Tag{0x1c, 0x05, 0x2f, 0x4e, 0xe9, 0x30, 0x1b, 0xaa, 0x8d, 0x7b, 0x60, 0x4f, 0x2d, 0x91, 0x3c, 0xe6}
)

// PurposeHash is the collision-resistant domain-separated hash family
// the spec calls KeyDerive.
type PurposeHash interface {
	Derive(baseKey []byte, tag Tag, n uint64) []byte
	Params() map[string]interface{}
}

// Setup builds a PurposeHash from a stored `hash` params map (or the
// module default, SHA-256, if params is nil / names no algorithm).
func Setup(params map[string]interface{}) (PurposeHash, error) {
	algo, _ := params["algorithm"].(string)
	switch algo {
	case "sha256", "":
		return sha256Hash{}, nil
	default:
		return nil, fmt.Errorf("hash: unknown purpose-hash algorithm %q", algo)
	}
}

type sha256Hash struct{}

func (sha256Hash) Params() map[string]interface{} {
	return map[string]interface{}{"algorithm": "sha256"}
}

// Derive computes HMAC-SHA256(key = tag, message = base_key || be64(n)).
// Using HMAC with the tag as key rather than plain concatenation avoids
// length-extension ambiguity between base_key and tag boundaries.
func (sha256Hash) Derive(baseKey []byte, tag Tag, n uint64) []byte {
	mac := hmac.New(sha256.New, tag[:])
	mac.Write(baseKey)
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], n)
	mac.Write(nb[:])
	return mac.Sum(nil)
}

// DeriveExponent reduces Derive's output mod q, the subgroup order,
// retrying with an incremented counter suffix on the (cryptographically
// negligible) chance of landing on 0 or 1.
func DeriveExponent(h PurposeHash, baseKey []byte, tag Tag, n uint64, q *big.Int) *big.Int {
	for attempt := uint64(0); ; attempt++ {
		digest := h.Derive(baseKey, tag, n+attempt<<32)
		x := new(big.Int).SetBytes(digest)
		x.Mod(x, q)
		if x.Cmp(big.NewInt(1)) > 0 {
			return x
		}
	}
}

// DeriveSymmetricKey derives a fixed-length symmetric key by
// concatenating successive Derive outputs (counter-mode expansion)
// until enough bytes are produced.
func DeriveSymmetricKey(h PurposeHash, baseKey []byte, tag Tag, length int) []byte {
	out := make([]byte, 0, length)
	for counter := uint64(0); len(out) < length; counter++ {
		out = append(out, h.Derive(baseKey, tag, counter)...)
	}
	return out[:length]
}
