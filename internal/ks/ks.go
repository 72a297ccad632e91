// Package ks implements pluggable password-to-key stretching
// ("KeyStretching" in the design).
package ks

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// MinKeyLen is the minimum base-key length the spec requires.
const MinKeyLen = 32

// Params is the safe's `key-stretching` field: algorithm id plus
// algorithm-specific cost parameters, stored verbatim on disk.
type Params map[string]interface{}

// KeyStretching derives a base key from a password, deterministically
// given params.
type KeyStretching interface {
	Stretch(password []byte) ([]byte, error)
	Params() Params
}

// Setup builds a KeyStretching from a previously-stored Params map
// (round-tripped from the safe file), or, if params is nil, creates a
// fresh one with freshly-generated salt and this module's default
// cost factors.
func Setup(params Params) (KeyStretching, error) {
	if params == nil {
		return newScrypt(1<<15, 8, 1, MinKeyLen)
	}
	algo, _ := params["algorithm"].(string)
	switch algo {
	case "scrypt", "":
		n := intField(params, "n", 1<<15)
		r := intField(params, "r", 8)
		p := intField(params, "p", 1)
		keyLen := intField(params, "key-len", MinKeyLen)
		salt, _ := params["salt"].([]byte)
		s := &scryptStretching{n: n, r: r, p: p, keyLen: keyLen, salt: salt}
		if s.salt == nil {
			return nil, errors.New("ks: scrypt params missing salt")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("ks: unknown key-stretching algorithm %q", algo)
	}
}

func intField(m Params, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	}
	return def
}

type scryptStretching struct {
	n, r, p, keyLen int
	salt            []byte
}

func newScrypt(n, r, p, keyLen int) (*scryptStretching, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return &scryptStretching{n: n, r: r, p: p, keyLen: keyLen, salt: salt}, nil
}

func (s *scryptStretching) Stretch(password []byte) ([]byte, error) {
	return scrypt.Key(password, s.salt, s.n, s.r, s.p, s.keyLen)
}

func (s *scryptStretching) Params() Params {
	return Params{
		"algorithm": "scrypt",
		"n":         s.n,
		"r":         s.r,
		"p":         s.p,
		"key-len":   s.keyLen,
		"salt":      s.salt,
	}
}
