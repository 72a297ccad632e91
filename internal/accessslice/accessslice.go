// Package accessslice encodes and decodes the structured payload
// found at a container's anchor block once its ElGamal layer has been
// decrypted: the access slice describes which capability a password
// grants and which block chains and symmetric keys go with it.
//
// Layout (within one block's plaintext capacity):
//
//	magic : 4 bytes            (= ASMagic)
//	kind  : 1 byte             (0=Full, 1=ListOnly, 2=AppendOnly)
//	chains: one zero-terminated index run per lane the kind grants —
//	        Full carries list, secret, then append runs back to back;
//	        ListOnly carries only the list run; AppendOnly only the
//	        append run.
//	keys  : symmetric key material, sized by kind (see Keys)
//	pad   : random bytes filling out the rest of the block
package accessslice

import (
	"encoding/binary"
	"errors"
)

// ASMagic is the fixed 4-byte marker an anchor's decrypted plaintext
// must start with.
const ASMagic uint32 = 0x1a1a8ad7

// Kind is the capability an access slice grants.
type Kind uint8

const (
	Full       Kind = 0
	ListOnly   Kind = 1
	AppendOnly Kind = 2
)

func (k Kind) String() string {
	switch k {
	case Full:
		return "full"
	case ListOnly:
		return "list-only"
	case AppendOnly:
		return "append-only"
	default:
		return "unknown"
	}
}

// Keys holds whichever symmetric keys this access slice's kind
// entitles its holder to: Full carries all three, ListOnly only
// ListKey, AppendOnly only AppendKey.
type Keys struct {
	ListKey   []byte
	AppendKey []byte
	SecretKey []byte
}

// AccessSlice is the decoded anchor payload. Only the chain(s)
// relevant to Kind are populated on Decode; Encode only serializes
// the chain(s) relevant to Kind, ignoring the others.
type AccessSlice struct {
	Kind        Kind
	ListChain   []int
	SecretChain []int
	AppendChain []int
	Keys        Keys
}

const symKeyLen = 32

var (
	ErrBadMagic    = errors.New("accessslice: magic marker mismatch")
	ErrMalformed   = errors.New("accessslice: malformed access slice payload")
	ErrChainTooBig = errors.New("accessslice: chains do not fit in one block")
)

// IndexCodec converts block indices to/from their on-disk fixed
// width, per spec.md §4/§9: block-index-size is one of {1: uint8, 2:
// uint16, 4: uint32}. The original Python prototype
// (original_source/src/safe.py, ElGamalSafe.__init__) has a
// duplicated `elif ... == 4` branch that leaves block-index-size == 2
// unhandled; this is the corrected mapping spec.md §9 asks for.
type IndexCodec struct {
	size int
}

func NewIndexCodec(blockIndexSize int) (*IndexCodec, error) {
	switch blockIndexSize {
	case 1, 2, 4:
		return &IndexCodec{size: blockIndexSize}, nil
	default:
		return nil, errors.New("accessslice: block-index-size must be 1, 2, or 4")
	}
}

func (c *IndexCodec) Size() int { return c.size }

func (c *IndexCodec) put(buf []byte, v int) {
	switch c.size {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(v))
	}
}

func (c *IndexCodec) get(buf []byte) int {
	switch c.size {
	case 1:
		return int(buf[0])
	case 2:
		return int(binary.BigEndian.Uint16(buf))
	case 4:
		return int(binary.BigEndian.Uint32(buf))
	}
	return 0
}

func putChain(buf []byte, off int, codec *IndexCodec, chain []int) int {
	for _, idx := range chain {
		codec.put(buf[off:off+codec.size], idx)
		off += codec.size
	}
	off += codec.size // zero terminator
	return off
}

func chainLen(codec *IndexCodec, chain []int) int {
	return (len(chain) + 1) * codec.size
}

// Encode serializes an access slice into exactly capacity bytes,
// padding the remainder with randPad (caller-supplied CSPRNG output).
func Encode(as *AccessSlice, codec *IndexCodec, capacity int, randPad []byte) ([]byte, error) {
	var keyBytes []byte
	headerLen := 5
	switch as.Kind {
	case Full:
		headerLen += chainLen(codec, as.ListChain) + chainLen(codec, as.SecretChain) + chainLen(codec, as.AppendChain)
		if len(as.Keys.ListKey) != symKeyLen || len(as.Keys.AppendKey) != symKeyLen || len(as.Keys.SecretKey) != symKeyLen {
			return nil, ErrMalformed
		}
		keyBytes = append(keyBytes, as.Keys.ListKey...)
		keyBytes = append(keyBytes, as.Keys.AppendKey...)
		keyBytes = append(keyBytes, as.Keys.SecretKey...)
	case ListOnly:
		headerLen += chainLen(codec, as.ListChain)
		if len(as.Keys.ListKey) != symKeyLen {
			return nil, ErrMalformed
		}
		keyBytes = as.Keys.ListKey
	case AppendOnly:
		headerLen += chainLen(codec, as.AppendChain)
		if len(as.Keys.AppendKey) != symKeyLen {
			return nil, ErrMalformed
		}
		keyBytes = as.Keys.AppendKey
	default:
		return nil, ErrMalformed
	}
	headerLen += len(keyBytes)
	if headerLen > capacity {
		return nil, ErrChainTooBig
	}

	out := make([]byte, capacity)
	binary.BigEndian.PutUint32(out[0:4], ASMagic)
	out[4] = byte(as.Kind)
	off := 5
	switch as.Kind {
	case Full:
		off = putChain(out, off, codec, as.ListChain)
		off = putChain(out, off, codec, as.SecretChain)
		off = putChain(out, off, codec, as.AppendChain)
	case ListOnly:
		off = putChain(out, off, codec, as.ListChain)
	case AppendOnly:
		off = putChain(out, off, codec, as.AppendChain)
	}
	copy(out[off:], keyBytes)
	off += len(keyBytes)
	copy(out[off:], randPad)
	return out, nil
}

// Decode parses an access slice out of a decrypted capacity-byte
// plaintext. It returns ErrBadMagic (not a hard failure — callers use
// this to distinguish "not an anchor for this password" from a real
// parse error) when the magic marker doesn't match.
func Decode(plaintext []byte, codec *IndexCodec) (*AccessSlice, error) {
	if len(plaintext) < 5 {
		return nil, ErrMalformed
	}
	if binary.BigEndian.Uint32(plaintext[0:4]) != ASMagic {
		return nil, ErrBadMagic
	}
	kind := Kind(plaintext[4])
	off := 5

	readChain := func() ([]int, error) {
		var chain []int
		for {
			if off+codec.size > len(plaintext) {
				return nil, ErrMalformed
			}
			idx := codec.get(plaintext[off : off+codec.size])
			off += codec.size
			if idx == 0 {
				break
			}
			chain = append(chain, idx)
		}
		return chain, nil
	}

	as := &AccessSlice{Kind: kind}
	var err error
	switch kind {
	case Full:
		if as.ListChain, err = readChain(); err != nil {
			return nil, err
		}
		if as.SecretChain, err = readChain(); err != nil {
			return nil, err
		}
		if as.AppendChain, err = readChain(); err != nil {
			return nil, err
		}
		if off+3*symKeyLen > len(plaintext) {
			return nil, ErrMalformed
		}
		as.Keys.ListKey = clone(plaintext[off : off+symKeyLen])
		off += symKeyLen
		as.Keys.AppendKey = clone(plaintext[off : off+symKeyLen])
		off += symKeyLen
		as.Keys.SecretKey = clone(plaintext[off : off+symKeyLen])
	case ListOnly:
		if as.ListChain, err = readChain(); err != nil {
			return nil, err
		}
		if off+symKeyLen > len(plaintext) {
			return nil, ErrMalformed
		}
		as.Keys.ListKey = clone(plaintext[off : off+symKeyLen])
	case AppendOnly:
		if as.AppendChain, err = readChain(); err != nil {
			return nil, err
		}
		if off+symKeyLen > len(plaintext) {
			return nil, ErrMalformed
		}
		as.Keys.AppendKey = clone(plaintext[off : off+symKeyLen])
	default:
		return nil, ErrMalformed
	}
	return as, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// HasMagic is a cheap pre-check anchor scanning uses before attempting
// the (slightly more expensive) full Decode.
func HasMagic(plaintext []byte) bool {
	return len(plaintext) >= 4 && binary.BigEndian.Uint32(plaintext[0:4]) == ASMagic
}
