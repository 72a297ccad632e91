// Package blockstore implements the safe's fixed-size array of
// ElGamal ciphertext triples (spec.md §4.4 "BlockStore") and its
// on-disk codec. The store has no semantic interpretation of any
// block's contents; that belongs to internal/accessslice and
// internal/container.
package blockstore

import (
	"errors"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
)

// ErrIndexRange reports an out-of-bounds block access.
var ErrIndexRange = errors.New("blockstore: block index out of range")

// wireBlock is the on-disk encoding of one block: three unsigned,
// minimal-length, big-endian byte strings, per spec.md §3.
type wireBlock struct {
	C1 []byte `cbor:"c1"`
	C2 []byte `cbor:"c2"`
	H  []byte `cbor:"h"`
}

// Document is the full on-disk representation (spec.md §3's
// self-describing key-value map). Extra holds every top-level field
// this build doesn't itself interpret, keyed by field name and kept
// as raw CBOR; Marshal/Unmarshal round-trip it unchanged, satisfying
// §6.1's forward-compatibility requirement.
type Document struct {
	Type           string
	FormatVersion  string
	NBlocks        int
	BlockIndexSize int
	GroupParams    [2][]byte
	KeyStretching  map[string]interface{}
	Hash           map[string]interface{}
	Blocks         []wireBlock
	Extra          map[string]cbor.RawMessage
}

// knownFields are the top-level keys Document understands natively;
// everything else round-trips through Extra.
var knownFields = map[string]bool{
	"type": true, "format-version": true, "n-blocks": true,
	"block-index-size": true, "group-params": true,
	"key-stretching": true, "hash": true, "blocks": true,
}

// Store is the in-memory, typed view of a Document's block array: a
// random-access, indexed array of ciphertext triples.
type Store struct {
	blocks []elgamal.Block
}

// New allocates a store of n blocks, all zero-valued (callers fill
// them in before first persisting).
func New(n int) *Store {
	return &Store{blocks: make([]elgamal.Block, n)}
}

// Len returns n-blocks.
func (s *Store) Len() int { return len(s.blocks) }

// Get returns the block at index i.
func (s *Store) Get(i int) (elgamal.Block, error) {
	if i < 0 || i >= len(s.blocks) {
		return elgamal.Block{}, ErrIndexRange
	}
	return s.blocks[i], nil
}

// Set replaces the block at index i.
func (s *Store) Set(i int, b elgamal.Block) error {
	if i < 0 || i >= len(s.blocks) {
		return ErrIndexRange
	}
	s.blocks[i] = b
	return nil
}

// All returns every block, in index order, for bulk rerandomization.
func (s *Store) All() []elgamal.Block {
	return append([]elgamal.Block(nil), s.blocks...)
}

// SetAll replaces every block, in index order; used to commit a
// rerandomized batch back into the store.
func (s *Store) SetAll(blocks []elgamal.Block) error {
	if len(blocks) != len(s.blocks) {
		return errors.New("blockstore: rerandomized batch length mismatch")
	}
	copy(s.blocks, blocks)
	return nil
}

// Decode parses a Document's blocks and group parameters into a
// Store and GroupParams pair.
func Decode(doc *Document) (*Store, *bignum.GroupParams, error) {
	if len(doc.GroupParams) != 2 {
		return nil, nil, errors.New("blockstore: malformed group-params")
	}
	gp := &bignum.GroupParams{
		G: new(big.Int).SetBytes(doc.GroupParams[0]),
		P: new(big.Int).SetBytes(doc.GroupParams[1]),
	}
	if len(doc.Blocks) != doc.NBlocks {
		return nil, nil, errors.New("blockstore: n-blocks disagrees with len(blocks)")
	}
	s := New(len(doc.Blocks))
	for i, wb := range doc.Blocks {
		s.blocks[i] = elgamal.Block{
			C1: new(big.Int).SetBytes(wb.C1),
			C2: new(big.Int).SetBytes(wb.C2),
			H:  new(big.Int).SetBytes(wb.H),
		}
	}
	return s, gp, nil
}

// Encode renders a Store back into a Document's block array and
// group-params fields. Callers set every other Document field (type,
// format-version, sizes, KDF params) themselves.
func Encode(doc *Document, s *Store, gp *bignum.GroupParams) {
	doc.GroupParams = [2][]byte{gp.G.Bytes(), gp.P.Bytes()}
	doc.NBlocks = s.Len()
	doc.Blocks = make([]wireBlock, s.Len())
	for i, b := range s.blocks {
		doc.Blocks[i] = wireBlock{C1: b.C1.Bytes(), C2: b.C2.Bytes(), H: b.H.Bytes()}
	}
}

// Marshal renders doc to its CBOR wire form, merging Extra's raw
// fields alongside the known ones.
func Marshal(doc *Document) ([]byte, error) {
	m := map[string]interface{}{
		"type":             doc.Type,
		"format-version":   doc.FormatVersion,
		"n-blocks":         doc.NBlocks,
		"block-index-size": doc.BlockIndexSize,
		"group-params":     doc.GroupParams,
		"key-stretching":   doc.KeyStretching,
		"hash":             doc.Hash,
		"blocks":           doc.Blocks,
	}
	out := map[string]cbor.RawMessage{}
	for k, v := range m {
		raw, err := cbor.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	for k, v := range doc.Extra {
		if !knownFields[k] {
			out[k] = v
		}
	}
	return cbor.Marshal(out)
}

// Unmarshal parses a CBOR-encoded document, preserving any top-level
// field this build doesn't recognize in doc.Extra.
func Unmarshal(data []byte) (*Document, error) {
	var raw map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	doc := &Document{Extra: map[string]cbor.RawMessage{}}
	for k, v := range raw {
		if !knownFields[k] {
			doc.Extra[k] = v
			continue
		}
		var err error
		switch k {
		case "type":
			err = cbor.Unmarshal(v, &doc.Type)
		case "format-version":
			err = cbor.Unmarshal(v, &doc.FormatVersion)
		case "n-blocks":
			err = cbor.Unmarshal(v, &doc.NBlocks)
		case "block-index-size":
			err = cbor.Unmarshal(v, &doc.BlockIndexSize)
		case "group-params":
			err = cbor.Unmarshal(v, &doc.GroupParams)
		case "key-stretching":
			err = cbor.Unmarshal(v, &doc.KeyStretching)
		case "hash":
			err = cbor.Unmarshal(v, &doc.Hash)
		case "blocks":
			err = cbor.Unmarshal(v, &doc.Blocks)
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}
