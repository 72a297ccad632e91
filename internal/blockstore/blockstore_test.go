package blockstore

import (
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
)

func testBlocks(n int) []elgamal.Block {
	out := make([]elgamal.Block, n)
	for i := range out {
		out[i] = elgamal.Block{
			C1: big.NewInt(int64(10*i + 1)),
			C2: big.NewInt(int64(10*i + 2)),
			H:  big.NewInt(int64(10*i + 3)),
		}
	}
	return out
}

func TestStoreGetSet(t *testing.T) {
	s := New(3)
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	b := elgamal.Block{C1: big.NewInt(1), C2: big.NewInt(2), H: big.NewInt(3)}
	if err := s.Set(1, b); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.C1.Cmp(b.C1) != 0 || got.C2.Cmp(b.C2) != 0 || got.H.Cmp(b.H) != 0 {
		t.Fatalf("Get(1) = %+v, want %+v", got, b)
	}
}

func TestStoreOutOfRange(t *testing.T) {
	s := New(2)
	if _, err := s.Get(5); err != ErrIndexRange {
		t.Fatalf("Get(5) error = %v, want ErrIndexRange", err)
	}
	if err := s.Set(-1, elgamal.Block{}); err != ErrIndexRange {
		t.Fatalf("Set(-1) error = %v, want ErrIndexRange", err)
	}
}

func TestStoreAllSetAll(t *testing.T) {
	s := New(4)
	blocks := testBlocks(4)
	if err := s.SetAll(blocks); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	got := s.All()
	if len(got) != 4 {
		t.Fatalf("All() returned %d blocks, want 4", len(got))
	}
	for i := range got {
		if got[i].C1.Cmp(blocks[i].C1) != 0 {
			t.Fatalf("All()[%d].C1 = %s, want %s", i, got[i].C1, blocks[i].C1)
		}
	}
}

func TestStoreSetAllLengthMismatch(t *testing.T) {
	s := New(3)
	if err := s.SetAll(testBlocks(2)); err == nil {
		t.Fatal("expected an error for a length mismatch")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	gp, err := bignum.PrecomputedGroupParams(128)
	if err != nil {
		t.Fatalf("PrecomputedGroupParams: %v", err)
	}
	s := New(3)
	if err := s.SetAll(testBlocks(3)); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	doc := &Document{Type: "elgamal", FormatVersion: "1.0.0", BlockIndexSize: 1}
	Encode(doc, s, gp)

	gotStore, gotGP, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotGP.P.Cmp(gp.P) != 0 || gotGP.G.Cmp(gp.G) != 0 {
		t.Fatal("Decode returned different group params than Encode was given")
	}
	if gotStore.Len() != 3 {
		t.Fatalf("Decode returned %d blocks, want 3", gotStore.Len())
	}
	for i, want := range testBlocks(3) {
		b, err := gotStore.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if b.C1.Cmp(want.C1) != 0 || b.C2.Cmp(want.C2) != 0 || b.H.Cmp(want.H) != 0 {
			t.Fatalf("block %d = %+v, want %+v", i, b, want)
		}
	}
}

func TestMarshalUnmarshalPreservesExtraFields(t *testing.T) {
	gp, err := bignum.PrecomputedGroupParams(128)
	if err != nil {
		t.Fatalf("PrecomputedGroupParams: %v", err)
	}
	s := New(2)
	if err := s.SetAll(testBlocks(2)); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	raw, err := cbor.Marshal("a forward-compat value this build doesn't understand")
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}
	doc := &Document{
		Type:           "elgamal",
		FormatVersion:  "1.0.0",
		BlockIndexSize: 1,
		KeyStretching:  map[string]interface{}{"algorithm": "scrypt"},
		Hash:           map[string]interface{}{"algorithm": "sha256"},
		Extra:          map[string]cbor.RawMessage{"future-field": raw},
	}
	Encode(doc, s, gp)

	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != "elgamal" || got.FormatVersion != "1.0.0" {
		t.Fatalf("Unmarshal lost known fields: %+v", got)
	}
	if got.NBlocks != 2 {
		t.Fatalf("NBlocks = %d, want 2", got.NBlocks)
	}
	rawBack, ok := got.Extra["future-field"]
	if !ok {
		t.Fatal("Unmarshal dropped the unknown top-level field")
	}
	var s2 string
	if err := cbor.Unmarshal(rawBack, &s2); err != nil {
		t.Fatalf("cbor.Unmarshal(future-field): %v", err)
	}
	if s2 != "a forward-compat value this build doesn't understand" {
		t.Fatalf("future-field round-tripped to %q", s2)
	}
}

func TestDecodeBlockCountMismatch(t *testing.T) {
	gp, err := bignum.PrecomputedGroupParams(128)
	if err != nil {
		t.Fatalf("PrecomputedGroupParams: %v", err)
	}
	doc := &Document{
		NBlocks:     3,
		GroupParams: [2][]byte{gp.G.Bytes(), gp.P.Bytes()},
		Blocks:      []wireBlock{{C1: []byte{1}, C2: []byte{2}, H: []byte{3}}},
	}
	if _, _, err := Decode(doc); err == nil {
		t.Fatal("expected an error when n-blocks disagrees with len(blocks)")
	}
}
