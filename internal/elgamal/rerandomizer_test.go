package elgamal

import (
	"bytes"
	"context"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/test-acc-vaccym/pol/internal/bignum"
)

func TestRerandomizePreservesPlaintext(t *testing.T) {
	gp := testGroupParams(t)
	cap := PlaintextCapacity(gp)
	plaintext := make([]byte, cap)
	if _, err := rand.Read(plaintext); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	x, err := bignum.RandMod(rand.Reader, 2, gp.Q())
	if err != nil {
		t.Fatalf("RandMod: %v", err)
	}
	h := gp.PublicShare(x)
	b, err := Encrypt(gp, h, plaintext, rand.Reader)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	rb, err := Rerandomize(gp, b, rand.Reader)
	if err != nil {
		t.Fatalf("Rerandomize: %v", err)
	}
	if rb.H.Cmp(b.H) != 0 {
		t.Fatal("Rerandomize changed H")
	}
	if rb.C1.Cmp(b.C1) == 0 && rb.C2.Cmp(b.C2) == 0 {
		t.Fatal("Rerandomize left the ciphertext unchanged")
	}
	got := Decrypt(gp, x, rb)
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Decrypt(Rerandomize(Encrypt(plaintext))) = %x, want %x", got, plaintext)
	}
}

func TestRerandomizeAllPreservesOrder(t *testing.T) {
	gp := testGroupParams(t)
	cap := PlaintextCapacity(gp)
	const n = 5

	plaintexts := make([][]byte, n)
	privKeys := make([]*big.Int, n)
	blocks := make([]Block, n)
	for i := 0; i < n; i++ {
		pt := make([]byte, cap)
		pt[0] = byte(i + 1)
		plaintexts[i] = pt
		x, err := bignum.RandMod(rand.Reader, 2, gp.Q())
		if err != nil {
			t.Fatalf("RandMod: %v", err)
		}
		privKeys[i] = x
		h := gp.PublicShare(x)
		b, err := Encrypt(gp, h, pt, rand.Reader)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		blocks[i] = *b
	}

	exec := NewExecutor(2, false)
	defer exec.Close()
	out, err := RerandomizeAll(context.Background(), gp, blocks, exec)
	if err != nil {
		t.Fatalf("RerandomizeAll: %v", err)
	}
	if len(out) != n {
		t.Fatalf("RerandomizeAll returned %d blocks, want %d", len(out), n)
	}
	for i := range out {
		got := Decrypt(gp, privKeys[i], &out[i])
		if !bytes.Equal(got, plaintexts[i]) {
			t.Fatalf("block %d: Decrypt = %x, want %x", i, got, plaintexts[i])
		}
	}
}
