package elgamal

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/test-acc-vaccym/pol/internal/bignum"
)

func TestSplitIntoChunks(t *testing.T) {
	cases := []struct {
		n, workers int
		wantChunks int
		wantTotal  int
	}{
		{10, 3, 3, 10},
		{2, 5, 2, 2},
		{0, 4, 0, 0},
		{7, 1, 1, 7},
	}
	for _, c := range cases {
		chunks := splitIntoChunks(c.n, c.workers)
		if len(chunks) != c.wantChunks {
			t.Fatalf("splitIntoChunks(%d, %d): %d chunks, want %d", c.n, c.workers, len(chunks), c.wantChunks)
		}
		total := 0
		for i, ch := range chunks {
			if ch.start != total {
				t.Fatalf("splitIntoChunks(%d, %d): chunk %d starts at %d, want %d", c.n, c.workers, i, ch.start, total)
			}
			total += ch.end - ch.start
		}
		if total != c.wantTotal {
			t.Fatalf("splitIntoChunks(%d, %d): covered %d items, want %d", c.n, c.workers, total, c.wantTotal)
		}
	}
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Fatal("DefaultWorkers() returned < 1")
	}
}

func TestNewExecutorKind(t *testing.T) {
	if _, ok := NewExecutor(2, false).(*ThreadExecutor); !ok {
		t.Fatal("NewExecutor(_, false) did not return a *ThreadExecutor")
	}
	if _, ok := NewExecutor(2, true).(*ProcessExecutor); !ok {
		t.Fatal("NewExecutor(_, true) did not return a *ProcessExecutor")
	}
}

// TestRunWorkerRoundTrip exercises the subprocess side of
// ProcessExecutor directly (RunWorker), since spawning a real
// subprocess from a test binary isn't portable; it still proves the
// wire format and rerandomization-preserves-plaintext property for the
// process path.
func TestRunWorkerRoundTrip(t *testing.T) {
	gp := testGroupParams(t)
	cap := PlaintextCapacity(gp)

	x, err := bignum.RandMod(rand.Reader, 2, gp.Q())
	if err != nil {
		t.Fatalf("RandMod: %v", err)
	}
	h := gp.PublicShare(x)
	pt := make([]byte, cap)
	pt[0] = 0x42
	b, err := Encrypt(gp, h, pt, rand.Reader)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	batch := workerBatch{G: gp.G.Bytes(), P: gp.P.Bytes(), Blocks: []wireBlock{toWire(b)}}
	payload, err := cbor.Marshal(batch)
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}

	var out bytes.Buffer
	if err := RunWorker(bytes.NewReader(payload), &out); err != nil {
		t.Fatalf("RunWorker: %v", err)
	}

	var result []wireBlock
	if err := cbor.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("cbor.Unmarshal: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("RunWorker returned %d blocks, want 1", len(result))
	}
	rb := fromWire(result[0])
	got := Decrypt(gp, x, &rb)
	if !bytes.Equal(got, pt) {
		t.Fatalf("Decrypt(RunWorker(Encrypt(pt))) = %x, want %x", got, pt)
	}
}
