package elgamal

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"os"
	"os/exec"
	"runtime"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/test-acc-vaccym/pol/internal/bignum"
)

// Executor rerandomizes a full block array, either across goroutines
// in this process or across helper subprocesses, per spec.md §4.5/§9's
// "abstract Executor interface with two implementations" design note.
// Implementations must preserve index order: output[i] is the
// rerandomization of input[i].
type Executor interface {
	Rerandomize(ctx context.Context, gp *bignum.GroupParams, blocks []Block) ([]Block, error)
	Close() error
}

// DefaultWorkers is the worker count used when the caller doesn't
// specify one: the CPU count, per spec.md §4.5.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// NewExecutor returns a thread-backed or process-backed Executor.
func NewExecutor(workers int, useProcesses bool) Executor {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if useProcesses {
		return &ProcessExecutor{workers: workers}
	}
	return &ThreadExecutor{workers: workers}
}

// ThreadExecutor bounds concurrent goroutines with a weighted
// semaphore and aggregates the first error via errgroup.
type ThreadExecutor struct {
	workers int
}

func (t *ThreadExecutor) Rerandomize(ctx context.Context, gp *bignum.GroupParams, blocks []Block) ([]Block, error) {
	out := make([]Block, len(blocks))
	sem := semaphore.NewWeighted(int64(t.workers))
	g, ctx := errgroup.WithContext(ctx)
	for i := range blocks {
		i := i
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			// Each goroutine reseeds its own CSPRNG-backed stream at
			// spawn (spec.md §5: "each worker reseeds independently
			// on fork/spawn"), rather than contending on the shared
			// global crypto/rand reader for the high-volume blinding
			// draws rerandomization makes.
			rng, err := newWorkerRNG()
			if err != nil {
				return err
			}
			rb, err := Rerandomize(gp, &blocks[i], rng)
			if err != nil {
				return err
			}
			out[i] = *rb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *ThreadExecutor) Close() error { return nil }

// newWorkerRNG seeds a ChaCha8 stream from crypto/rand: fast per-draw,
// independently seeded per worker, used for the s blinding exponent;
// key material and padding elsewhere in this module still draw
// directly from crypto/rand.
func newWorkerRNG() (io.Reader, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	return &chaCha8Reader{r: mathrand.NewChaCha8(seed)}, nil
}

type chaCha8Reader struct {
	r *mathrand.ChaCha8
}

func (c *chaCha8Reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c.r.Uint64())
	}
	return len(p), nil
}

// ProcessExecutor re-executes the current binary with a hidden
// subcommand per chunk of blocks, feeding it a CBOR-encoded batch over
// stdin and reading the rerandomized batch back over stdout. This is
// the isolation option spec.md §9 asks for when "ambient state is
// hostile to threading".
type ProcessExecutor struct {
	workers int
	// SelfPath overrides the re-exec target. Defaults to
	// os.Executable().
	SelfPath string
}

// WorkerSubcommand is the hidden argv[1] cmd/polctl checks for before
// parsing any real CLI command, dispatching straight to RunWorker.
const WorkerSubcommand = "__pol-rerandomize-worker__"

type workerBatch struct {
	G, P   []byte
	Blocks []wireBlock
}

type wireBlock struct {
	C1, C2, H []byte
}

func toWire(b *Block) wireBlock {
	return wireBlock{C1: b.C1.Bytes(), C2: b.C2.Bytes(), H: b.H.Bytes()}
}

func (t *ProcessExecutor) Rerandomize(ctx context.Context, gp *bignum.GroupParams, blocks []Block) ([]Block, error) {
	self, err := t.selfPath()
	if err != nil {
		return nil, err
	}
	chunks := splitIntoChunks(len(blocks), t.workers)
	out := make([]Block, len(blocks))
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			batch := workerBatch{G: gp.G.Bytes(), P: gp.P.Bytes()}
			for _, b := range blocks[c.start:c.end] {
				batch.Blocks = append(batch.Blocks, toWire(&b))
			}
			payload, err := cbor.Marshal(batch)
			if err != nil {
				return err
			}
			cmd := exec.CommandContext(ctx, self, WorkerSubcommand)
			cmd.Stdin = bytes.NewReader(payload)
			var stdout bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("pol: rerandomize worker: %w", err)
			}
			var result []wireBlock
			if err := cbor.Unmarshal(stdout.Bytes(), &result); err != nil {
				return err
			}
			if len(result) != c.end-c.start {
				return fmt.Errorf("pol: rerandomize worker returned %d blocks, wanted %d", len(result), c.end-c.start)
			}
			for i, wb := range result {
				out[c.start+i] = fromWire(wb)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func fromWire(wb wireBlock) Block {
	return Block{
		C1: newIntFromBytes(wb.C1),
		C2: newIntFromBytes(wb.C2),
		H:  newIntFromBytes(wb.H),
	}
}

func (t *ProcessExecutor) selfPath() (string, error) {
	if t.SelfPath != "" {
		return t.SelfPath, nil
	}
	return os.Executable()
}

func (t *ProcessExecutor) Close() error { return nil }

type chunkRange struct{ start, end int }

func splitIntoChunks(n, workers int) []chunkRange {
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}
	base := n / workers
	rem := n % workers
	chunks := make([]chunkRange, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		chunks = append(chunks, chunkRange{start: start, end: start + size})
		start += size
	}
	return chunks
}

// RunWorker implements the subprocess side of ProcessExecutor: it
// reads a workerBatch from r, rerandomizes every block with a
// freshly-seeded RNG, and writes the result to w. cmd/polctl's main
// calls this when invoked with WorkerSubcommand as argv[1], before any
// normal CLI parsing happens.
func RunWorker(r io.Reader, w io.Writer) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var batch workerBatch
	if err := cbor.Unmarshal(payload, &batch); err != nil {
		return err
	}
	gp := &bignum.GroupParams{G: newIntFromBytes(batch.G), P: newIntFromBytes(batch.P)}
	rng, err := newWorkerRNG()
	if err != nil {
		return err
	}
	result := make([]wireBlock, len(batch.Blocks))
	for i, wb := range batch.Blocks {
		b := fromWire(wb)
		rb, err := Rerandomize(gp, &b, rng)
		if err != nil {
			return err
		}
		result[i] = toWire(rb)
	}
	out, err := cbor.Marshal(result)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
