// Package safe owns the persistent file a deniable password safe
// lives in: block array load/save, container discovery, locking, and
// the free-block bookkeeping a fresh Create() needs (spec.md §4.8).
package safe

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/youtube/vitess/go/ioutil2"

	"github.com/test-acc-vaccym/pol/internal/accessslice"
	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/blockstore"
	"github.com/test-acc-vaccym/pol/internal/cache"
	"github.com/test-acc-vaccym/pol/internal/corelog"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
	"github.com/test-acc-vaccym/pol/internal/hash"
	"github.com/test-acc-vaccym/pol/internal/ks"
	"github.com/test-acc-vaccym/pol/internal/version"
)

var log = corelog.Log()

// defaultNBlocks and initialLaneBlocks are chosen so every scenario in
// spec.md §8 fits without ever needing a post-open chain grow (growing
// a chain after a fresh Open would require knowing which blocks are
// free, which the deniability invariant deliberately makes impossible
// to determine from outside the creating session; see knownFree).
//
// initialLaneBlocks is also bounded from above by a harder constraint:
// a Full access slice's entire list+secret+append chain, plus all
// three symmetric keys, has to fit inside the one anchor block that
// carries it (accessslice.Encode returns ErrChainTooBig otherwise).
// With the default group size (1025 bits, 127 plaintext bytes/block)
// and a 2-byte block-index width, headerLen is 107+6*initialLaneBlocks
// bytes; 8 overflows that budget, 2 leaves comfortable room.
const (
	defaultNBlocks    = 1024
	initialLaneBlocks = 2
	maxContainers     = 6
)

// PasswordSet is one container's capability passwords: Master is
// required, List and Append are optional (empty string disables that
// capability for this container).
type PasswordSet struct {
	Master string
	List   string
	Append string
}

// CreateParams configures Safe.Create.
type CreateParams struct {
	Containers     []PasswordSet
	NBlocks        int
	GPBits         int
	Precomputed    bool
	UnsafeOverride bool
	NWorkers       int
	UseThreads     bool
	Progress       func(bignum.Progress)
	Override       bool
}

// OpenParams configures Safe.Open.
type OpenParams struct {
	NWorkers   int
	UseThreads bool
}

// Safe is the loaded, locked, in-memory view of one safe file. It
// implements container.Host so Container never touches the block
// array directly.
type Safe struct {
	path string

	store *blockstore.Store
	gp    *bignum.GroupParams
	ks    ks.KeyStretching
	ph    hash.PurposeHash
	codec *accessslice.IndexCodec
	exec  elgamal.Executor

	docType string
	// extra holds every top-level safe-file field this build doesn't
	// itself interpret, carried forward unchanged from the opened
	// document so a later save/touch doesn't drop it (spec.md §6.1
	// "Unknown top-level fields must be preserved on round-trip").
	extra map[string]cbor.RawMessage

	lock *fileLock

	// knownFree is only non-nil during the single Create() call that
	// originated this Safe: that's the only moment a Safe can be sure
	// it has seen the entire array and knows which indices are still
	// unclaimed. A Safe obtained via Open has no way to tell a free
	// block from one belonging to a container it doesn't hold the
	// password for, so AllocateFreeBlocks refuses outside of Create.
	knownFree map[int]bool

	scanCache *cache.PlaintextCache

	mu sync.Mutex
}

// GroupParams implements container.Host.
func (s *Safe) GroupParams() *bignum.GroupParams { return s.gp }

// IndexCodec implements container.Host.
func (s *Safe) IndexCodec() *accessslice.IndexCodec { return s.codec }

// PurposeHash implements container.Host.
func (s *Safe) PurposeHash() hash.PurposeHash { return s.ph }

// ReadBlock implements container.Host.
func (s *Safe) ReadBlock(i int) (*elgamal.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.store.Get(i)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// WriteBlock implements container.Host.
func (s *Safe) WriteBlock(i int, b *elgamal.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(i, *b)
}

// AllocateFreeBlocks implements container.Host. See knownFree's
// doc comment for why this only works mid-Create.
func (s *Safe) AllocateFreeBlocks(ctx context.Context, n int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.knownFree == nil {
		return nil, fmt.Errorf("pol: container lane capacity exceeded and this safe cannot safely discover free blocks after open")
	}
	var free []int
	for i := range s.knownFree {
		free = append(free, i)
	}
	if len(free) < n {
		return nil, fmt.Errorf("pol: safe has no free blocks left to allocate")
	}
	chosen, err := sampleWithoutReplacement(free, n)
	if err != nil {
		return nil, err
	}
	for _, i := range chosen {
		delete(s.knownFree, i)
	}
	return chosen, nil
}

// Persist implements container.Host: rerandomizes the entire block
// array (spec.md §4.5 "applied to every block, always") and
// atomically writes the result to disk (§6.5).
func (s *Safe) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Safe) persistLocked(ctx context.Context) error {
	refreshed, err := elgamal.RerandomizeAll(ctx, s.gp, s.store.All(), s.exec)
	if err != nil {
		return err
	}
	if err := s.store.SetAll(refreshed); err != nil {
		return err
	}
	return s.writeDocument(ctx)
}

// writeDocument renders the current in-memory state to CBOR and
// atomically replaces the safe file (spec.md §6.5).
func (s *Safe) writeDocument(ctx context.Context) error {
	doc := &blockstore.Document{
		Type:           s.docType,
		FormatVersion:  version.CurrentFormat.String(),
		BlockIndexSize: s.codec.Size(),
		KeyStretching:  s.ks.Params(),
		Hash:           s.ph.Params(),
		Extra:          s.extra,
	}
	blockstore.Encode(doc, s.store, s.gp)
	data, err := blockstore.Marshal(doc)
	if err != nil {
		return err
	}
	if err := ioutil2.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("pol: writing safe file: %w", err)
	}
	return nil
}

// Touch rerandomizes and persists without touching any container's
// logical contents (spec.md §4.8 "touch()").
func (s *Safe) Touch(ctx context.Context) error {
	return s.Persist(ctx)
}

// TrashFreespace overwrites every block this Safe knows to still be
// free with a brand-new random ciphertext under a brand-new random
// key, so free and newly-claimed blocks remain indistinguishable
// (spec.md §4.8). Only meaningful mid-Create; a no-op once Create has
// returned and for any Safe obtained via Open, since knownFree is nil
// then.
func (s *Safe) TrashFreespace(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.knownFree {
		b, err := elgamal.RandomBlock(s.gp, rand.Reader)
		if err != nil {
			return err
		}
		if err := s.store.Set(i, *b); err != nil {
			return err
		}
	}
	return nil
}

// Data returns a read-only snapshot of the safe's top-level fields,
// for the `raw` debugging command (spec.md §6.3).
func (s *Safe) Data() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"type":             s.docType,
		"n-blocks":         s.store.Len(),
		"block-index-size": s.codec.Size(),
		"format-version":   version.CurrentFormat.String(),
		"key-stretching":   s.ks.Params(),
		"hash":             s.ph.Params(),
	}
}

// Close releases the safe's file lock and worker pool.
func (s *Safe) Close() error {
	s.exec.Close()
	return s.lock.Close()
}

func sampleWithoutReplacement(pool []int, n int) ([]int, error) {
	if n > len(pool) {
		return nil, fmt.Errorf("pol: requested %d blocks, only %d free", n, len(pool))
	}
	shuffled := append([]int(nil), pool...)
	for i := len(shuffled) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		j := int(jBig.Int64())
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n], nil
}

func chooseIndexSize(nBlocks int) int {
	switch {
	case nBlocks < 1<<8:
		return 1
	case nBlocks < 1<<16:
		return 2
	default:
		return 4
	}
}

func containerID(h hash.PurposeHash, baseKey []byte) string {
	digest := h.Derive(baseKey, hash.KCID, 0)
	return hex.EncodeToString(digest[:4])
}
