package safe

import (
	"context"
	"crypto/rand"
	"os"

	"github.com/test-acc-vaccym/pol/internal/accessslice"
	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/blockstore"
	"github.com/test-acc-vaccym/pol/internal/cache"
	"github.com/test-acc-vaccym/pol/internal/container"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
	"github.com/test-acc-vaccym/pol/internal/hash"
	"github.com/test-acc-vaccym/pol/internal/ks"
)

// Create builds a brand-new safe file at path with up to six
// containers, one per entry in params.Containers (spec.md §4.8
// "create").
func Create(ctx context.Context, path string, params CreateParams) (*Safe, error) {
	if len(params.Containers) > maxContainers {
		return nil, ErrTooManyContainers
	}
	if !params.Override {
		if _, err := os.Stat(path); err == nil {
			return nil, ErrSafeAlreadyExists
		}
	}

	bits := params.GPBits
	if bits == 0 {
		bits = 1025
	}
	if (bits < 1025 || params.Precomputed) && !params.UnsafeOverride {
		return nil, ErrUnsafeParameter
	}

	var gp *bignum.GroupParams
	var err error
	if params.Precomputed {
		gp, err = bignum.PrecomputedGroupParams(bits)
	} else {
		gp, err = bignum.GenerateGroupParams(bits, rand.Reader, params.Progress)
	}
	if err != nil {
		return nil, err
	}

	nBlocks := params.NBlocks
	if nBlocks == 0 {
		nBlocks = defaultNBlocks
	}
	indexSize := chooseIndexSize(nBlocks)
	codec, err := accessslice.NewIndexCodec(indexSize)
	if err != nil {
		return nil, err
	}

	ksImpl, err := ks.Setup(nil)
	if err != nil {
		return nil, err
	}
	phImpl, err := hash.Setup(nil)
	if err != nil {
		return nil, err
	}

	workers := params.NWorkers
	if workers <= 0 {
		workers = elgamal.DefaultWorkers()
	}
	exec := elgamal.NewExecutor(workers, !params.UseThreads)

	store := blockstore.New(nBlocks)
	free := make(map[int]bool, nBlocks)
	for i := 0; i < nBlocks; i++ {
		b, err := elgamal.RandomBlock(gp, rand.Reader)
		if err != nil {
			return nil, err
		}
		if err := store.Set(i, *b); err != nil {
			return nil, err
		}
		// Physical index 0 is never handed out to a chain: the chain
		// wire format (accessslice.putChain) terminates a run on a
		// zero index, so a chain that happened to contain physical
		// block 0 would read back one entry short. Anchors are drawn
		// from the same free pool, so index 0 never holds one either;
		// anchor discovery still scans it like every other index, and
		// it stays ordinary trash.
		if i != 0 {
			free[i] = true
		}
	}

	s := &Safe{
		path:      path,
		store:     store,
		gp:        gp,
		ks:        ksImpl,
		ph:        phImpl,
		codec:     codec,
		exec:      exec,
		docType:   "elgamal",
		knownFree: free,
		scanCache: cache.New(256),
	}

	for _, pw := range params.Containers {
		if _, err := s.NewContainer(ctx, pw.Master, pw.List, pw.Append); err != nil {
			return nil, err
		}
	}

	if err := s.TrashFreespace(ctx); err != nil {
		return nil, err
	}
	if err := s.Persist(ctx); err != nil {
		return nil, err
	}
	s.knownFree = nil

	lock, err := lockFile(path)
	if err != nil {
		return nil, err
	}
	s.lock = lock
	return s, nil
}

// NewContainer allocates a fresh container's anchors and payload
// chains and writes it into the safe (spec.md §4.8 "new_container").
// Every call consumes one of the safe's six container slots; callers
// outside Create (none, currently — spec.md scopes container creation
// to safe-init time) would need to track the count themselves.
func (s *Safe) NewContainer(ctx context.Context, masterPW, listPW, appendPW string) (*container.Container, error) {
	masterBase, err := s.ks.Stretch([]byte(masterPW))
	if err != nil {
		return nil, err
	}

	need := 1 + 3*initialLaneBlocks
	if listPW != "" {
		need++
	}
	if appendPW != "" {
		need++
	}
	blocks, err := s.AllocateFreeBlocks(ctx, need)
	if err != nil {
		return nil, err
	}
	pos := 0
	take := func(n int) []int {
		chunk := blocks[pos : pos+n]
		pos += n
		return chunk
	}

	anchorMaster := take(1)[0]
	var anchorList, anchorAppend int
	haveList := listPW != ""
	haveAppend := appendPW != ""
	if haveList {
		anchorList = take(1)[0]
	}
	if haveAppend {
		anchorAppend = take(1)[0]
	}
	listChain := take(initialLaneBlocks)
	secretChain := take(initialLaneBlocks)
	appendChain := take(initialLaneBlocks)

	listKey := make([]byte, 32)
	secretKey := make([]byte, 32)
	appendKey := make([]byte, 32)
	for _, k := range [][]byte{listKey, secretKey, appendKey} {
		if _, err := rand.Read(k); err != nil {
			return nil, err
		}
	}
	keys := accessslice.Keys{ListKey: listKey, SecretKey: secretKey, AppendKey: appendKey}

	id := containerID(s.ph, masterBase)
	c, err := container.NewForCreation(ctx, s, id, listChain, secretChain, appendChain, keys)
	if err != nil {
		return nil, err
	}

	if err := s.writeAnchor(anchorMaster, masterBase, &accessslice.AccessSlice{
		Kind:        accessslice.Full,
		ListChain:   listChain,
		SecretChain: secretChain,
		AppendChain: appendChain,
		Keys:        keys,
	}); err != nil {
		return nil, err
	}

	if haveList {
		listBase, err := s.ks.Stretch([]byte(listPW))
		if err != nil {
			return nil, err
		}
		if err := s.writeAnchor(anchorList, listBase, &accessslice.AccessSlice{
			Kind:      accessslice.ListOnly,
			ListChain: listChain,
			Keys:      accessslice.Keys{ListKey: listKey},
		}); err != nil {
			return nil, err
		}
	}
	if haveAppend {
		appendBase, err := s.ks.Stretch([]byte(appendPW))
		if err != nil {
			return nil, err
		}
		if err := s.writeAnchor(anchorAppend, appendBase, &accessslice.AccessSlice{
			Kind:        accessslice.AppendOnly,
			AppendChain: appendChain,
			Keys:        accessslice.Keys{AppendKey: appendKey},
		}); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// writeAnchor encrypts as under the private exponent derived from
// baseKey at physical index idx and writes it there.
func (s *Safe) writeAnchor(idx int, baseKey []byte, as *accessslice.AccessSlice) error {
	cap := elgamal.PlaintextCapacity(s.gp)
	pad := make([]byte, cap)
	if _, err := rand.Read(pad); err != nil {
		return err
	}
	plaintext, err := accessslice.Encode(as, s.codec, cap, pad)
	if err != nil {
		return err
	}
	x := hash.DeriveExponent(s.ph, baseKey, hash.KCElGamal, uint64(idx), s.gp.Q())
	pub := s.gp.PublicShare(x)
	b, err := elgamal.Encrypt(s.gp, pub, plaintext, rand.Reader)
	if err != nil {
		return err
	}
	return s.WriteBlock(idx, b)
}
