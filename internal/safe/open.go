package safe

import (
	"context"
	"crypto/sha256"
	"os"

	"github.com/test-acc-vaccym/pol/internal/accessslice"
	"github.com/test-acc-vaccym/pol/internal/blockstore"
	"github.com/test-acc-vaccym/pol/internal/cache"
	"github.com/test-acc-vaccym/pol/internal/container"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
	"github.com/test-acc-vaccym/pol/internal/hash"
	"github.com/test-acc-vaccym/pol/internal/ks"
	"github.com/test-acc-vaccym/pol/internal/version"
)

// Open loads an existing safe file, acquiring its lock (spec.md §4.8
// "open"). knownFree stays nil: a reopened safe cannot tell a free
// block from one belonging to a container whose password it hasn't
// seen, so it never allocates new blocks (see Safe.knownFree).
func Open(path string, params OpenParams) (*Safe, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ErrSafeNotFound
	}
	lock, err := lockFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		lock.Close()
		return nil, err
	}
	doc, err := blockstore.Unmarshal(data)
	if err != nil {
		lock.Close()
		return nil, ErrSafeFormat
	}
	if doc.Type != "elgamal" {
		lock.Close()
		return nil, ErrSafeFormat
	}
	if err := version.CheckCompatible(doc.FormatVersion); err != nil {
		lock.Close()
		return nil, ErrSafeFormat
	}

	store, gp, err := blockstore.Decode(doc)
	if err != nil {
		lock.Close()
		return nil, ErrSafeFormat
	}
	codec, err := accessslice.NewIndexCodec(doc.BlockIndexSize)
	if err != nil {
		lock.Close()
		return nil, ErrSafeFormat
	}
	ksImpl, err := ks.Setup(ks.Params(doc.KeyStretching))
	if err != nil {
		lock.Close()
		return nil, ErrSafeFormat
	}
	phImpl, err := hash.Setup(doc.Hash)
	if err != nil {
		lock.Close()
		return nil, ErrSafeFormat
	}

	workers := params.NWorkers
	if workers <= 0 {
		workers = elgamal.DefaultWorkers()
	}
	exec := elgamal.NewExecutor(workers, !params.UseThreads)

	return &Safe{
		path:      path,
		store:     store,
		gp:        gp,
		ks:        ksImpl,
		ph:        phImpl,
		codec:     codec,
		exec:      exec,
		docType:   doc.Type,
		extra:     doc.Extra,
		lock:      lock,
		scanCache: cache.New(256),
	}, nil
}

// OpenContainers scans every block for an anchor decryptable under
// password's derived key, returning one Container per match (spec.md
// §4.6 "Anchor discovery"). A password matching nothing returns an
// empty, non-error slice (Testable Property 6).
func (s *Safe) OpenContainers(ctx context.Context, password string, onMoveAppendEntries func([]container.Entry)) ([]*container.Container, error) {
	baseKey, err := s.ks.Stretch([]byte(password))
	if err != nil {
		return nil, err
	}
	q := s.gp.Q()
	fp := fingerprint(baseKey)

	var found []*container.Container
	s.mu.Lock()
	n := s.store.Len()
	s.mu.Unlock()

	for i := 0; i < n; i++ {
		key := cache.Key{BlockIndex: i, KeyFP: fp}
		plaintext, ok := s.scanCache.Get(key)
		if !ok {
			b, err := s.ReadBlock(i)
			if err != nil {
				return nil, err
			}
			x := hash.DeriveExponent(s.ph, baseKey, hash.KCElGamal, uint64(i), q)
			plaintext = elgamal.Decrypt(s.gp, x, b)
			s.scanCache.Put(key, plaintext)
		}
		if !accessslice.HasMagic(plaintext) {
			continue
		}
		as, err := accessslice.Decode(plaintext, s.codec)
		if err != nil {
			log.Debugf("anchor candidate at block %d failed to decode: %v", i, err)
			continue
		}
		id := containerID(s.ph, baseKey)
		c, err := container.FromAccessSlice(ctx, s, i, id, as, onMoveAppendEntries)
		if err != nil {
			return nil, err
		}
		found = append(found, c)
	}
	return found, nil
}

// fingerprint gives a short, stable identifier for a derived base key
// to use as a cache key, without storing the key material itself in
// the cache's key space any more than necessary.
func fingerprint(baseKey []byte) [8]byte {
	sum := sha256.Sum256(baseKey)
	var fp [8]byte
	copy(fp[:], sum[:8])
	return fp
}
