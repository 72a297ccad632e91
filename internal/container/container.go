// Package container implements the logical, password-protected
// collection of entries reconstructed from a container's anchor block
// and its block chains (spec.md §3 "Container (logical)", §4.7).
package container

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/test-acc-vaccym/pol/internal/accessslice"
	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
	"github.com/test-acc-vaccym/pol/internal/hash"
)

// Capability mirrors accessslice.Kind at the API boundary callers use.
type Capability = accessslice.Kind

const (
	CapFull       = accessslice.Full
	CapListOnly   = accessslice.ListOnly
	CapAppendOnly = accessslice.AppendOnly
)

// Errors surfaced to external collaborators (spec.md §6.4).
var (
	ErrMissingKey  = errors.New("pol: capability does not permit this operation")
	ErrEmptyInput  = errors.New("pol: empty input")
	ErrNoSuchEntry = errors.New("pol: no entry matches key")
)

// Entry is one (key, note, secret) record. Secret is empty unless the
// caller asked for secrets and holds Full capability.
type Entry struct {
	ID     string `cbor:"id"`
	Key    string `cbor:"key"`
	Note   string `cbor:"note"`
	Secret string `cbor:"secret,omitempty"`
}

// Host is everything Container needs from the owning Safe. Container
// never touches the block array directly; every read/write is
// mediated by Host, per spec.md §4.8 ("No container mutates the
// blocks directly — only via Safe-mediated save()").
type Host interface {
	GroupParams() *bignum.GroupParams
	IndexCodec() *accessslice.IndexCodec
	PurposeHash() hash.PurposeHash
	ReadBlock(i int) (*elgamal.Block, error)
	WriteBlock(i int, b *elgamal.Block) error
	AllocateFreeBlocks(ctx context.Context, n int) ([]int, error)
	Persist(ctx context.Context) error
}

// Container is a logical, password-unlocked view into a safe.
type Container struct {
	host Host

	id         string
	anchorIdx  int
	capability Capability

	listChain, secretChain, appendChain []int
	listKey, secretKey, appendKey       []byte

	mainData   []Entry // key+note, decoded for Full and ListOnly
	secretData map[string]string // entry id -> secret, decoded only for Full
	appendData []Entry

	dirty bool
}

// CanAdd reports whether add() is permitted (Full and AppendOnly).
func (c *Container) CanAdd() bool { return c.capability == CapFull || c.capability == CapAppendOnly }

// CanList reports whether list() without secrets is permitted (Full
// and ListOnly); get() needs CanReadSecrets.
func (c *Container) CanList() bool { return c.capability == CapFull || c.capability == CapListOnly }

// CanReadSecrets reports whether secrets are visible (Full only).
func (c *Container) CanReadSecrets() bool { return c.capability == CapFull }

// ID is the container's short human-displayable identifier.
func (c *Container) ID() string { return c.id }

// Capability returns the capability this open granted.
func (c *Container) Capability() Capability { return c.capability }

// MainData returns a read-only view of the list-visible entries (for
// the `raw` debugging command).
func (c *Container) MainData() []Entry { return append([]Entry(nil), c.mainData...) }

// AppendData returns a read-only view of pending append-only entries.
func (c *Container) AppendData() []Entry { return append([]Entry(nil), c.appendData...) }

// List returns every visible entry. withSecrets requires Full
// capability.
func (c *Container) List(withSecrets bool) ([]Entry, error) {
	if !c.CanList() {
		return nil, ErrMissingKey
	}
	if withSecrets && !c.CanReadSecrets() {
		return nil, ErrMissingKey
	}
	out := make([]Entry, len(c.mainData))
	for i, e := range c.mainData {
		out[i] = e
		if withSecrets {
			out[i].Secret = c.secretData[e.ID]
		}
	}
	return out, nil
}

// Get returns every entry whose Key matches (keys are not unique).
// Requires Full capability; returns an empty slice, not an error, if
// no entry matches.
func (c *Container) Get(key string) ([]Entry, error) {
	if !c.CanReadSecrets() {
		return nil, ErrMissingKey
	}
	var out []Entry
	for _, e := range c.mainData {
		if e.Key == key {
			e.Secret = c.secretData[e.ID]
			out = append(out, e)
		}
	}
	return out, nil
}

// Add appends a new entry. Permitted for Full and AppendOnly. Full
// writes directly to main/secret data; AppendOnly stages the entry in
// append_data for later migration.
func (c *Container) Add(key, note, secret string) error {
	if !c.CanAdd() {
		return ErrMissingKey
	}
	if key == "" {
		return ErrEmptyInput
	}
	id := uuid.New().String()
	entry := Entry{ID: id, Key: key, Note: note, Secret: secret}
	switch c.capability {
	case CapFull:
		c.mainData = append(c.mainData, Entry{ID: id, Key: key, Note: note})
		if c.secretData == nil {
			c.secretData = map[string]string{}
		}
		c.secretData[id] = secret
	case CapAppendOnly:
		c.appendData = append(c.appendData, entry)
	default:
		return ErrMissingKey
	}
	c.dirty = true
	return nil
}

// Save re-encrypts every modified chain and persists through Host. A
// no-op (but still triggers Host.Persist, which itself is the
// touch-equivalent rerandomize-then-write) when nothing changed since
// the last save.
func (c *Container) Save(ctx context.Context) error {
	if c.dirty {
		if err := c.flushLane(ctx, laneList); err != nil {
			return err
		}
		if err := c.flushLane(ctx, laneSecret); err != nil {
			return err
		}
		if err := c.flushLane(ctx, laneAppend); err != nil {
			return err
		}
		c.dirty = false
	}
	return c.host.Persist(ctx)
}

func (c *Container) flushLane(ctx context.Context, lane byte) error {
	gp := c.host.GroupParams()
	cap := elgamal.PlaintextCapacity(gp)

	var blob []byte
	var err error
	var key []byte
	var chain *[]int

	switch lane {
	case laneList:
		blob, err = cbor.Marshal(c.mainData)
		key, chain = c.listKey, &c.listChain
	case laneSecret:
		blob, err = cbor.Marshal(c.secretData)
		key, chain = c.secretKey, &c.secretChain
	case laneAppend:
		blob, err = cbor.Marshal(c.appendData)
		key, chain = c.appendKey, &c.appendChain
	}
	if err != nil {
		return err
	}
	if key == nil {
		return nil // capability doesn't hold this lane's key; nothing to flush
	}

	need := chunksNeeded(len(blob), cap)
	if need > len(*chain) {
		extra, err := c.host.AllocateFreeBlocks(ctx, need-len(*chain))
		if err != nil {
			return fmt.Errorf("pol: growing container chain: %w", err)
		}
		*chain = append(*chain, extra...)
	}

	chunks := chunkBlob(blob, cap, len(*chain))
	h := c.host.PurposeHash()
	for i, physIdx := range *chain {
		x := hash.DeriveExponent(h, key, hash.KCElGamal, uint64(physIdx), gp.Q())
		pub := gp.PublicShare(x)
		b, err := elgamal.Encrypt(gp, pub, chunks[i], rand.Reader)
		if err != nil {
			return err
		}
		if err := c.host.WriteBlock(physIdx, b); err != nil {
			return err
		}
	}
	return nil
}
