package container

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/test-acc-vaccym/pol/internal/accessslice"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
	"github.com/test-acc-vaccym/pol/internal/hash"
)

// FromAccessSlice reconstructs a Container from a discovered anchor
// and its decoded access slice. id is the short human-displayable
// identifier (derived by the caller from the base key via KCID).
// onMoveAppendEntries, if non-nil, is invoked exactly once, in
// append-order, the first time a Full open observes pending
// append_data (spec.md §4.7 "Append-migration").
func FromAccessSlice(ctx context.Context, host Host, anchorIdx int, id string, as *accessslice.AccessSlice, onMoveAppendEntries func([]Entry)) (*Container, error) {
	c := &Container{
		host:        host,
		id:          id,
		anchorIdx:   anchorIdx,
		capability:  as.Kind,
		listChain:   as.ListChain,
		secretChain: as.SecretChain,
		appendChain: as.AppendChain,
		listKey:     as.Keys.ListKey,
		secretKey:   as.Keys.SecretKey,
		appendKey:   as.Keys.AppendKey,
		secretData:  map[string]string{},
	}

	switch as.Kind {
	case CapFull:
		if err := c.decodeLane(laneList, &c.mainData); err != nil {
			return nil, err
		}
		if err := c.decodeLane(laneSecret, &c.secretData); err != nil {
			return nil, err
		}
		if err := c.decodeLane(laneAppend, &c.appendData); err != nil {
			return nil, err
		}
		if len(c.appendData) > 0 {
			migrated := c.appendData
			for _, e := range migrated {
				c.mainData = append(c.mainData, Entry{ID: e.ID, Key: e.Key, Note: e.Note})
				c.secretData[e.ID] = e.Secret
			}
			c.appendData = nil
			c.dirty = true
			if onMoveAppendEntries != nil {
				onMoveAppendEntries(migrated)
			}
		}
	case CapListOnly:
		if err := c.decodeLane(laneList, &c.mainData); err != nil {
			return nil, err
		}
	case CapAppendOnly:
		if err := c.decodeLane(laneAppend, &c.appendData); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) decodeLane(lane byte, out interface{}) error {
	var chain []int
	var key []byte
	switch lane {
	case laneList:
		chain, key = c.listChain, c.listKey
	case laneSecret:
		chain, key = c.secretChain, c.secretKey
	case laneAppend:
		chain, key = c.appendChain, c.appendKey
	}
	if key == nil || len(chain) == 0 {
		return nil
	}
	gp := c.host.GroupParams()
	h := c.host.PurposeHash()
	plaintexts := make([][]byte, len(chain))
	for i, physIdx := range chain {
		b, err := c.host.ReadBlock(physIdx)
		if err != nil {
			return fmt.Errorf("pol: reading chain block %d: %w", physIdx, err)
		}
		x := hash.DeriveExponent(h, key, hash.KCElGamal, uint64(physIdx), gp.Q())
		plaintexts[i] = elgamal.Decrypt(gp, x, b)
	}
	blob := assembleBlob(plaintexts)
	if len(blob) == 0 {
		return nil
	}
	return cbor.Unmarshal(blob, out)
}
