package container

import (
	"context"

	"github.com/test-acc-vaccym/pol/internal/accessslice"
)

// NewForCreation builds a brand-new Full-capability container bound
// to freshly allocated, empty chains and fresh symmetric keys, and
// immediately saves it so every lane holds a valid (empty) payload.
// Only internal/safe calls this, at container-creation time; ordinary
// opens go through FromAccessSlice.
func NewForCreation(ctx context.Context, host Host, id string, listChain, secretChain, appendChain []int, keys accessslice.Keys) (*Container, error) {
	c := &Container{
		host:        host,
		id:          id,
		capability:  CapFull,
		listChain:   listChain,
		secretChain: secretChain,
		appendChain: appendChain,
		listKey:     keys.ListKey,
		secretKey:   keys.SecretKey,
		appendKey:   keys.AppendKey,
		secretData:  map[string]string{},
		dirty:       true,
	}
	if err := c.Save(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
