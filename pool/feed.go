// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"fmt"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/types"
)

// defaultPageSize is the batch size requested from the owned-objects
// endpoint.
const defaultPageSize = 50

// ObjectFeed is a restartable paginated producer of object batches scoped to
// a single owner. It is not safe for concurrent use; the owning pool
// serializes its fetches.
type ObjectFeed struct {
	backend   client.Backend
	owner     types.Address
	cursor    *types.ObjectID
	pageSize  int
	exhausted bool
}

// NewObjectFeed creates a feed over the objects owned by owner.
func NewObjectFeed(backend client.Backend, owner types.Address) *ObjectFeed {
	return &ObjectFeed{backend: backend, owner: owner, pageSize: defaultPageSize}
}

// Continue returns a feed resuming from this feed's current position, for a
// pool split off the feed's owner.
func (f *ObjectFeed) Continue() *ObjectFeed {
	cp := *f
	if f.cursor != nil {
		c := *f.cursor
		cp.cursor = &c
	}
	return &cp
}

// Exhausted reports whether the feed has yielded its final batch.
func (f *ObjectFeed) Exhausted() bool { return f.exhausted }

// Next returns the next batch of objects, or nil once the feed is exhausted.
// Calls after exhaustion keep returning nil. Entries the backend failed to
// serve abort the batch with ErrBackendObject.
func (f *ObjectFeed) Next(ctx context.Context) (map[types.ObjectID]types.PoolObject, error) {
	if f.exhausted {
		return nil, nil
	}
	page, err := f.backend.GetOwnedObjects(ctx, f.owner, f.cursor, f.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching owned objects: %w", err)
	}
	batch := make(map[types.ObjectID]types.PoolObject, len(page.Data))
	for _, data := range page.Data {
		if data.Error != "" || data.ObjectID == "" {
			return nil, fmt.Errorf("%w: %s", ErrBackendObject, data.Error)
		}
		batch[data.ObjectID] = types.PoolObject{
			ObjectID: data.ObjectID,
			Digest:   data.Digest,
			Version:  data.Version,
			Type:     data.Type,
		}
	}
	f.cursor = page.NextCursor
	if !page.HasNextPage {
		f.exhausted = true
	}
	if len(batch) == 0 {
		// An empty page is not the end of the listing unless the backend
		// says so; move on to the next page.
		return f.Next(ctx)
	}
	return batch, nil
}
