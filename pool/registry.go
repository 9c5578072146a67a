// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/mystenlabs/objectpool/types"
)

// registry is the set of objects a pool owns plus the derived gas-coin view.
// Insertion order is tracked so split can scan candidates newest-first.
// Callers hold the pool lock.
type registry struct {
	objects map[types.ObjectID]types.PoolObject
	coins   map[types.ObjectID]types.PoolObject
	order   []types.ObjectID
}

func newRegistry() *registry {
	return &registry{
		objects: make(map[types.ObjectID]types.PoolObject),
		coins:   make(map[types.ObjectID]types.PoolObject),
	}
}

// add inserts or updates an entry. An update with an empty type keeps the
// previously known type.
func (r *registry) add(obj types.PoolObject) {
	prev, exists := r.objects[obj.ObjectID]
	if exists && obj.Type == "" {
		obj.Type = prev.Type
	}
	r.objects[obj.ObjectID] = obj
	if !exists {
		r.order = append(r.order, obj.ObjectID)
	}
	if obj.IsGasCoin() {
		r.coins[obj.ObjectID] = obj
	} else {
		delete(r.coins, obj.ObjectID)
	}
}

func (r *registry) remove(id types.ObjectID) {
	if _, ok := r.objects[id]; !ok {
		return
	}
	delete(r.objects, id)
	delete(r.coins, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *registry) get(id types.ObjectID) (types.PoolObject, bool) {
	obj, ok := r.objects[id]
	return obj, ok
}

func (r *registry) len() int      { return len(r.objects) }
func (r *registry) numCoins() int { return len(r.coins) }

// lifo returns a snapshot of all entries, newest insertion first.
func (r *registry) lifo() []types.PoolObject {
	out := make([]types.PoolObject, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.objects[r.order[i]])
	}
	return out
}

// coinRefs returns the references of all gas coins, in insertion order.
func (r *registry) coinRefs() []types.ObjectRef {
	refs := make([]types.ObjectRef, 0, len(r.coins))
	for _, id := range r.order {
		if coin, ok := r.coins[id]; ok {
			refs = append(refs, coin.Ref())
		}
	}
	return refs
}

// recomputeCoins rebuilds the coin view from the object set.
func (r *registry) recomputeCoins() {
	r.coins = make(map[types.ObjectID]types.PoolObject)
	for id, obj := range r.objects {
		if obj.IsGasCoin() {
			r.coins[id] = obj
		}
	}
}

// idSet returns the object ids as a set, for disjointness checks.
func (r *registry) idSet() mapset.Set[types.ObjectID] {
	s := mapset.NewThreadUnsafeSet[types.ObjectID]()
	for id := range r.objects {
		s.Add(id)
	}
	return s
}

// snapshot copies the object map.
func (r *registry) snapshot() map[types.ObjectID]types.PoolObject {
	out := make(map[types.ObjectID]types.PoolObject, len(r.objects))
	for id, obj := range r.objects {
		out[id] = obj
	}
	return out
}

// clear empties the registry. Used when the pool is absorbed by a merge.
func (r *registry) clear() {
	r.objects = make(map[types.ObjectID]types.PoolObject)
	r.coins = make(map[types.ObjectID]types.PoolObject)
	r.order = nil
}
