// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/blake2b"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/signer"
	"github.com/mystenlabs/objectpool/txbuilder"
	"github.com/mystenlabs/objectpool/types"
)

var (
	fetchTimer         = metrics.NewRegisteredTimer("objectpool/fetch", nil)
	splitCounter       = metrics.NewRegisteredCounter("objectpool/split", nil)
	mergeCounter       = metrics.NewRegisteredCounter("objectpool/merge", nil)
	executedCounter    = metrics.NewRegisteredCounter("objectpool/execute/success", nil)
	execFailedCounter  = metrics.NewRegisteredCounter("objectpool/execute/failure", nil)
	dryRunFailsCounter = metrics.NewRegisteredCounter("objectpool/dryrun/failure", nil)
	ownershipCounter   = metrics.NewRegisteredCounter("objectpool/ownership/reject", nil)
)

// immutableCacheSize bounds the per-pool cache of object ids the backend has
// certified immutable. Immutability is permanent, so entries never go stale.
const immutableCacheSize = 1024

var poolSeq atomic.Uint64

// newPoolID derives a short id from the signer address and a process-wide
// sequence number.
func newPoolID(addr types.Address) string {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], poolSeq.Add(1))
	sum := blake2b.Sum256(append([]byte(addr), seq[:]...))
	return hex.EncodeToString(sum[:4])
}

// Pool is an ownership-disjoint partition of a signer's objects together
// with a single-flight sign-and-execute channel. Two pools of the same
// signer never hold the same object, so transactions running on different
// pools cannot equivocate.
type Pool struct {
	id      string
	signer  *signer.Signer
	backend client.Backend

	// mu serializes all registry access and the execute pipeline. A pool
	// runs at most one transaction at a time.
	mu   sync.Mutex
	reg  *registry
	feed *ObjectFeed

	immutable *lru.Cache
}

// Full creates a pool over the signer's on-chain holdings and drains one
// feed batch so the pool has candidates before any split. It fails with
// ErrFetch when the first batch produces nothing.
func Full(ctx context.Context, s *signer.Signer, backend client.Backend) (*Pool, error) {
	p := newPool(s, backend, NewObjectFeed(backend, s.Address()))
	progressed, err := p.fetchMore(ctx)
	if err != nil {
		return nil, err
	}
	if !progressed {
		return nil, ErrFetch
	}
	log.Debug("created full pool", "pool", p.id, "address", s.Address(), "objects", p.reg.len(), "gasCoins", p.reg.numCoins())
	return p, nil
}

func newPool(s *signer.Signer, backend client.Backend, feed *ObjectFeed) *Pool {
	cache, _ := lru.New(immutableCacheSize)
	return &Pool{
		id:        newPoolID(s.Address()),
		signer:    s,
		backend:   backend,
		reg:       newRegistry(),
		feed:      feed,
		immutable: cache,
	}
}

// ID returns the pool's short identifier.
func (p *Pool) ID() string { return p.id }

// Address returns the address owning the pool's objects.
func (p *Pool) Address() types.Address { return p.signer.Address() }

// Objects returns a copy of the pool's object registry.
func (p *Pool) Objects() map[types.ObjectID]types.PoolObject {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reg.snapshot()
}

// GasCoins returns a copy of the pool's gas-coin view.
func (p *Pool) GasCoins() map[types.ObjectID]types.PoolObject {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[types.ObjectID]types.PoolObject, len(p.reg.coins))
	for id, obj := range p.reg.coins {
		out[id] = obj
	}
	return out
}

// fetchMore pulls the next feed batch into the registry and reports whether
// it made progress. The pool lock is held by the caller.
func (p *Pool) fetchMore(ctx context.Context) (bool, error) {
	start := time.Now()
	batch, err := p.feed.Next(ctx)
	fetchTimer.UpdateSince(start)
	if err != nil {
		return false, err
	}
	if len(batch) == 0 {
		return false, nil
	}
	for _, obj := range batch {
		p.reg.add(obj)
	}
	log.Trace("fetched object batch", "pool", p.id, "batch", len(batch), "objects", p.reg.len())
	return true, nil
}

// Split produces a new pool holding the subset of this pool's objects the
// strategy selects. The new pool shares the signer and continues this
// pool's feed position. While the strategy's post-condition is unmet the
// splitter keeps fetching and rescanning; it fails with ErrSplitExhausted
// when the feed cannot seed an empty pool and with ErrSplitUnsatisfied when
// the feed runs dry before the post-condition holds.
func (p *Pool) Split(ctx context.Context, strategy SplitStrategy) (*Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reg.len() == 0 {
		progressed, err := p.fetchMore(ctx)
		if err != nil {
			return nil, err
		}
		if !progressed {
			return nil, ErrSplitExhausted
		}
	}

	child := newPool(p.signer, p.backend, p.feed.Continue())
	for {
		for _, obj := range p.reg.lifo() {
			decision := strategy.Decide(obj)
			if decision == Stop {
				break
			}
			if decision == Move {
				p.reg.remove(obj.ObjectID)
				child.reg.add(obj)
			}
		}
		if strategy.Succeeded() {
			break
		}
		progressed, err := p.fetchMore(ctx)
		if err != nil {
			return nil, err
		}
		if !progressed {
			return nil, ErrSplitUnsatisfied
		}
	}
	p.reg.recomputeCoins()
	child.reg.recomputeCoins()

	splitCounter.Inc(1)
	log.Debug("split pool", "parent", p.id, "child", child.id,
		"childObjects", child.reg.len(), "childGasCoins", child.reg.numCoins())
	return child, nil
}

// Merge absorbs all of other's objects into this pool and clears other. The
// two registries are disjoint by invariant; any overlap fails with
// ErrMergeCollision before either pool is modified.
func (p *Pool) Merge(other *Pool) error {
	if p == other {
		return fmt.Errorf("%w: pool merged into itself", ErrMergeCollision)
	}
	// Lock in id order so concurrent merges cannot deadlock.
	first, second := p, other
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if overlap := p.reg.idSet().Intersect(other.reg.idSet()); overlap.Cardinality() > 0 {
		return fmt.Errorf("%w: %v", ErrMergeCollision, overlap.ToSlice())
	}
	for _, obj := range other.reg.snapshot() {
		p.reg.add(obj)
	}
	other.reg.clear()

	mergeCounter.Inc(1)
	log.Debug("merged pool", "into", p.id, "from", other.id, "objects", p.reg.len())
	return nil
}

// CheckOwnership reports whether every owned-or-immutable object input of tx
// is either owned by this pool or certified immutable by the backend.
func (p *Pool) CheckOwnership(ctx context.Context, tx *txbuilder.Transaction) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkOwnership(ctx, tx)
}

func (p *Pool) checkOwnership(ctx context.Context, tx *txbuilder.Transaction) (bool, error) {
	for _, id := range tx.ObjectInputs() {
		if _, ok := p.reg.get(id); ok {
			continue
		}
		if p.immutable.Contains(id) {
			continue
		}
		data, err := p.backend.GetObject(ctx, id, types.ObjectDataOptions{ShowOwner: true})
		if err != nil {
			return false, fmt.Errorf("querying owner of %s: %w", id, err)
		}
		if data.Owner == nil || !data.Owner.IsImmutable() {
			return false, nil
		}
		p.immutable.Add(id, struct{}{})
	}
	return true, nil
}

// SignAndExecute runs the full pipeline for one transaction: set this
// pool's signer as sender, validate input ownership, pay gas with all of
// the pool's coins, dry-run, submit, and fold the reported effects back
// into the registry.
//
// Paying with every pool coin keeps concurrent pools non-interfering: no
// other pool can reference any coin this transaction consumes.
func (p *Pool) SignAndExecute(ctx context.Context, tx *txbuilder.Transaction) (*types.TransactionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx.SetSender(p.signer.Address())

	ok, err := p.checkOwnership(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !ok {
		ownershipCounter.Inc(1)
		return nil, ErrOwnershipViolation
	}
	// Inputs the pool owns resolve from the registry, saving a lookup per
	// input when the builder serializes.
	for _, id := range tx.ObjectInputs() {
		if obj, owned := p.reg.get(id); owned {
			tx.ResolveObject(id, obj.Ref())
		}
	}

	coins := p.reg.coinRefs()
	if len(coins) == 0 {
		return nil, ErrNoGasCoin
	}
	tx.SetGasPayment(coins)

	txBytes, err := tx.Build(ctx, p.backend)
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}

	dry, err := p.backend.DryRunTransaction(ctx, txBytes)
	if err != nil {
		dryRunFailsCounter.Inc(1)
		return nil, &DryRunError{Reason: err.Error()}
	}
	if !dry.Effects.Status.IsSuccess() {
		dryRunFailsCounter.Inc(1)
		return nil, &DryRunError{Reason: dry.Effects.Status.Error}
	}

	res, err := p.backend.ExecuteTransaction(ctx, client.ExecuteRequest{
		TxBytes:     txBytes,
		Signatures:  []string{p.signer.Sign(txBytes)},
		ShowEffects: true,
		RequestType: client.RequestWaitForLocalExecution,
	})
	if err != nil {
		execFailedCounter.Inc(1)
		return nil, &ExecutionError{Err: err}
	}

	if res.Effects != nil {
		p.applyEffects(res.Effects)
	}
	if res.Effects != nil && !res.Effects.Status.IsSuccess() {
		execFailedCounter.Inc(1)
	} else {
		executedCounter.Inc(1)
	}
	log.Debug("executed transaction", "pool", p.id, "digest", res.Digest,
		"gasCoins", p.reg.numCoins(), "objects", p.reg.len())
	return res, nil
}

// applyEffects folds a transaction's reported object changes into the
// registry: entries the signer still owns are inserted or updated, wrapped
// and deleted entries are dropped, and the coin view is recomputed.
func (p *Pool) applyEffects(eff *types.TransactionEffects) {
	addr := p.signer.Address()
	for _, group := range [][]types.OwnedObjectRef{eff.Created, eff.Unwrapped, eff.Mutated} {
		for _, entry := range group {
			if !entry.Owner.OwnedBy(addr) {
				// Transferred away or owned by another object; if we held
				// it, it is no longer ours to spend.
				p.reg.remove(entry.Reference.ObjectID)
				continue
			}
			p.reg.add(types.PoolObject{
				ObjectID: entry.Reference.ObjectID,
				Digest:   entry.Reference.Digest,
				Version:  entry.Reference.Version,
			})
		}
	}
	for _, ref := range eff.Wrapped {
		p.reg.remove(ref.ObjectID)
	}
	for _, ref := range eff.Deleted {
		p.reg.remove(ref.ObjectID)
	}
	p.reg.recomputeCoins()
}
