// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package testutils provides a scriptable in-memory Backend and object
// factories shared by the pool and executor tests.
package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/types"
)

// Backend is an in-memory client.Backend. Pages are served in order; the
// hook functions, when set, override the default success responses.
type Backend struct {
	mu      sync.Mutex
	pages   []types.ObjectPage
	pageIdx int

	objects map[types.ObjectID]types.ObjectData
	coins   []types.CoinPage
	coinIdx int

	// DryRunFn overrides dry-run behavior. The default reports success.
	DryRunFn func(txBytes []byte) (*types.DryRunResult, error)
	// ExecuteFn overrides execution behavior. The default echoes mutated
	// gas coins back to the sender (see EchoGasEffects).
	ExecuteFn func(req client.ExecuteRequest) (*types.TransactionResult, error)
	// ExecuteDelay stalls each execution, to simulate long-running
	// transactions in concurrency tests.
	ExecuteDelay time.Duration

	DryRunCalls  int
	ExecuteCalls int
}

var _ client.Backend = (*Backend)(nil)

// NewBackend creates a backend serving the given owned-object pages.
func NewBackend(pages ...types.ObjectPage) *Backend {
	return &Backend{
		pages:   pages,
		objects: make(map[types.ObjectID]types.ObjectData),
	}
}

// SetObject registers an object served by GetObject.
func (b *Backend) SetObject(data types.ObjectData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[data.ObjectID] = data
}

// SetCoinPages registers the pages served by GetCoins.
func (b *Backend) SetCoinPages(pages ...types.CoinPage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coins = pages
	b.coinIdx = 0
}

func (b *Backend) GetOwnedObjects(_ context.Context, _ types.Address, _ *types.ObjectID, _ int) (*types.ObjectPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pageIdx >= len(b.pages) {
		return &types.ObjectPage{HasNextPage: false}, nil
	}
	page := b.pages[b.pageIdx]
	b.pageIdx++
	return &page, nil
}

func (b *Backend) GetObject(_ context.Context, id types.ObjectID, _ types.ObjectDataOptions) (*types.ObjectData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %s not found", id)
	}
	return &data, nil
}

func (b *Backend) GetCoins(_ context.Context, _ types.Address, _ string, _ *types.ObjectID, _ int) (*types.CoinPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.coinIdx >= len(b.coins) {
		return &types.CoinPage{HasNextPage: false}, nil
	}
	page := b.coins[b.coinIdx]
	b.coinIdx++
	return &page, nil
}

func (b *Backend) DryRunTransaction(_ context.Context, txBytes []byte) (*types.DryRunResult, error) {
	b.mu.Lock()
	fn := b.DryRunFn
	b.DryRunCalls++
	b.mu.Unlock()
	if fn != nil {
		return fn(txBytes)
	}
	return &types.DryRunResult{
		Effects: types.TransactionEffects{Status: types.ExecutionStatus{Status: types.ExecutionStatusSuccess}},
	}, nil
}

func (b *Backend) ExecuteTransaction(_ context.Context, req client.ExecuteRequest) (*types.TransactionResult, error) {
	b.mu.Lock()
	fn := b.ExecuteFn
	delay := b.ExecuteDelay
	b.ExecuteCalls++
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fn != nil {
		return fn(req)
	}
	return EchoGasEffects(req)
}

// wireTx is the subset of the serialized transaction the mock needs.
type wireTx struct {
	Sender     types.Address     `json:"sender"`
	GasPayment []types.ObjectRef `json:"gasPayment"`
}

// DecodeTx extracts the sender and gas payment from serialized transaction
// bytes.
func DecodeTx(txBytes []byte) (types.Address, []types.ObjectRef, error) {
	var tx wireTx
	if err := json.Unmarshal(txBytes, &tx); err != nil {
		return "", nil, err
	}
	return tx.Sender, tx.GasPayment, nil
}

// EchoGasEffects builds a successful result whose mutated list returns
// every gas-payment coin to the sender at a bumped version.
func EchoGasEffects(req client.ExecuteRequest) (*types.TransactionResult, error) {
	sender, payment, err := DecodeTx(req.TxBytes)
	if err != nil {
		return nil, err
	}
	if len(payment) == 0 {
		return nil, fmt.Errorf("transaction has no gas payment")
	}
	mutated := make([]types.OwnedObjectRef, len(payment))
	for i, ref := range payment {
		mutated[i] = types.OwnedObjectRef{
			Owner: types.Owner{Kind: types.OwnerAddress, Address: sender},
			Reference: types.ObjectRef{
				ObjectID: ref.ObjectID,
				Digest:   ref.Digest + "'",
				Version:  ref.Version + 1,
			},
		}
	}
	return &types.TransactionResult{
		Digest: fmt.Sprintf("tx-%s", payment[0].ObjectID),
		Effects: &types.TransactionEffects{
			Status:  types.ExecutionStatus{Status: types.ExecutionStatusSuccess},
			Mutated: mutated,
			GasUsed: types.GasCostSummary{ComputationCost: 1000, StorageCost: 100, StorageRebate: 10},
		},
	}, nil
}
