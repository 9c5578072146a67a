// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mystenlabs/objectpool/types"
)

// Backend is the set of node RPCs the pools and the executor consume. It is
// implemented by Client and by the test backend in internal/testutils.
// Implementations must be safe for concurrent use.
type Backend interface {
	// GetOwnedObjects returns one page of the objects owned by owner,
	// starting after cursor. A nil cursor starts from the beginning.
	GetOwnedObjects(ctx context.Context, owner types.Address, cursor *types.ObjectID, limit int) (*types.ObjectPage, error)

	// GetObject fetches a single object with the requested optional fields.
	GetObject(ctx context.Context, id types.ObjectID, opts types.ObjectDataOptions) (*types.ObjectData, error)

	// GetCoins returns one page of the coins of the given type owned by
	// owner. An empty coinType selects the gas coin type.
	GetCoins(ctx context.Context, owner types.Address, coinType string, cursor *types.ObjectID, limit int) (*types.CoinPage, error)

	// DryRunTransaction executes the serialized transaction without
	// committing it and returns the simulated effects.
	DryRunTransaction(ctx context.Context, txBytes []byte) (*types.DryRunResult, error)

	// ExecuteTransaction submits the signed transaction and waits for
	// effects according to the request type.
	ExecuteTransaction(ctx context.Context, req ExecuteRequest) (*types.TransactionResult, error)
}

// Request types accepted by ExecuteTransaction.
const (
	RequestWaitForEffectsCert    = "WaitForEffectsCert"
	RequestWaitForLocalExecution = "WaitForLocalExecution"
)

// ExecuteRequest carries one signed transaction submission.
type ExecuteRequest struct {
	TxBytes     []byte
	Signatures  []string
	ShowEffects bool
	RequestType string
}

// Client is a Backend speaking JSON-RPC to a full node.
type Client struct {
	c *rpc.Client
}

var _ Backend = (*Client)(nil)

// Dial connects a client to the given URL.
func Dial(rawurl string) (*Client, error) {
	return DialContext(context.Background(), rawurl)
}

// DialContext connects a client to the given URL with the given context.
func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient creates a client that uses the given RPC connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{c: c}
}

// Close closes the underlying RPC connection.
func (ec *Client) Close() {
	ec.c.Close()
}

// ownedObjectsQuery narrows an owned-objects listing to the fields the pools
// consume.
type ownedObjectsQuery struct {
	Options types.ObjectDataOptions `json:"options"`
}

func (ec *Client) GetOwnedObjects(ctx context.Context, owner types.Address, cursor *types.ObjectID, limit int) (*types.ObjectPage, error) {
	var result types.ObjectPage
	query := ownedObjectsQuery{Options: types.ObjectDataOptions{ShowType: true, ShowOwner: true}}
	err := ec.c.CallContext(ctx, &result, "suix_getOwnedObjects", owner, query, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ec *Client) GetObject(ctx context.Context, id types.ObjectID, opts types.ObjectDataOptions) (*types.ObjectData, error) {
	var result types.ObjectData
	err := ec.c.CallContext(ctx, &result, "sui_getObject", id, opts)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ec *Client) GetCoins(ctx context.Context, owner types.Address, coinType string, cursor *types.ObjectID, limit int) (*types.CoinPage, error) {
	var result types.CoinPage
	if coinType == "" {
		coinType = types.GasCoinType
	}
	err := ec.c.CallContext(ctx, &result, "suix_getCoins", owner, coinType, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ec *Client) DryRunTransaction(ctx context.Context, txBytes []byte) (*types.DryRunResult, error) {
	var result types.DryRunResult
	err := ec.c.CallContext(ctx, &result, "sui_dryRunTransactionBlock", txBytes)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// executeOptions mirrors the response-options object of the execute RPC.
type executeOptions struct {
	ShowEffects bool `json:"showEffects"`
}

func (ec *Client) ExecuteTransaction(ctx context.Context, req ExecuteRequest) (*types.TransactionResult, error) {
	var result types.TransactionResult
	opts := executeOptions{ShowEffects: req.ShowEffects}
	err := ec.c.CallContext(ctx, &result, "sui_executeTransactionBlock", req.TxBytes, req.Signatures, opts, req.RequestType)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
