// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package coincache is the persistent gas-coin helper adjacent to the pool
// core. It stores one hash per coin object so a later process can tell
// which cached coins have been spent or mutated since they were listed.
package coincache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-redis/redis/v7"
	"golang.org/x/crypto/blake2b"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/types"
)

const keyPrefix = "coincache:"

// Cache is a redis-backed store of coin-state hashes.
type Cache struct {
	rdb *redis.Client
}

// New connects to the redis instance at the given URL
// (redis://[:password@]host:port[/db]).
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping().Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

// NewWithClient wraps an existing redis client.
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func key(id types.ObjectID) string {
	return keyPrefix + string(id)
}

// CoinHash fingerprints one coin state. Digest alone would do, but folding
// the version in makes the hash self-describing across backends that reuse
// digests.
func CoinHash(digest types.ObjectDigest, version types.SequenceNumber) string {
	var ver [8]byte
	binary.BigEndian.PutUint64(ver[:], uint64(version))
	sum := blake2b.Sum256(append([]byte(digest), ver[:]...))
	return hex.EncodeToString(sum[:])
}

// Put stores the hash of the given coin state.
func (c *Cache) Put(coin types.Coin) error {
	return c.rdb.Set(key(coin.CoinObjectID), CoinHash(coin.Digest, coin.Version), 0).Err()
}

// Delete drops a coin from the cache.
func (c *Cache) Delete(id types.ObjectID) error {
	return c.rdb.Del(key(id)).Err()
}

// Stale reports whether the given coin state differs from the cached one.
// Unknown coins are stale.
func (c *Cache) Stale(coin types.Coin) (bool, error) {
	cached, err := c.rdb.Get(key(coin.CoinObjectID)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return cached != CoinHash(coin.Digest, coin.Version), nil
}

// Refresh pages through the owner's gas coins and stores the hash of each,
// returning how many coins were cached.
func (c *Cache) Refresh(ctx context.Context, backend client.Backend, owner types.Address) (int, error) {
	var (
		cursor *types.ObjectID
		total  int
	)
	for {
		page, err := backend.GetCoins(ctx, owner, types.GasCoinType, cursor, 0)
		if err != nil {
			return total, fmt.Errorf("listing coins: %w", err)
		}
		for _, coin := range page.Data {
			if err := c.Put(coin); err != nil {
				return total, err
			}
			total++
		}
		if !page.HasNextPage {
			break
		}
		cursor = page.NextCursor
	}
	log.Debug("refreshed coin cache", "owner", owner, "coins", total)
	return total, nil
}
