// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mystenlabs/objectpool/types"
)

func coin(id string) types.PoolObject {
	return types.PoolObject{ObjectID: types.ObjectID(id), Type: types.GasCoinType}
}

func object(id, typ string) types.PoolObject {
	return types.PoolObject{ObjectID: types.ObjectID(id), Type: typ}
}

func TestDefaultStrategyMovesOneCoin(t *testing.T) {
	s := NewDefaultStrategy()

	assert.False(t, s.Succeeded())
	assert.Equal(t, Keep, s.Decide(object("0xo1", "0xpkg::nft::Item")))
	assert.Equal(t, Move, s.Decide(coin("0xc1")))
	assert.True(t, s.Succeeded())
	assert.Equal(t, Stop, s.Decide(coin("0xc2")))
}

func TestIncludeAdminCapStrategyQuotas(t *testing.T) {
	const pkg = "0xadmin"
	s := NewIncludeAdminCapStrategy(pkg)

	assert.Equal(t, Move, s.Decide(coin("0xc1")))
	assert.Equal(t, Keep, s.Decide(coin("0xc2")), "coin quota already filled")
	assert.Equal(t, Move, s.Decide(object("0xo1", "0xpkg::nft::Item")))
	assert.False(t, s.Succeeded())

	// An AdminCap of a different package does not count; it consumes no
	// quota either since the plain-object quota is filled.
	assert.Equal(t, Keep, s.Decide(object("0xcap2", "0xother::registry::AdminCap")))

	assert.Equal(t, Move, s.Decide(object("0xcap", pkg+"::registry::AdminCap")))
	assert.True(t, s.Succeeded())
	assert.Equal(t, Stop, s.Decide(object("0xo2", "0xpkg::nft::Item")))
}

func TestIncludeAdminCapStrategyCapFirst(t *testing.T) {
	const pkg = "0xadmin"
	s := NewIncludeAdminCapStrategy(pkg)

	assert.Equal(t, Move, s.Decide(object("0xcap", pkg+"::registry::AdminCap")))
	// A second cap of the same package no longer matches the cap slot but
	// still counts as a plain object.
	assert.Equal(t, Move, s.Decide(object("0xcap2", pkg+"::registry::AdminCap")))
	assert.Equal(t, Keep, s.Decide(object("0xo1", "0xpkg::nft::Item")))
	assert.Equal(t, Move, s.Decide(coin("0xc1")))
	assert.True(t, s.Succeeded())
}
