// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystenlabs/objectpool/internal/testutils"
	"github.com/mystenlabs/objectpool/types"
)

func TestFeedYieldsBatchesUntilTerminal(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(true, testutils.GasCoin("0xc1"), testutils.GasCoin("0xc2")),
		testutils.Page(false, testutils.Object("0xo1", "0xpkg::nft::Item")),
	)
	feed := NewObjectFeed(backend, "0xowner")

	batch, err := feed.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.False(t, feed.Exhausted())

	batch, err = feed.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 1)
	assert.True(t, feed.Exhausted())

	// Terminal calls are idempotent.
	for i := 0; i < 2; i++ {
		batch, err = feed.Next(context.Background())
		require.NoError(t, err)
		assert.Nil(t, batch)
	}
}

func TestFeedBatchCarriesType(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false,
			testutils.GasCoin("0xc1"),
			testutils.Object("0xo1", ""),
		),
	)
	feed := NewObjectFeed(backend, "0xowner")

	batch, err := feed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.GasCoinType, batch["0xc1"].Type)
	assert.Equal(t, "", batch["0xo1"].Type)
}

func TestFeedErrorEntryFailsBatch(t *testing.T) {
	backend := testutils.NewBackend(
		types.ObjectPage{
			Data:        []types.ObjectData{{Error: "notExists"}},
			HasNextPage: false,
		},
	)
	feed := NewObjectFeed(backend, "0xowner")

	_, err := feed.Next(context.Background())
	require.ErrorIs(t, err, ErrBackendObject)
}

func TestFeedContinueResumesPosition(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(true, testutils.GasCoin("0xc1")),
		testutils.Page(false, testutils.GasCoin("0xc2")),
	)
	feed := NewObjectFeed(backend, "0xowner")

	_, err := feed.Next(context.Background())
	require.NoError(t, err)

	cont := feed.Continue()
	batch, err := cont.Next(context.Background())
	require.NoError(t, err)
	assert.Contains(t, batch, types.ObjectID("0xc2"))
	assert.True(t, cont.Exhausted())
	// The original feed's exhaustion state is independent.
	assert.False(t, feed.Exhausted())
}
