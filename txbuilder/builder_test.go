// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystenlabs/objectpool/types"
)

var gasRef = types.ObjectRef{ObjectID: "0xgas", Digest: "digest-gas", Version: 1}

func TestObjectInputsEnumeration(t *testing.T) {
	tx := New()
	tx.MoveCall("0xpkg::mod::fn", tx.Object("0xa"), tx.Pure(uint64(5)), tx.Object("0xb"))

	assert.Equal(t, []types.ObjectID{"0xa", "0xb"}, tx.ObjectInputs())

	inputs := tx.Inputs()
	require.Len(t, inputs, 3)
	assert.True(t, inputs[0].IsObject())
	assert.False(t, inputs[1].IsObject())
	assert.True(t, inputs[2].IsObject())
}

func TestObjectInputDeduplicated(t *testing.T) {
	tx := New()
	a := tx.Object("0xa")
	b := tx.Object("0xa")
	assert.Equal(t, a, b)
	assert.Len(t, tx.Inputs(), 1)
}

func TestBuildRequiresSenderAndGas(t *testing.T) {
	tx := New()
	_, err := tx.Build(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoSender)

	tx.SetSender("0xabc")
	_, err = tx.Build(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoGasPayment)
}

func TestBuildDeterministic(t *testing.T) {
	build := func() []byte {
		tx := New()
		split := tx.SplitCoins(GasCoin, []Argument{tx.Pure(uint64(100))})
		tx.TransferObjects([]Argument{split}, tx.Pure(types.Address("0xdst")))
		tx.SetSender("0xabc")
		tx.SetGasPayment([]types.ObjectRef{gasRef})
		tx.SetGasBudget(5000)
		raw, err := tx.Build(context.Background(), nil)
		require.NoError(t, err)
		return raw
	}
	assert.Equal(t, build(), build())
}

func TestBuildUsesResolvedRefsWithoutBackend(t *testing.T) {
	tx := New()
	tx.TransferObjects([]Argument{tx.Object("0xa")}, tx.Pure(types.Address("0xdst")))
	tx.SetSender("0xabc")
	tx.SetGasPayment([]types.ObjectRef{gasRef})
	tx.ResolveObject("0xa", types.ObjectRef{ObjectID: "0xa", Digest: "digest-a", Version: 4})

	// A nil backend proves no lookup is attempted for resolved inputs.
	raw, err := tx.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"digest-a"`)
	assert.Contains(t, string(raw), `"version":4`)
}

func TestResolveUnknownObjectIgnored(t *testing.T) {
	tx := New()
	tx.Object("0xa")
	tx.ResolveObject("0xzz", types.ObjectRef{ObjectID: "0xzz"})
	require.Nil(t, tx.Inputs()[0].Ref)
}

func TestGasPaymentCopied(t *testing.T) {
	tx := New()
	refs := []types.ObjectRef{gasRef}
	tx.SetGasPayment(refs)
	refs[0].ObjectID = "0xmutated"
	assert.Equal(t, types.ObjectID("0xgas"), tx.GasPayment()[0].ObjectID)
}
