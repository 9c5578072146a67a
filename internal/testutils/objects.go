// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutils

import (
	"fmt"

	"github.com/mystenlabs/objectpool/types"
)

// GasCoin builds an owned gas-coin entry.
func GasCoin(id string) types.ObjectData {
	return types.ObjectData{
		ObjectID: types.ObjectID(id),
		Digest:   types.ObjectDigest("digest-" + id),
		Version:  1,
		Type:     types.GasCoinType,
	}
}

// Object builds an owned entry of an arbitrary type.
func Object(id, typ string) types.ObjectData {
	return types.ObjectData{
		ObjectID: types.ObjectID(id),
		Digest:   types.ObjectDigest("digest-" + id),
		Version:  1,
		Type:     typ,
	}
}

// Immutable builds an immutable entry, for ownership-check tests.
func Immutable(id, typ string) types.ObjectData {
	data := Object(id, typ)
	data.Owner = &types.Owner{Kind: types.OwnerImmutable}
	return data
}

// OwnedBy tags an entry as address-owned.
func OwnedBy(data types.ObjectData, addr types.Address) types.ObjectData {
	data.Owner = &types.Owner{Kind: types.OwnerAddress, Address: addr}
	return data
}

// Page builds one owned-objects page.
func Page(hasNext bool, entries ...types.ObjectData) types.ObjectPage {
	return types.ObjectPage{Data: entries, HasNextPage: hasNext}
}

// GasCoins builds n gas-coin entries with sequential ids prefixed by
// prefix.
func GasCoins(prefix string, n int) []types.ObjectData {
	out := make([]types.ObjectData, n)
	for i := range out {
		out[i] = GasCoin(fmt.Sprintf("%s-%d", prefix, i))
	}
	return out
}

// Seed is a deterministic 32-byte signer seed.
func Seed(b byte) []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	return seed
}
