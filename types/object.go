// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/json"
	"fmt"
)

// GasCoinType is the fully-qualified type tag of objects that can pay for
// transaction gas.
const GasCoinType = "0x2::coin::Coin<0x2::sui::SUI>"

// ObjectID is the stable on-chain identifier of an object.
type ObjectID string

// Address is a 32-byte account address in 0x-prefixed hex form.
type Address string

// ObjectDigest is the content fingerprint of an object at a particular
// version. It changes with every mutation.
type ObjectDigest string

// SequenceNumber is the monotonic version of an object.
type SequenceNumber uint64

// ObjectRef identifies one exact version of an object. It is the form used
// for transaction inputs and gas payment.
type ObjectRef struct {
	ObjectID ObjectID       `json:"objectId"`
	Digest   ObjectDigest   `json:"digest"`
	Version  SequenceNumber `json:"version"`
}

// PoolObject is the registry entry a pool keeps for every object it owns.
// Type is the fully-qualified type tag; it is the empty string when the
// backend omitted the type field.
type PoolObject struct {
	ObjectID ObjectID       `json:"objectId"`
	Digest   ObjectDigest   `json:"digest"`
	Version  SequenceNumber `json:"version"`
	Type     string         `json:"type"`
}

// Ref returns the reference form of the object.
func (o PoolObject) Ref() ObjectRef {
	return ObjectRef{ObjectID: o.ObjectID, Digest: o.Digest, Version: o.Version}
}

// IsGasCoin reports whether the object can be used as gas payment.
func (o PoolObject) IsGasCoin() bool {
	return o.Type == GasCoinType
}

// OwnerKind discriminates the ownership forms an object can have.
type OwnerKind int

const (
	OwnerUnknown OwnerKind = iota
	OwnerAddress
	OwnerObject
	OwnerShared
	OwnerImmutable
)

// Owner is the on-chain ownership of an object. The wire encoding is either
// the string "Immutable" or a single-key object such as
// {"AddressOwner": "0x.."}, {"ObjectOwner": "0x.."} or
// {"Shared": {"initial_shared_version": N}}.
type Owner struct {
	Kind    OwnerKind
	Address Address // set for OwnerAddress and OwnerObject
}

// IsImmutable reports whether the owner is the immutable sentinel.
func (o Owner) IsImmutable() bool { return o.Kind == OwnerImmutable }

// OwnedBy reports whether the object is address-owned by addr.
func (o Owner) OwnedBy(addr Address) bool {
	return o.Kind == OwnerAddress && o.Address == addr
}

func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerImmutable:
		return json.Marshal("Immutable")
	case OwnerAddress:
		return json.Marshal(map[string]Address{"AddressOwner": o.Address})
	case OwnerObject:
		return json.Marshal(map[string]Address{"ObjectOwner": o.Address})
	case OwnerShared:
		return json.Marshal(map[string]struct{}{"Shared": {}})
	default:
		return json.Marshal(nil)
	}
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "Immutable" {
			return fmt.Errorf("unknown owner sentinel %q", s)
		}
		o.Kind = OwnerImmutable
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["AddressOwner"]; ok {
		o.Kind = OwnerAddress
		return json.Unmarshal(raw, &o.Address)
	}
	if raw, ok := fields["ObjectOwner"]; ok {
		o.Kind = OwnerObject
		return json.Unmarshal(raw, &o.Address)
	}
	if _, ok := fields["Shared"]; ok {
		o.Kind = OwnerShared
		return nil
	}
	o.Kind = OwnerUnknown
	return nil
}

// ObjectData is the payload returned for a single object query or for one
// entry of an owned-objects page. Error is set instead of the data fields
// when the backend could not serve the entry.
type ObjectData struct {
	ObjectID ObjectID       `json:"objectId"`
	Digest   ObjectDigest   `json:"digest"`
	Version  SequenceNumber `json:"version"`
	Type     string         `json:"type,omitempty"`
	Owner    *Owner         `json:"owner,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ObjectDataOptions selects which optional fields an object query returns.
type ObjectDataOptions struct {
	ShowType  bool `json:"showType,omitempty"`
	ShowOwner bool `json:"showOwner,omitempty"`
}

// ObjectPage is one batch of a paginated owned-objects listing.
type ObjectPage struct {
	Data        []ObjectData `json:"data"`
	NextCursor  *ObjectID    `json:"nextCursor,omitempty"`
	HasNextPage bool         `json:"hasNextPage"`
}

// Coin is one entry of a paginated coin listing.
type Coin struct {
	CoinType     string         `json:"coinType"`
	CoinObjectID ObjectID       `json:"coinObjectId"`
	Digest       ObjectDigest   `json:"digest"`
	Version      SequenceNumber `json:"version"`
	Balance      uint64         `json:"balance,string"`
}

// CoinPage is one batch of a paginated coin listing.
type CoinPage struct {
	Data        []Coin    `json:"data"`
	NextCursor  *ObjectID `json:"nextCursor,omitempty"`
	HasNextPage bool      `json:"hasNextPage"`
}
