// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txbuilder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/types"
)

var (
	ErrNoSender     = errors.New("transaction has no sender")
	ErrNoGasPayment = errors.New("transaction has no gas payment")
)

// InputKind discriminates transaction inputs.
type InputKind int

const (
	// InputObject is an owned-or-immutable object input. Ownership of these
	// inputs is what the pools validate before signing.
	InputObject InputKind = iota
	// InputPure is a plain value input.
	InputPure
)

// Input is one entry of the transaction's input table.
type Input struct {
	Kind     InputKind
	ObjectID types.ObjectID   // set for InputObject
	Ref      *types.ObjectRef // resolved lazily for InputObject
	Pure     json.RawMessage  // set for InputPure
}

// IsObject reports whether the input is an owned-or-immutable object input.
func (in Input) IsObject() bool { return in.Kind == InputObject }

type argKind int

const (
	argInput argKind = iota
	argResult
	argGasCoin
)

// Argument refers to an input, a previous command's result, or the gas coin.
type Argument struct {
	kind  argKind
	index int
}

// GasCoin is the argument selecting the transaction's gas coin.
var GasCoin = Argument{kind: argGasCoin}

// Command is one programmable command. Only the fields used by the
// operation named in Kind are populated.
type Command struct {
	Kind      string
	Target    string // MoveCall
	Coin      Argument
	Amounts   []Argument
	Objects   []Argument
	Recipient Argument
	Args      []Argument
}

// Transaction is a mutable transaction block under construction. It is not
// safe for concurrent mutation; a pool serializes access while signing.
type Transaction struct {
	sender     types.Address
	gasPayment []types.ObjectRef
	gasBudget  uint64
	inputs     []Input
	commands   []Command
	objectIdx  map[types.ObjectID]int
	buildErr   error
}

// New creates an empty transaction block.
func New() *Transaction {
	return &Transaction{objectIdx: make(map[types.ObjectID]int)}
}

// SetSender sets the sending address. The pools overwrite this with their
// own signer address before executing.
func (t *Transaction) SetSender(addr types.Address) { t.sender = addr }

// Sender returns the currently set sender.
func (t *Transaction) Sender() types.Address { return t.sender }

// SetGasPayment sets the coins paying for the transaction.
func (t *Transaction) SetGasPayment(refs []types.ObjectRef) {
	t.gasPayment = append([]types.ObjectRef(nil), refs...)
}

// GasPayment returns the currently set gas payment.
func (t *Transaction) GasPayment() []types.ObjectRef {
	return append([]types.ObjectRef(nil), t.gasPayment...)
}

// SetGasBudget sets the maximum gas the transaction may consume.
func (t *Transaction) SetGasBudget(budget uint64) { t.gasBudget = budget }

// Object registers an owned-or-immutable object input and returns the
// argument referring to it. Repeated registrations of the same id share one
// input slot.
func (t *Transaction) Object(id types.ObjectID) Argument {
	if idx, ok := t.objectIdx[id]; ok {
		return Argument{kind: argInput, index: idx}
	}
	idx := len(t.inputs)
	t.inputs = append(t.inputs, Input{Kind: InputObject, ObjectID: id})
	t.objectIdx[id] = idx
	return Argument{kind: argInput, index: idx}
}

// Pure registers a plain value input.
func (t *Transaction) Pure(v interface{}) Argument {
	raw, err := json.Marshal(v)
	if err != nil && t.buildErr == nil {
		t.buildErr = fmt.Errorf("encoding pure input: %w", err)
	}
	idx := len(t.inputs)
	t.inputs = append(t.inputs, Input{Kind: InputPure, Pure: raw})
	return Argument{kind: argInput, index: idx}
}

// SplitCoins appends a split command and returns the argument referring to
// the produced coins.
func (t *Transaction) SplitCoins(coin Argument, amounts []Argument) Argument {
	t.commands = append(t.commands, Command{Kind: "SplitCoins", Coin: coin, Amounts: amounts})
	return Argument{kind: argResult, index: len(t.commands) - 1}
}

// TransferObjects appends a transfer command.
func (t *Transaction) TransferObjects(objects []Argument, recipient Argument) {
	t.commands = append(t.commands, Command{Kind: "TransferObjects", Objects: objects, Recipient: recipient})
}

// MoveCall appends a contract call command and returns the argument
// referring to its result. Target is "package::module::function".
func (t *Transaction) MoveCall(target string, args ...Argument) Argument {
	t.commands = append(t.commands, Command{Kind: "MoveCall", Target: target, Args: args})
	return Argument{kind: argResult, index: len(t.commands) - 1}
}

// Inputs returns a copy of the input table.
func (t *Transaction) Inputs() []Input {
	return append([]Input(nil), t.inputs...)
}

// ObjectInputs returns the ids of all owned-or-immutable object inputs.
func (t *Transaction) ObjectInputs() []types.ObjectID {
	var ids []types.ObjectID
	for _, in := range t.inputs {
		if in.IsObject() {
			ids = append(ids, in.ObjectID)
		}
	}
	return ids
}

// ResolveObject supplies the exact reference for an object input, saving the
// lookup Build would otherwise issue. Unknown ids are ignored.
func (t *Transaction) ResolveObject(id types.ObjectID, ref types.ObjectRef) {
	if idx, ok := t.objectIdx[id]; ok {
		r := ref
		t.inputs[idx].Ref = &r
	}
}

// wire forms kept stable so the serialization is deterministic for a given
// builder state.
type wireArgument struct {
	Input   *int `json:"input,omitempty"`
	Result  *int `json:"result,omitempty"`
	GasCoin bool `json:"gasCoin,omitempty"`
}

type wireInput struct {
	Object *types.ObjectRef `json:"object,omitempty"`
	Pure   json.RawMessage  `json:"pure,omitempty"`
}

type wireCommand struct {
	Kind      string          `json:"kind"`
	Target    string          `json:"target,omitempty"`
	Coin      *wireArgument   `json:"coin,omitempty"`
	Amounts   []wireArgument  `json:"amounts,omitempty"`
	Objects   []wireArgument  `json:"objects,omitempty"`
	Recipient *wireArgument   `json:"recipient,omitempty"`
	Args      []wireArgument  `json:"args,omitempty"`
}

type wireTransaction struct {
	Sender     types.Address     `json:"sender"`
	GasPayment []types.ObjectRef `json:"gasPayment"`
	GasBudget  uint64            `json:"gasBudget,omitempty"`
	Inputs     []wireInput       `json:"inputs"`
	Commands   []wireCommand     `json:"commands"`
}

func wireArg(a Argument) wireArgument {
	switch a.kind {
	case argResult:
		i := a.index
		return wireArgument{Result: &i}
	case argGasCoin:
		return wireArgument{GasCoin: true}
	default:
		i := a.index
		return wireArgument{Input: &i}
	}
}

func wireArgs(args []Argument) []wireArgument {
	if len(args) == 0 {
		return nil
	}
	out := make([]wireArgument, len(args))
	for i, a := range args {
		out[i] = wireArg(a)
	}
	return out
}

// Build resolves any unresolved object inputs through the backend and
// serializes the transaction. The same builder state always serializes to
// the same bytes.
func (t *Transaction) Build(ctx context.Context, backend client.Backend) ([]byte, error) {
	if t.buildErr != nil {
		return nil, t.buildErr
	}
	if t.sender == "" {
		return nil, ErrNoSender
	}
	if len(t.gasPayment) == 0 {
		return nil, ErrNoGasPayment
	}

	wire := wireTransaction{
		Sender:     t.sender,
		GasPayment: t.gasPayment,
		GasBudget:  t.gasBudget,
		Inputs:     make([]wireInput, len(t.inputs)),
		Commands:   make([]wireCommand, len(t.commands)),
	}
	for i, in := range t.inputs {
		switch in.Kind {
		case InputObject:
			ref := in.Ref
			if ref == nil {
				data, err := backend.GetObject(ctx, in.ObjectID, types.ObjectDataOptions{})
				if err != nil {
					return nil, fmt.Errorf("resolving object input %s: %w", in.ObjectID, err)
				}
				r := types.ObjectRef{ObjectID: data.ObjectID, Digest: data.Digest, Version: data.Version}
				ref = &r
				t.inputs[i].Ref = ref
			}
			wire.Inputs[i] = wireInput{Object: ref}
		case InputPure:
			wire.Inputs[i] = wireInput{Pure: in.Pure}
		}
	}
	for i, cmd := range t.commands {
		wc := wireCommand{
			Kind:    cmd.Kind,
			Target:  cmd.Target,
			Amounts: wireArgs(cmd.Amounts),
			Objects: wireArgs(cmd.Objects),
			Args:    wireArgs(cmd.Args),
		}
		switch cmd.Kind {
		case "SplitCoins":
			c := wireArg(cmd.Coin)
			wc.Coin = &c
		case "TransferObjects":
			r := wireArg(cmd.Recipient)
			wc.Recipient = &r
		}
		wire.Commands[i] = wc
	}
	return json.Marshal(wire)
}
