// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendObject is returned when a feed batch contains an entry the
	// backend could not serve.
	ErrBackendObject = errors.New("backend returned object entry without data")

	// ErrFetch is returned when the initial fetch of a full pool produces
	// no objects.
	ErrFetch = errors.New("initial object fetch returned no objects")

	// ErrSplitExhausted is returned when a split starts on an empty pool
	// and the feed cannot supply any candidates.
	ErrSplitExhausted = errors.New("object feed exhausted before split could begin")

	// ErrSplitUnsatisfied is returned when the feed runs out before the
	// split strategy reaches its post-condition.
	ErrSplitUnsatisfied = errors.New("split strategy unsatisfied after feed exhaustion")

	// ErrOwnershipViolation is returned when a transaction input is
	// neither owned by the pool nor immutable.
	ErrOwnershipViolation = errors.New("transaction input not owned by pool and not immutable")

	// ErrNoGasCoin is returned when the pool holds no coin to pay gas
	// with. It indicates a malformed split.
	ErrNoGasCoin = errors.New("pool has no gas coin")

	// ErrMergeCollision is returned when two pools unexpectedly share an
	// object. Disjointness is an invariant, so hitting this means a bug.
	ErrMergeCollision = errors.New("pools to merge share an object")
)

// DryRunError is returned when the backend's dry run rejected the
// transaction before submission.
type DryRunError struct {
	Reason string
}

func (e *DryRunError) Error() string {
	return fmt.Sprintf("dry run failed: %s", e.Reason)
}

// ExecutionError is returned when the submission itself failed. The effects
// of the transaction are unknown, so the pool's registry may be stale.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transaction submission failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
