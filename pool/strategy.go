// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"strings"

	"github.com/mystenlabs/objectpool/types"
)

// Decision is a split strategy's verdict on one candidate object.
type Decision int

const (
	// Keep leaves the candidate in the source pool.
	Keep Decision = iota
	// Move transfers the candidate to the new pool.
	Move
	// Stop ends the current scan; all remaining candidates stay.
	Stop
)

// SplitStrategy decides which objects move to the new pool during a split.
// Strategies are stateful and single-use; create a fresh one per split.
type SplitStrategy interface {
	// Decide is called once per candidate, newest first.
	Decide(obj types.PoolObject) Decision

	// Succeeded reports whether the strategy's post-condition holds. The
	// splitter fetches more objects and rescans while it returns false.
	Succeeded() bool
}

// DefaultStrategy moves exactly one gas coin into the new pool, which is the
// minimum a pool needs to execute a transaction.
type DefaultStrategy struct {
	coinsLeft int
}

var _ SplitStrategy = (*DefaultStrategy)(nil)

func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{coinsLeft: 1}
}

func (s *DefaultStrategy) Decide(obj types.PoolObject) Decision {
	if s.coinsLeft <= 0 {
		return Stop
	}
	if obj.IsGasCoin() {
		s.coinsLeft--
		return Move
	}
	return Keep
}

func (s *DefaultStrategy) Succeeded() bool {
	return s.coinsLeft == 0
}

// IncludeAdminCapStrategy moves one gas coin, one plain object, and one
// admin-cap object of the given package into the new pool.
type IncludeAdminCapStrategy struct {
	packageID   string
	coinsLeft   int
	objectsLeft int
	adminCap    bool
}

var _ SplitStrategy = (*IncludeAdminCapStrategy)(nil)

func NewIncludeAdminCapStrategy(packageID string) *IncludeAdminCapStrategy {
	return &IncludeAdminCapStrategy{
		packageID:   packageID,
		coinsLeft:   1,
		objectsLeft: 1,
	}
}

func (s *IncludeAdminCapStrategy) Decide(obj types.PoolObject) Decision {
	if !s.adminCap && strings.Contains(obj.Type, "AdminCap") && strings.Contains(obj.Type, s.packageID) {
		s.adminCap = true
		return Move
	}
	if s.Succeeded() {
		return Stop
	}
	if obj.IsGasCoin() {
		if s.coinsLeft > 0 {
			s.coinsLeft--
			return Move
		}
		return Keep
	}
	if s.objectsLeft > 0 {
		s.objectsLeft--
		return Move
	}
	return Keep
}

func (s *IncludeAdminCapStrategy) Succeeded() bool {
	return s.coinsLeft == 0 && s.objectsLeft == 0 && s.adminCap
}
