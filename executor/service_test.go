// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/internal/testutils"
	"github.com/mystenlabs/objectpool/pool"
	"github.com/mystenlabs/objectpool/signer"
	"github.com/mystenlabs/objectpool/txbuilder"
	"github.com/mystenlabs/objectpool/types"
)

func testService(t *testing.T, backend *testutils.Backend, cfg Config) *Service {
	t.Helper()
	s, err := signer.FromSeed(testutils.Seed(2))
	require.NoError(t, err)
	svc, err := New(context.Background(), s, backend, cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func payTx() *txbuilder.Transaction {
	tx := txbuilder.New()
	split := tx.SplitCoins(txbuilder.GasCoin, []txbuilder.Argument{tx.Pure(uint64(1000))})
	tx.TransferObjects([]txbuilder.Argument{split}, tx.Pure(types.Address("0xdst")))
	return tx
}

func TestParallelPaymentsUseDisjointGasCoins(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 10)...),
	)

	var (
		mu       sync.Mutex
		payments [][]types.ObjectRef
	)
	backend.ExecuteFn = func(req client.ExecuteRequest) (*types.TransactionResult, error) {
		_, refs, err := testutils.DecodeTx(req.TxBytes)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		payments = append(payments, refs)
		mu.Unlock()
		return testutils.EchoGasEffects(req)
	}

	svc := testService(t, backend, DefaultConfig)

	const parallel = 5
	var wg sync.WaitGroup
	errs := make([]error, parallel)
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Execute(context.Background(), payTx())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "payment %d", i)
	}
	require.Len(t, payments, parallel)

	// No two transactions may have shared a gas coin.
	seen := mapset.NewSet[types.ObjectID]()
	for _, refs := range payments {
		for _, ref := range refs {
			require.True(t, seen.Add(ref.ObjectID),
				"gas coin %s used by two transactions", ref.ObjectID)
		}
	}
}

func TestDryRunFailureExhaustsRetries(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 6)...),
	)
	backend.DryRunFn = func([]byte) (*types.DryRunResult, error) {
		return &types.DryRunResult{
			Effects: types.TransactionEffects{
				Status: types.ExecutionStatus{Status: types.ExecutionStatusFailure, Error: "bad move call"},
			},
		}, nil
	}

	cfg := DefaultConfig
	cfg.WorkerAcquireTimeout = 10 * time.Millisecond
	svc := testService(t, backend, cfg)
	initial := len(svc.Main().Objects())

	_, err := svc.Execute(context.Background(), payTx(), WithRetries(3))

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	var dryRunErr *pool.DryRunError
	require.ErrorAs(t, exhausted.Cause, &dryRunErr)

	// Every failed worker was merged back into the main pool.
	assert.Zero(t, svc.NumWorkers())
	assert.Len(t, svc.Main().Objects(), initial)
}

func TestEffectsFailureRecyclesWorker(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 4)...),
	)
	backend.ExecuteFn = func(req client.ExecuteRequest) (*types.TransactionResult, error) {
		return &types.TransactionResult{
			Digest: "tx-fail",
			Effects: &types.TransactionEffects{
				Status: types.ExecutionStatus{Status: types.ExecutionStatusFailure, Error: "abort"},
			},
		}, nil
	}

	cfg := DefaultConfig
	cfg.WorkerAcquireTimeout = 10 * time.Millisecond
	svc := testService(t, backend, cfg)

	_, err := svc.Execute(context.Background(), payTx(), WithRetries(1))

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.ErrorIs(t, exhausted.Cause, ErrEffectsFailed)
	assert.Zero(t, svc.NumWorkers())
}

func TestAcquireTimeoutGrowsWorkerSet(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 4)...),
	)
	backend.ExecuteDelay = 300 * time.Millisecond

	cfg := DefaultConfig
	cfg.WorkerAcquireTimeout = 100 * time.Millisecond
	svc := testService(t, backend, cfg)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Execute(context.Background(), payTx())
		}(i)
		// Let the first call claim its worker before the second starts, so
		// the second observes a busy worker and has to wait out the
		// acquire timeout.
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	// The second call could not wait out the first worker and split its own.
	assert.Equal(t, 2, svc.NumWorkers())
}

func TestZeroRetriesAddsAtMostOneWorker(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 4)...),
	)
	cfg := DefaultConfig
	cfg.WorkerAcquireTimeout = 0
	svc := testService(t, backend, cfg)

	_, err := svc.Execute(context.Background(), payTx(), WithRetries(0))

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, svc.NumWorkers())
}

func TestAcquireWorkerZeroTimeoutReturnsImmediately(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 2)...),
	)
	svc := testService(t, backend, DefaultConfig)

	start := time.Now()
	w, err := svc.acquireWorker(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestOwnershipViolationSurfacesWithoutRetry(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 4)...),
	)
	backend.SetObject(testutils.OwnedBy(testutils.Object("0xtheirs", "0xpkg::nft::Item"), "0xsomeoneelse"))

	cfg := DefaultConfig
	cfg.WorkerAcquireTimeout = 10 * time.Millisecond
	svc := testService(t, backend, cfg)

	tx := txbuilder.New()
	tx.TransferObjects([]txbuilder.Argument{tx.Object("0xtheirs")}, tx.Pure(types.Address("0xdst")))

	_, err := svc.Execute(context.Background(), tx)
	require.ErrorIs(t, err, pool.ErrOwnershipViolation)

	// The worker survives a rejected transaction and stays available.
	require.Equal(t, 1, svc.NumWorkers())
	w, err := svc.acquireWorker(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, w)
	svc.releaseWorker(w)
}

func TestWorkerReusedAcrossSequentialExecutes(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 4)...),
	)
	svc := testService(t, backend, DefaultConfig)

	for i := 0; i < 3; i++ {
		_, err := svc.Execute(context.Background(), payTx())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, svc.NumWorkers())
}

func TestCloseMergesIdleWorkers(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 6)...),
	)
	svc := testService(t, backend, DefaultConfig)
	initial := len(svc.Main().Objects())

	require.NoError(t, svc.AddWorker(context.Background(), pool.NewDefaultStrategy()))
	require.NoError(t, svc.AddWorker(context.Background(), pool.NewDefaultStrategy()))
	require.Equal(t, 2, svc.NumWorkers())

	svc.Close()
	assert.Zero(t, svc.NumWorkers())
	assert.Len(t, svc.Main().Objects(), initial)

	_, err := svc.Execute(context.Background(), payTx())
	require.ErrorIs(t, err, ErrClosed)
}

func TestRemoveWorkerNotFound(t *testing.T) {
	backend := testutils.NewBackend(
		testutils.Page(false, testutils.GasCoins("0xc", 2)...),
	)
	svc := testService(t, backend, DefaultConfig)

	stray := &worker{}
	require.ErrorIs(t, svc.removeWorker(stray), ErrWorkerNotFound)
}
