package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
	"github.com/burn-tracker/internal/retry"
	"github.com/burn-tracker/internal/service"
)

type fakeFeed struct {
	head       int64
	headErr    error
	fetchErr   error
	fetchCalls [][2]int64
	txs        []*models.BurnTransaction
}

func (f *fakeFeed) SafeHead(ctx context.Context) (int64, error) {
	return f.head, f.headErr
}

func (f *fakeFeed) FetchBurns(ctx context.Context, fromBlock, toBlock int64) ([]*models.BurnTransaction, error) {
	f.fetchCalls = append(f.fetchCalls, [2]int64{fromBlock, toBlock})
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.txs, nil
}

type fakeCheckpoints struct {
	cp    *models.IngestCheckpoint
	saved []*models.IngestCheckpoint
}

func (f *fakeCheckpoints) Get(ctx context.Context, token string) (*models.IngestCheckpoint, error) {
	return f.cp, nil
}

func (f *fakeCheckpoints) Save(ctx context.Context, cp *models.IngestCheckpoint) error {
	f.saved = append(f.saved, cp)
	f.cp = cp
	return nil
}

type fakeIngester struct {
	batches [][]*models.BurnTransaction
	err     error
	failN   int
	calls   int
}

func (f *fakeIngester) IngestBatch(ctx context.Context, txs []*models.BurnTransaction) (*service.IngestResult, error) {
	f.calls++
	f.batches = append(f.batches, txs)
	if f.err != nil && (f.failN == 0 || f.calls <= f.failN) {
		return nil, f.err
	}
	return &service.IngestResult{Received: len(txs), Inserted: len(txs)}, nil
}

func fastRetry(attempts int) *retry.RetryConfig {
	return &retry.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

func newTestWorker(t *testing.T, feed *fakeFeed, cps *fakeCheckpoints, ing *fakeIngester) *IngestWorker {
	t.Helper()
	w, err := NewIngestWorker(&IngestWorkerConfig{
		Feed:        feed,
		Checkpoints: cps,
		Ingester:    ing,
		Token:       "UNI",
		StartBlock:  100,
		MaxBlocks:   50,
		RetryConfig: fastRetry(3),
	})
	require.NoError(t, err)
	return w
}

func TestNewIngestWorker_Validation(t *testing.T) {
	_, err := NewIngestWorker(&IngestWorkerConfig{})
	assert.Error(t, err)

	_, err = NewIngestWorker(&IngestWorkerConfig{
		Feed:        &fakeFeed{},
		Checkpoints: &fakeCheckpoints{},
		Ingester:    &fakeIngester{},
	})
	assert.Error(t, err, "empty token is rejected")
}

func TestRunCycle_FirstScanStartsAtStartBlock(t *testing.T) {
	feed := &fakeFeed{head: 120}
	cps := &fakeCheckpoints{}
	ing := &fakeIngester{}
	w := newTestWorker(t, feed, cps, ing)

	require.NoError(t, w.RunCycle(context.Background()))

	require.Len(t, feed.fetchCalls, 1)
	assert.Equal(t, [2]int64{100, 120}, feed.fetchCalls[0])
	require.Len(t, cps.saved, 1)
	assert.Equal(t, int64(120), cps.saved[0].LastScannedBlock)
	assert.Equal(t, 0, cps.saved[0].IngestErrors)
}

func TestRunCycle_ResumesAfterCheckpoint(t *testing.T) {
	feed := &fakeFeed{head: 500}
	cps := &fakeCheckpoints{cp: &models.IngestCheckpoint{Token: "UNI", LastScannedBlock: 200, LastIngestAt: time.Now()}}
	ing := &fakeIngester{}
	w := newTestWorker(t, feed, cps, ing)

	require.NoError(t, w.RunCycle(context.Background()))

	require.Len(t, feed.fetchCalls, 1)
	// Window is capped at maxBlocks.
	assert.Equal(t, [2]int64{201, 250}, feed.fetchCalls[0])
	assert.Equal(t, int64(250), cps.cp.LastScannedBlock)
}

func TestRunCycle_NothingToScan(t *testing.T) {
	feed := &fakeFeed{head: 200}
	cps := &fakeCheckpoints{cp: &models.IngestCheckpoint{Token: "UNI", LastScannedBlock: 200, LastIngestAt: time.Now()}}
	ing := &fakeIngester{}
	w := newTestWorker(t, feed, cps, ing)

	require.NoError(t, w.RunCycle(context.Background()))

	assert.Empty(t, feed.fetchCalls)
	assert.Empty(t, cps.saved, "checkpoint does not move when there is nothing to scan")
}

func TestRunCycle_RetriesRetryableErrors(t *testing.T) {
	feed := &fakeFeed{head: 150}
	cps := &fakeCheckpoints{}
	ing := &fakeIngester{err: apperrors.NewStorageError("insert", assert.AnError), failN: 2}
	w := newTestWorker(t, feed, cps, ing)

	require.NoError(t, w.RunCycle(context.Background()))

	assert.Equal(t, 3, ing.calls, "two retryable failures then success")
	assert.Equal(t, int64(150), cps.cp.LastScannedBlock)
}

func TestRunCycle_NonRetryableFailsFast(t *testing.T) {
	feed := &fakeFeed{head: 150}
	cps := &fakeCheckpoints{}
	ing := &fakeIngester{err: apperrors.NewValidationError("uni_amount", "must be positive")}
	w := newTestWorker(t, feed, cps, ing)

	err := w.RunCycle(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, ing.calls)
	// Failure is recorded without advancing the scan position.
	require.NotEmpty(t, cps.saved)
	last := cps.saved[len(cps.saved)-1]
	assert.Equal(t, int64(99), last.LastScannedBlock)
	assert.Equal(t, 1, last.IngestErrors)
}

func TestRunCycle_FailedWindowIsRescanned(t *testing.T) {
	feed := &fakeFeed{head: 150, fetchErr: apperrors.NewProviderError("ethereum rpc", assert.AnError)}
	cps := &fakeCheckpoints{cp: &models.IngestCheckpoint{Token: "UNI", LastScannedBlock: 120, LastIngestAt: time.Now()}}
	ing := &fakeIngester{}
	w := newTestWorker(t, feed, cps, ing)

	require.Error(t, w.RunCycle(context.Background()))
	assert.Equal(t, int64(120), cps.cp.LastScannedBlock)
	assert.Equal(t, 1, cps.cp.IngestErrors)

	feed.fetchErr = nil
	require.NoError(t, w.RunCycle(context.Background()))

	lastCall := feed.fetchCalls[len(feed.fetchCalls)-1]
	assert.Equal(t, [2]int64{121, 150}, lastCall, "failed window starts over from the old checkpoint")
	assert.Equal(t, 0, cps.cp.IngestErrors)
}

func TestStartStop(t *testing.T) {
	feed := &fakeFeed{head: 0}
	cps := &fakeCheckpoints{}
	ing := &fakeIngester{}
	w := newTestWorker(t, feed, cps, ing)
	w.pollInterval = 10 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx), "double start is rejected")

	time.Sleep(25 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
}
