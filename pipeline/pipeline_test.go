// ABOUTME: Tests for the pipeline runner, locks and scheduler
// ABOUTME: Fake stages record calls so ordering and rejection are observable
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/followup"
	"github.com/harperreed/introengine/inference"
	"github.com/harperreed/introengine/models"
	"github.com/harperreed/introengine/outbound"
	"github.com/harperreed/introengine/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	conn, err := db.OpenDatabase(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return db.NewStore(conn)
}

// fakeStages records the order stages ran in and can block or fail inference.
type fakeStages struct {
	mu       sync.Mutex
	calls    []string
	block    chan struct{}
	started  chan struct{}
	inferErr error
}

func (f *fakeStages) record(stage string) {
	f.mu.Lock()
	f.calls = append(f.calls, stage)
	f.mu.Unlock()
}

func (f *fakeStages) RecalculateIntroOpportunities(ctx context.Context, userID uuid.UUID) (inference.Result, error) {
	f.record(models.StageInference)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return inference.Result{Created: 1}, f.inferErr
}

func (f *fakeStages) AutoGenerateOutbound(ctx context.Context, userID uuid.UUID) (outbound.Result, error) {
	f.record(models.StageOutbound)
	return outbound.Result{Created: 2}, nil
}

func (f *fakeStages) ScoreAll(ctx context.Context, userID uuid.UUID) (scoring.Result, error) {
	f.record(models.StageScoring)
	return scoring.Result{Scored: 3}, nil
}

func (f *fakeStages) RunStale(ctx context.Context, userID uuid.UUID) (followup.Result, error) {
	f.record(models.StageFollowUp)
	return followup.Result{Considered: 1}, nil
}

func newRunner(s *db.Store, f *fakeStages, locker AccountLocker) *Runner {
	return NewRunner(Stages{Inference: f, Outbound: f, Scoring: f, FollowUps: f}, s, locker, time.Minute, nil)
}

func TestRunAccountRunsStagesInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	f := &fakeStages{}

	res, err := newRunner(s, f, nil).RunAccount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{models.StageInference, models.StageOutbound, models.StageScoring}, f.calls)
	assert.Equal(t, 1, res.Inference.Created)
	assert.Equal(t, 2, res.Outbound.Created)
	assert.Equal(t, 3, res.Scoring.Scored)

	runs, err := s.ListRuns(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StageFull, runs[0].Stage)
	assert.Equal(t, models.RunStatusSucceeded, runs[0].Status)
	assert.Contains(t, runs[0].Summary, "created=1")
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRunAccountStopsAtFailingStage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	f := &fakeStages{inferErr: apperr.NotFound("get_icp", "icp for user", user)}

	_, err := newRunner(s, f, nil).RunAccount(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []string{models.StageInference}, f.calls)

	runs, err := s.ListRuns(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "icp for user")
}

func TestOverlappingRunIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	f := &fakeStages{block: make(chan struct{}), started: make(chan struct{})}
	runner := newRunner(s, f, NewMemoryLocker())

	done := make(chan error, 1)
	go func() {
		_, err := runner.RunInference(ctx, user)
		done <- err
	}()
	<-f.started

	_, err := runner.RunScoring(ctx, user)
	assert.ErrorIs(t, err, ErrAccountBusy)

	close(f.block)
	require.NoError(t, <-done)

	runs, err := s.ListRuns(ctx, user, 10)
	require.NoError(t, err)
	statuses := map[string]string{}
	for _, r := range runs {
		statuses[r.Stage] = r.Status
	}
	assert.Equal(t, models.RunStatusRejected, statuses[models.StageScoring])
	assert.Equal(t, models.RunStatusSucceeded, statuses[models.StageInference])

	_, err = runner.RunScoring(ctx, user)
	assert.NoError(t, err, "lock is released after the run")
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	release, err := l.Acquire(ctx, a, 0)
	require.NoError(t, err)
	_, err = l.Acquire(ctx, a, 0)
	assert.ErrorIs(t, err, ErrAccountBusy)

	releaseB, err := l.Acquire(ctx, b, 0)
	require.NoError(t, err, "accounts lock independently")
	releaseB()

	release()
	release()
	again, err := l.Acquire(ctx, a, 0)
	require.NoError(t, err)
	again()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), 0)
	defer client.Close()

	ctx := context.Background()
	l := NewRedisLocker(client)
	user := uuid.New()

	release, err := l.Acquire(ctx, user, time.Minute)
	require.NoError(t, err)
	_, err = NewRedisLocker(client).Acquire(ctx, user, time.Minute)
	assert.ErrorIs(t, err, ErrAccountBusy)
	release()

	release, err = l.Acquire(ctx, user, time.Minute)
	require.NoError(t, err)
	release()
}

type staticAccounts []uuid.UUID

func (s staticAccounts) ListAccounts(ctx context.Context) ([]uuid.UUID, error) {
	return s, nil
}

type countingStages struct {
	fakeStages
	accounts sync.Map
	followUp atomic.Int32
	failFor  uuid.UUID
}

func (c *countingStages) RecalculateIntroOpportunities(ctx context.Context, userID uuid.UUID) (inference.Result, error) {
	c.accounts.Store(userID, true)
	if userID == c.failFor {
		return inference.Result{}, errors.New("boom")
	}
	return inference.Result{}, nil
}

func (c *countingStages) RunStale(ctx context.Context, userID uuid.UUID) (followup.Result, error) {
	c.followUp.Add(1)
	return followup.Result{}, nil
}

func TestSchedulerRunOnceCoversEveryAccount(t *testing.T) {
	s := newTestStore(t)
	users := staticAccounts{uuid.New(), uuid.New(), uuid.New()}
	c := &countingStages{failFor: users[1]}
	runner := NewRunner(Stages{Inference: c, Outbound: c, Scoring: c, FollowUps: c}, s, nil, time.Minute, nil)

	sched := NewScheduler(runner, users, time.Hour, time.Hour, 2, nil)
	require.NoError(t, sched.RunOnce(context.Background(), true))

	for _, u := range users {
		_, ok := c.accounts.Load(u)
		assert.True(t, ok, u.String())
	}
	assert.Equal(t, int32(2), c.followUp.Load(), "the failed account gets no follow-up pass")
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s := newTestStore(t)
	c := &countingStages{}
	runner := NewRunner(Stages{Inference: c, Outbound: c, Scoring: c, FollowUps: c}, s, nil, time.Minute, nil)
	sched := NewScheduler(runner, staticAccounts{uuid.New()}, time.Hour, time.Hour, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool { return c.followUp.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
