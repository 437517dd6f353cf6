package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/management-dashboard/internal/jobs"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

type stubWarmer struct {
	mu        sync.Mutex
	companies []string
	listErr   error
	failFor   string
	calls     []summary.Request
}

func (s *stubWarmer) Companies(ctx context.Context) ([]string, error) {
	return s.companies, s.listErr
}

func (s *stubWarmer) GetAnnualSummary(ctx context.Context, user string, req summary.Request) (summary.AnnualSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if req.Company == s.failFor {
		return summary.AnnualSummary{}, errors.New("boom")
	}
	return summary.AnnualSummary{Company: req.Company}, nil
}

func newWarmupJob(w SummaryWarmer) *SummaryWarmupJob {
	job := NewSummaryWarmupJob(w, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2025, 3, 10, 1, 15, 0, 0, time.UTC) }
	return job
}

func TestSummaryWarmupCoversCurrentAndPreviousYear(t *testing.T) {
	warmer := &stubWarmer{companies: []string{"Acme", "Globex"}}
	task, err := NewSummaryWarmupTask("")
	require.NoError(t, err)

	require.NoError(t, newWarmupJob(warmer).Handle(context.Background(), task))

	require.Len(t, warmer.calls, 4)
	assert.Equal(t, "Acme", warmer.calls[0].Company)
	assert.Equal(t, 2025, *warmer.calls[0].Year)
	assert.Equal(t, 2024, *warmer.calls[1].Year)
	assert.Equal(t, "Globex", warmer.calls[2].Company)
}

func TestSummaryWarmupCurrentOnly(t *testing.T) {
	warmer := &stubWarmer{companies: []string{"Acme"}}
	task, err := NewSummaryWarmupTask(ScopeCurrentOnly)
	require.NoError(t, err)

	require.NoError(t, newWarmupJob(warmer).Handle(context.Background(), task))
	require.Len(t, warmer.calls, 1)
	assert.Equal(t, 2025, *warmer.calls[0].Year)
}

func TestSummaryWarmupContinuesPastFailures(t *testing.T) {
	warmer := &stubWarmer{companies: []string{"Acme", "Broken", "Globex"}, failFor: "Broken"}
	task, err := NewSummaryWarmupTask(ScopeCurrent)
	require.NoError(t, err)

	err = newWarmupJob(warmer).Handle(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")

	var globex int
	for _, call := range warmer.calls {
		if call.Company == "Globex" {
			globex++
		}
	}
	assert.Equal(t, 2, globex)
}

func TestSummaryWarmupSkipsWhileLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locks := redislock.New(rdb)

	held, err := locks.Obtain(context.Background(), warmupLockKey, time.Minute, nil)
	require.NoError(t, err)

	warmer := &stubWarmer{companies: []string{"Acme"}}
	job := newWarmupJob(warmer)
	job.Locks = locks
	task, err := NewSummaryWarmupTask("")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Empty(t, warmer.calls)

	require.NoError(t, held.Release(context.Background()))
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Len(t, warmer.calls, 2)
	assert.False(t, mr.Exists(warmupLockKey), "lock is released after the run")
}

func TestSummaryWarmupBadPayloadSkipsRetry(t *testing.T) {
	err := newWarmupJob(&stubWarmer{}).Handle(context.Background(), asynq.NewTask(TaskSummaryWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSummaryWarmupCompanyListError(t *testing.T) {
	task, err := NewSummaryWarmupTask("")
	require.NoError(t, err)
	err = newWarmupJob(&stubWarmer{listErr: errors.New("db down")}).Handle(context.Background(), task)
	assert.EqualError(t, err, "db down")
}

type stubBumper struct {
	calls int
	err   error
}

func (s *stubBumper) Bump(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestSummaryBump(t *testing.T) {
	bumper := &stubBumper{}
	job := &SummaryBumpJob{Cache: bumper, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}
	task, err := NewSummaryBumpTask(" gl posted ")
	require.NoError(t, err)

	var payload SummaryBumpPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "gl posted", payload.Reason)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, bumper.calls)

	bumper.err = errors.New("redis down")
	assert.EqualError(t, job.Handle(context.Background(), task), "redis down")
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

func TestClientEnqueue(t *testing.T) {
	enq := &stubEnqueuer{}
	client := NewClientWith(enq)

	info, err := client.EnqueueSummaryWarmup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, TaskSummaryWarmup, info.Type)
	assert.JSONEq(t, `{"scope":"current"}`, string(enq.tasks[0].Payload()))

	enq.err = asynq.ErrDuplicateTask
	info, err = client.EnqueueSummaryBump(context.Background(), "gl")
	assert.NoError(t, err)
	assert.Nil(t, info)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"scheduled":0,"retry":1,"paused":false}`, rr.Body.String())

	h = NewHandler(stubInspector{err: errors.New("redis down")}, nil)
	rr = httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestWarmupTaskOptions(t *testing.T) {
	task, err := NewSummaryWarmupTask("current")
	require.NoError(t, err)
	assert.Equal(t, TaskSummaryWarmup, task.Type())
	assert.Equal(t, "15 1 * * *", WarmupCron)
}
