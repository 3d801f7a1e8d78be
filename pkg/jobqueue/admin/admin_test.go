package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobqueue/pkg/httpserver"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue/admin"
	"github.com/dmitrymomot/jobqueue/pkg/workitems"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type MockFailureLister struct {
	mock.Mock
}

func (m *MockFailureLister) Recent(ctx context.Context, wt jobqueue.WorkType, limit int64) ([]jobqueue.FailureRecord, error) {
	args := m.Called(ctx, wt, limit)
	recs, _ := args.Get(0).([]jobqueue.FailureRecord)
	return recs, args.Error(1)
}

type fixture struct {
	clock    *clock
	store    *jobqueue.MemoryStore
	enqueuer *jobqueue.Enqueuer
	handler  http.Handler
}

func newFixture(t *testing.T, opts ...admin.Option) *fixture {
	t.Helper()

	reg := jobqueue.NewRegistry()
	require.NoError(t, workitems.Register(reg))

	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := jobqueue.NewMemoryStore(reg, jobqueue.WithMemoryClock(c.Now))
	require.NoError(t, err)
	enq, err := jobqueue.NewEnqueuer(store, reg, jobqueue.WithEnqueuerClock(c.Now))
	require.NoError(t, err)

	opts = append([]admin.Option{
		admin.WithClock(c.Now),
		admin.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	api, err := admin.New(store, opts...)
	require.NoError(t, err)

	return &fixture{clock: c, store: store, enqueuer: enq, handler: api.Handler()}
}

func (f *fixture) enqueue(t *testing.T, p jobqueue.Payload, opts ...jobqueue.EnqueueOption) int64 {
	t.Helper()
	id, err := f.enqueuer.Enqueue(context.Background(), p, opts...)
	require.NoError(t, err)
	return id
}

func (f *fixture) do(t *testing.T, method, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type envelope struct {
	ID           int64          `json:"id"`
	WorkType     string         `json:"work_type"`
	Priority     string         `json:"priority"`
	State        string         `json:"state"`
	Paused       bool           `json:"paused"`
	FailureCount int            `json:"failure_count"`
	NotBeforeAge int64          `json:"not_before_age"`
	Payload      map[string]any `json:"payload"`
}

type list[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type apiError struct {
	Error  string `json:"error"`
	Fields []struct {
		Field string `json:"field"`
	} `json:"fields"`
}

type count struct {
	WorkType string `json:"work_type"`
	Count    int64  `json:"count"`
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := admin.New(nil)
	assert.ErrorIs(t, err, admin.ErrRepositoryNil)
}

func TestEnvelopes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	group := f.enqueue(t, &workitems.GroupRefresh{GroupUID: "group01"}, jobqueue.WithNotBefore(f.clock.Now()))
	push := f.enqueue(t, &workitems.PushNotification{PushID: "/CalDAV/user01/", PushPriority: "high"},
		jobqueue.WithDelay(time.Minute))
	f.clock.Advance(90 * time.Second)

	t.Run("list", func(t *testing.T) {
		var got list[envelope]
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes", &got))
		require.Equal(t, 2, got.Total)
		assert.Equal(t, group, got.Items[0].ID)
		assert.Equal(t, int64(90), got.Items[0].NotBeforeAge)
		assert.Equal(t, int64(30), got.Items[1].NotBeforeAge)
		assert.Equal(t, "high", got.Items[1].Priority)

		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes?work_type=push_notification", &got))
		require.Len(t, got.Items, 1)
		assert.Equal(t, push, got.Items[0].ID)
	})

	t.Run("invalid filter", func(t *testing.T) {
		var got apiError
		require.Equal(t, http.StatusBadRequest,
			f.do(t, http.MethodGet, "/envelopes?state=lost&limit=x&paused=maybe", &got))
		fields := make([]string, 0, len(got.Fields))
		for _, fe := range got.Fields {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"state", "limit", "paused"}, fields)
	})

	t.Run("peek", func(t *testing.T) {
		var got envelope
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes/"+itoa(group), &got))
		assert.Equal(t, "group_refresh", got.WorkType)
		assert.Equal(t, "queued", got.State)
		assert.Equal(t, "group01", got.Payload["group_uid"])

		var missing apiError
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/envelopes/999", &missing))
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/envelopes/abc", &missing))
	})

	t.Run("pause and resume", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/envelopes/"+itoa(group)+"/pause", nil))
		var got list[envelope]
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes?paused=true", &got))
		require.Len(t, got.Items, 1)
		assert.Equal(t, group, got.Items[0].ID)

		require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/envelopes/"+itoa(group)+"/resume", nil))
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes?paused=true", &got))
		assert.Empty(t, got.Items)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/envelopes/999/pause", nil))
	})

	t.Run("retry", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/envelopes/"+itoa(push)+"/retry?delay=5m", nil))
		var got envelope
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes/"+itoa(push), &got))
		assert.Equal(t, 1, got.FailureCount)
		assert.Equal(t, int64(-300), got.NotBeforeAge)

		var failing list[envelope]
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes?min_failures=1", &failing))
		require.Len(t, failing.Items, 1)
		assert.Equal(t, push, failing.Items[0].ID)

		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/envelopes/"+itoa(push)+"/retry?delay=-1s", nil))
	})

	t.Run("delete", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/envelopes/"+itoa(push), nil))
		require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/envelopes/"+itoa(push), nil))
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/envelopes/"+itoa(push), nil))
	})
}

func TestLeasedState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.enqueue(t, &workitems.CleanupOneInbox{HomeID: 7}, jobqueue.WithNotBefore(f.clock.Now()))
	jobs, err := f.store.Dequeue(context.Background(), jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	var got list[envelope]
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes?state=leased", &got))
	require.Len(t, got.Items, 1)

	f.clock.Advance(time.Hour)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/envelopes?state=reclaimable", &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "reclaimable", got.Items[0].State)
}

func TestWorkTypes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, uid := range []string{"g1", "g2", "g3"} {
		f.enqueue(t, &workitems.GroupRefresh{GroupUID: uid})
	}
	f.enqueue(t, &workitems.CleanupOneInbox{HomeID: 1})

	var stats list[jobqueue.WorkTypeStats]
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/work-types", &stats))
	require.Len(t, stats.Items, 2)
	assert.Equal(t, workitems.WorkCleanupOneInbox, stats.Items[0].WorkType)
	assert.Equal(t, int64(3), stats.Items[1].Queued)

	var c count
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/work-types/group_refresh/pause", &c))
	assert.Equal(t, int64(3), c.Count)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/work-types/group_refresh/queued", &c))
	assert.Equal(t, count{WorkType: "group_refresh", Count: 3}, c)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/work-types/group_refresh/resume", &c))
	assert.Equal(t, int64(3), c.Count)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/work-types/group_refresh", &c))
	assert.Equal(t, int64(3), c.Count)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/work-types/group_refresh/queued", &c))
	assert.Zero(t, c.Count)
}

func TestClusterViews(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.RegisterWorker(ctx, jobqueue.WorkerInfo{WorkerID: uuid.New(), Host: "cal01", PID: 10, Port: 8008})
	require.NoError(t, err)
	ok, err := f.store.AcquireNamedLock(ctx, "purge:user01", uuid.New(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	var workers list[jobqueue.WorkerRegistration]
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/workers", &workers))
	require.Len(t, workers.Items, 1)
	assert.Equal(t, "cal01", workers.Items[0].Host)

	var locks list[jobqueue.NamedLock]
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/locks", &locks))
	require.Len(t, locks.Items, 1)
	assert.Equal(t, "purge:user01", locks.Items[0].Name)
}

func TestFailures(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.Equal(t, http.StatusNotImplemented, f.do(t, http.MethodGet, "/failures", nil))
	})

	t.Run("archive", func(t *testing.T) {
		t.Parallel()
		lister := &MockFailureLister{}
		lister.On("Recent", mock.Anything, workitems.WorkIMIPInvitation, int64(5)).Return([]jobqueue.FailureRecord{{
			EnvelopeID: 42, WorkType: workitems.WorkIMIPInvitation, Reason: "mailbox unavailable",
		}}, nil)
		lister.On("Recent", mock.Anything, jobqueue.WorkType(""), int64(100)).Return(nil, errors.New("archive down"))

		f := newFixture(t, admin.WithFailureLister(lister))

		var got list[jobqueue.FailureRecord]
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/failures?work_type=imip_invitation&limit=5", &got))
		require.Len(t, got.Items, 1)
		assert.Equal(t, "mailbox unavailable", got.Items[0].Reason)

		var apiErr apiError
		require.Equal(t, http.StatusInternalServerError, f.do(t, http.MethodGet, "/failures", &apiErr))
		assert.Equal(t, http.StatusText(http.StatusInternalServerError), apiErr.Error)

		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/failures?limit=0", nil))
		lister.AssertExpectations(t)
	})
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil))

	f = newFixture(t, admin.WithHealthChecks(httpserver.Check{
		Name:  "postgres",
		Probe: func(context.Context) error { return errors.New("too many connections") },
	}))
	var got struct {
		Status string `json:"status"`
	}
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/healthz", &got))
	assert.Equal(t, "not_ready", got.Status)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
