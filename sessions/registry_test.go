package sessions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andrebq/authbox/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type (
	fakeClock struct {
		mu  sync.Mutex
		now time.Time
	}

	mapPersister struct {
		mu      sync.Mutex
		records map[string]Record
		fail    error
	}
)

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newMapPersister() *mapPersister {
	return &mapPersister{records: map[string]Record{}}
}

func (m *mapPersister) SaveSession(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *mapPersister) LookupSession(_ context.Context, id string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return Record{}, false, m.fail
	}
	rec, ok := m.records[id]
	return rec, ok, nil
}

func (m *mapPersister) DeleteSession(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	delete(m.records, id)
	return ok, nil
}

func (m *mapPersister) DeleteSessionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func TestCreateResolveDestroy(t *testing.T) {
	ctx := context.Background()
	r := New()

	_, err := r.Create(ctx, "")
	require.ErrorIs(t, err, ErrInvalidUser)

	id, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	other, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, id, other, "session ids must be unique")

	uid, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid)

	uid, err = r.Resolve(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, uid)

	uid, err = r.Resolve(ctx, "")
	require.NoError(t, err)
	require.Empty(t, uid)

	destroyed, err := r.Destroy(ctx, id)
	require.NoError(t, err)
	require.True(t, destroyed)

	uid, err = r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Empty(t, uid)

	destroyed, err = r.Destroy(ctx, id)
	require.NoError(t, err)
	require.False(t, destroyed, "destroying twice should report a missing session")
	require.Equal(t, 1, r.Active())
}

func TestLazyExpiration(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New(WithTTL(10*time.Second), WithClock(clock.Now))

	id, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	_, err = r.Create(ctx, "user-2")
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	uid, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid, "session should be valid up to the ttl")

	clock.Advance(time.Millisecond)
	uid, err = r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Empty(t, uid, "session should be expired after the ttl")
	require.Equal(t, 1, r.Active(), "the expired session is dropped once resolved")

	require.Equal(t, 1, r.Sweep(ctx), "sweep removes sessions nobody looked up")
	require.Equal(t, 0, r.Active())
}

func TestExpirationCountedOnce(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	reg := prometheus.NewRegistry()
	m := metrics.NewAuth(reg)
	store := newMapPersister()
	for _, r := range []*Registry{
		New(WithTTL(time.Second), WithClock(clock.Now), WithMetrics(m)),
		New(WithTTL(time.Second), WithClock(clock.Now), WithMetrics(m), WithPersistence(store)),
	} {
		id, err := r.Create(ctx, "user-1")
		require.NoError(t, err)
		clock.Advance(2 * time.Second)
		for i := 0; i < 3; i++ {
			uid, err := r.Resolve(ctx, id)
			require.NoError(t, err)
			require.Empty(t, uid)
		}
	}
	require.Empty(t, store.records, "expired records are removed from the persister too")
	expected := `
# HELP authbox_sessions_total Session lifecycle events.
# TYPE authbox_sessions_total counter
authbox_sessions_total{event="created"} 2
authbox_sessions_total{event="expired"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "authbox_sessions_total"),
		"each expired session is counted once")
}

func TestNoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	r := New(WithTTL(0), WithClock(clock.Now))
	id, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	clock.Advance(24 * 365 * time.Hour)
	uid, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid)
	require.Equal(t, 0, r.Sweep(ctx))
}

func TestPersistedSessionsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := newMapPersister()

	first := New(WithPersistence(store), WithTTL(time.Minute), WithClock(clock.Now))
	id, err := first.Create(ctx, "user-1")
	require.NoError(t, err)
	require.Contains(t, store.records, id)

	restarted := New(WithPersistence(store), WithTTL(time.Minute), WithClock(clock.Now))
	uid, err := restarted.Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid)

	clock.Advance(2 * time.Minute)
	uid, err = restarted.Resolve(ctx, id)
	require.NoError(t, err)
	require.Empty(t, uid, "persisted sessions still honor the ttl")

	restarted.Sweep(ctx)
	require.NotContains(t, store.records, id)
}

func TestPersistedDestroy(t *testing.T) {
	ctx := context.Background()
	store := newMapPersister()
	r := New(WithPersistence(store))
	id, err := r.Create(ctx, "user-1")
	require.NoError(t, err)

	// a fresh registry only knows about the session through the persister
	other := New(WithPersistence(store))
	destroyed, err := other.Destroy(ctx, id)
	require.NoError(t, err)
	require.True(t, destroyed)

	uid, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Empty(t, uid, "the persisted record is authoritative")
}

func TestPersisterFailures(t *testing.T) {
	ctx := context.Background()
	store := newMapPersister()
	r := New(WithPersistence(store))
	id, err := r.Create(ctx, "user-1")
	require.NoError(t, err)

	boom := errors.New("disk on fire")
	store.fail = boom
	_, err = r.Create(ctx, "user-2")
	require.ErrorIs(t, err, boom)
	uid, err := r.Resolve(ctx, id)
	require.ErrorIs(t, err, boom)
	require.Empty(t, uid)
}

func TestStartSweeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: time.Now()}
	r := New(WithTTL(time.Second), WithClock(clock.Now))
	_, err := r.Create(ctx, "user-1")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	r.StartSweeper(ctx, time.Millisecond)
	require.Eventually(t, func() bool { return r.Active() == 0 }, time.Second, time.Millisecond)
}

func TestCustomIDGenerator(t *testing.T) {
	r := New(WithIDGenerator(func() string { return "fixed" }))
	id, err := r.Create(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "fixed", id)
}
