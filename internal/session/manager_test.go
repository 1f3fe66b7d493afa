package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vending-visualizer/backend/internal/testutil"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T, maxSessions int) (*Manager, *testutil.MockStorage, *fakeClock) {
	t.Helper()
	store := testutil.NewMockStorage()
	clock := &fakeClock{t: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	m := NewManager(testutil.Catalog(), store, Options{MaxSessions: maxSessions})
	m.now = clock.Now
	return m, store, clock
}

func TestCreateAndGet(t *testing.T) {
	m, _, _ := newTestManager(t, 0)

	info := m.Create()
	require.NotEmpty(t, info.ID)
	assert.Equal(t, visualizer.MsgWelcome, info.State.Status)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.With("missing", func(*visualizer.Visualizer) error { return nil }), ErrNotFound)
}

func TestIngestFile(t *testing.T) {
	m, store, _ := newTestManager(t, 0)
	id := m.Create().ID

	first, err := store.SaveBytes("room.png", "image/png", testutil.PNG(640, 480))
	require.NoError(t, err)

	bg, err := m.IngestFile(context.Background(), id, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 640, bg.NaturalWidth)
	assert.Equal(t, first.ID, bg.FileID)

	stored, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "ingested", stored.Status)

	second, err := store.SaveBytes("hall.png", "image/png", testutil.PNG(320, 240))
	require.NoError(t, err)
	_, err = m.IngestFile(context.Background(), id, second.ID)
	require.NoError(t, err)

	_, err = store.Get(first.ID)
	assert.Error(t, err, "previous background is removed")
	assert.Equal(t, 1, store.GetFileCount())
}

func TestIngestFileRejected(t *testing.T) {
	m, store, _ := newTestManager(t, 0)
	id := m.Create().ID

	good, _ := store.SaveBytes("room.png", "image/png", testutil.PNG(100, 100))
	_, err := m.IngestFile(context.Background(), id, good.ID)
	require.NoError(t, err)

	bad, _ := store.SaveBytes("notes.txt", "text/plain", []byte("not a photo"))
	_, err = m.IngestFile(context.Background(), id, bad.ID)
	require.ErrorIs(t, err, visualizer.ErrInvalidInput)

	_, err = store.Get(bad.ID)
	assert.Error(t, err, "rejected upload is removed")

	snap, err := m.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snap.Background)
	assert.Equal(t, good.ID, snap.Background.FileID)
	assert.Equal(t, visualizer.MsgNotImage, snap.Status)
}

func TestIngestFileUnknownSession(t *testing.T) {
	m, store, _ := newTestManager(t, 0)
	file, _ := store.SaveBytes("room.png", "image/png", testutil.PNG(10, 10))

	_, err := m.IngestFile(context.Background(), "missing", file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.GetFileCount())
}

func TestResetAndDeleteRemoveFiles(t *testing.T) {
	m, store, _ := newTestManager(t, 0)

	id := m.Create().ID
	file, _ := store.SaveBytes("room.png", "image/png", testutil.PNG(50, 50))
	_, err := m.IngestFile(context.Background(), id, file.ID)
	require.NoError(t, err)

	snap, err := m.Reset(id)
	require.NoError(t, err)
	assert.Nil(t, snap.Background)
	assert.Equal(t, 0, store.GetFileCount())

	file, _ = store.SaveBytes("room.png", "image/png", testutil.PNG(50, 50))
	_, err = m.IngestFile(context.Background(), id, file.ID)
	require.NoError(t, err)

	require.NoError(t, m.Delete(id))
	assert.Equal(t, 0, store.GetFileCount())
	assert.ErrorIs(t, m.Delete(id), ErrNotFound)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	m, _, clock := newTestManager(t, 2)

	a := m.Create().ID
	clock.Advance(time.Minute)
	b := m.Create().ID
	clock.Advance(time.Minute)
	require.True(t, m.TouchSession(a))
	clock.Advance(time.Minute)

	c := m.Create().ID
	assert.Equal(t, 2, m.Len())

	_, err := m.Get(b)
	assert.ErrorIs(t, err, ErrNotFound, "b was least recently used")
	_, err = m.Get(a)
	assert.NoError(t, err)
	_, err = m.Get(c)
	assert.NoError(t, err)
}

func TestCleanupOldSessions(t *testing.T) {
	m, _, clock := newTestManager(t, 0)

	stale := m.Create().ID
	clock.Advance(50 * time.Minute)
	fresh := m.Create().ID
	clock.Advance(20 * time.Minute)

	removed := m.CleanupOldSessions(time.Hour)
	assert.Equal(t, 1, removed)

	_, err := m.Get(stale)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(fresh)
	assert.NoError(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	m, _, _ := newTestManager(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestWithSerialisesAccess(t *testing.T) {
	m, store, _ := newTestManager(t, 0)
	id := m.Create().ID
	file, _ := store.SaveBytes("room.png", "image/png", testutil.PNG(800, 600))
	_, err := m.IngestFile(context.Background(), id, file.ID)
	require.NoError(t, err)

	require.NoError(t, m.With(id, func(v *visualizer.Visualizer) error {
		_, err := v.ToggleSelection("snack")
		return err
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.With(id, func(v *visualizer.Visualizer) error {
				_, err := v.CommitToCanvas()
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := m.Snapshot(id)
	require.NoError(t, err)
	assert.Len(t, snap.PlacedMachines, 20)
}

func TestWithPropagatesErrors(t *testing.T) {
	m, _, _ := newTestManager(t, 0)
	id := m.Create().ID

	sentinel := errors.New("boom")
	err := m.With(id, func(*visualizer.Visualizer) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestReleasedSessionRejectsLateWork(t *testing.T) {
	m, store, _ := newTestManager(t, 0)
	id := m.Create().ID

	first, _ := store.SaveBytes("room.png", "image/png", testutil.PNG(40, 30))
	_, err := m.IngestFile(context.Background(), id, first.ID)
	require.NoError(t, err)

	// A caller that looked the session up before it was deleted.
	state, ok := m.lookup(id)
	require.True(t, ok)
	require.NoError(t, m.Delete(id))
	assert.Equal(t, 0, store.GetFileCount())

	ran := false
	err = m.withState(state, func(*visualizer.Visualizer) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, ran, "released session must not be mutated")

	late, _ := store.SaveBytes("late.png", "image/png", testutil.PNG(40, 30))
	_, err = m.IngestFile(context.Background(), id, late.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.GetFileCount(), "late upload is not orphaned")
}
