package jobstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	rec := Record{
		ID:         "job-1",
		Root:       "/src/myproject",
		State:      "emitted",
		Chapters:   7,
		Warnings:   1,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	}
	require.NoError(t, store.Save(rec))

	got, err := store.Get("job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/src/myproject", got.Root)
	assert.Equal(t, "emitted", got.State)
	assert.Equal(t, 7, got.Chapters)
	assert.Equal(t, 1, got.Warnings)
	assert.True(t, got.StartedAt.Equal(started))
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveReplacesExisting(t *testing.T) {
	store := newTestStore(t)

	rec := Record{ID: "job-1", Root: "/src/a", State: "generating", StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, store.Save(rec))

	rec.State = "failed"
	rec.ErrorCode = "GENERATION_ERROR"
	require.NoError(t, store.Save(rec))

	got, err := store.Get("job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "failed", got.State)
	assert.Equal(t, "GENERATION_ERROR", got.ErrorCode)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.Save(Record{
			ID:         id,
			Root:       "/src/p",
			State:      "emitted",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		}))
	}

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
	assert.Equal(t, "old", records[2].ID)
}
