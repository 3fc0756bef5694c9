package meta

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), ".vomment-data"))
}

func TestAddThenGet(t *testing.T) {
	s := newTestStore(t)
	before := time.Now().UnixMilli()

	err := s.Add("ab12cd34", Record{
		URL:      "ab12cd34.wav",
		Duration: "01:23",
		Author:   "@alice",
		Comment:  "fix this",
	})
	require.NoError(t, err)

	r, ok := s.Get("ab12cd34")
	require.True(t, ok)
	assert.Equal(t, "ab12cd34.wav", r.URL)
	assert.Equal(t, "01:23", r.Duration)
	assert.Equal(t, "@alice", r.Author)
	assert.Equal(t, "fix this", r.Comment)
	assert.GreaterOrEqual(t, r.Timestamp, before)
}

func TestDeleteAbsentTokenIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("n1", Record{URL: "n1.wav"}))

	require.NoError(t, s.Delete("missing"))

	records := s.Load()
	assert.Len(t, records, 1)
	assert.Contains(t, records, "n1")
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("n1", Record{URL: "n1.wav"}))
	require.NoError(t, s.Delete("n1"))

	_, ok := s.Get("n1")
	assert.False(t, ok)
}

func TestLoadMissingDocumentIsEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.Load())
}

func TestLoadCorruptDocumentIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	assert.Empty(t, s.Load())
}

func TestAddOverwritesExistingToken(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("n1", Record{URL: "old.wav"}))
	require.NoError(t, s.Add("n1", Record{URL: "new.wav"}))

	r, ok := s.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "new.wav", r.URL)
	assert.Len(t, s.Load(), 1)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("n1", Record{URL: "a.wav"}))
	require.NoError(t, s.Add("n2", Record{URL: "b.wav"}))

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Load())
}

func TestSaveSeedsReadme(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("n1", Record{URL: "a.wav"}))

	data, err := os.ReadFile(filepath.Join(filepath.Dir(s.Path()), "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "do not delete or modify")
}

func TestWatchSignalsOnWrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(map[string]Record{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Add("n1", Record{URL: "a.wav"}))

	select {
	case _, ok := <-ch:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("no watch signal after metadata write")
	}
}
