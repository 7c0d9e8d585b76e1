package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svincent240/scormrt/internal/rte"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(sessionID string) rte.Snapshot {
	return rte.Snapshot{
		SessionID:  sessionID,
		ActivityID: "sco-1",
		DataModel: map[string]string{
			"cmi.completion_status": "incomplete",
			"cmi.location":          "page-3",
			"cmi.score.scaled":      "0.4",
		},
		ActivityTree: map[string]rte.ActivityState{
			"root": {AttemptCount: 1, CompletionStatus: "unknown", SuccessStatus: "unknown"},
			"sco-1": {
				AttemptCount:          1,
				CompletionStatus:      "incomplete",
				SuccessStatus:         "unknown",
				ObjectiveMeasure:      0.4,
				ObjectiveMeasureKnown: true,
				Suspended:             true,
			},
		},
		LastNavigationRequest: "start",
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "attempts.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attempts.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveSnapshot(context.Background(), sampleSnapshot("s-1")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var version int
	require.NoError(t, s2.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	snap, err := s2.LoadSnapshot(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "sco-1", snap.ActivityID)
}

func TestSaveLoadSnapshot_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleSnapshot("s-1")
	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, err := s.LoadSnapshot(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveSnapshot_ReplacesPreviousState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := sampleSnapshot("s-1")
	require.NoError(t, s.SaveSnapshot(ctx, first))

	second := first
	second.DataModel = map[string]string{
		"cmi.completion_status": "completed",
	}
	second.LastNavigationRequest = "continue"
	require.NoError(t, s.SaveSnapshot(ctx, second))

	got, err := s.LoadSnapshot(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "continue", got.LastNavigationRequest)
	assert.Equal(t, "completed", got.DataModel["cmi.completion_status"])
	_, stale := got.DataModel["cmi.location"]
	assert.False(t, stale, "values absent from the new snapshot are gone")
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot("s-1")))
	later := sampleSnapshot("s-2")
	later.ActivityID = "sco-2"
	require.NoError(t, s.SaveSnapshot(ctx, later))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s-2", got.SessionID)
	assert.Equal(t, "sco-2", got.ActivityID)
}

func TestListAttempts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot("s-1")))
	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot("s-2")))

	infos, err := s.ListAttempts(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "s-2", infos[0].SessionID, "most recent first")
	assert.Equal(t, "start", infos[0].LastNavigationRequest)
	assert.NotEmpty(t, infos[0].SavedAt)
}

// Store must satisfy the engine's persistence contract.
var _ rte.Persister = (*Store)(nil)
