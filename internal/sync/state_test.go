package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/repovault/internal/github"
	"github.com/tildaslashalef/repovault/internal/loggy"
)

const stateFile = "state.json"

func newTestStore(adapter *memAdapter) *StateStore {
	return NewStateStore(adapter, stateFile, loggy.NewNoopLogger())
}

func TestLoadFreshOnFirstRun(t *testing.T) {
	store := newTestStore(newMemAdapter())

	state := store.Load()
	require.NotNil(t, state)
	assert.Zero(t, state.LastSyncTimestamp)
	assert.Empty(t, state.Files)
}

func TestLoadFreshOnCorruptDocument(t *testing.T) {
	adapter := newMemAdapter()
	require.NoError(t, adapter.Write(stateFile, []byte("{not json")))

	state := newTestStore(adapter).Load()
	require.NotNil(t, state)
	assert.Zero(t, state.LastSyncTimestamp)
	assert.Empty(t, state.Files)
}

func TestStateRoundTrip(t *testing.T) {
	adapter := newMemAdapter()
	store := newTestStore(adapter)

	state := NewState()
	state.RecordApplied("notes/a.md", "sha-a")
	state.RecordApplied("img/b.png", "sha-b")
	state.LastSyncTimestamp = 1756600000000

	require.NoError(t, store.Save(state))

	loaded := store.Load()
	assert.Equal(t, int64(1756600000000), loaded.LastSyncTimestamp)
	require.Len(t, loaded.Files, 2)
	assert.Equal(t, "sha-a", loaded.Files["notes/a.md"].SHA)
	assert.Equal(t, "sha-b", loaded.Files["img/b.png"].SHA)
}

func TestRecordRemovedIsIdempotent(t *testing.T) {
	state := NewState()
	state.RecordApplied("a.md", "sha-a")

	state.RecordRemoved("a.md")
	state.RecordRemoved("a.md")
	state.RecordRemoved("never-tracked.md")

	assert.Empty(t, state.Files)
}

func remoteFiles(pairs ...string) []github.RemoteFile {
	files := make([]github.RemoteFile, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		files = append(files, github.RemoteFile{Path: pairs[i], SHA: pairs[i+1]})
	}
	return files
}

func TestDiffClassification(t *testing.T) {
	state := NewState()
	state.RecordApplied("unchanged.md", "sha-1")
	state.RecordApplied("changed.md", "sha-2")
	state.RecordApplied("gone.md", "sha-3")

	remote := remoteFiles(
		"new.md", "sha-n",
		"unchanged.md", "sha-1",
		"changed.md", "sha-2b",
	)

	changes := Diff(state, remote)
	require.Len(t, changes, 3)
	assert.Equal(t, FileChange{Path: "new.md", SHA: "sha-n", Kind: ChangeAdded}, changes[0])
	assert.Equal(t, FileChange{Path: "changed.md", SHA: "sha-2b", Kind: ChangeModified}, changes[1])
	assert.Equal(t, FileChange{Path: "gone.md", Kind: ChangeDeleted}, changes[2])
}

func TestDiffEmptyWhenInSync(t *testing.T) {
	state := NewState()
	state.RecordApplied("a.md", "sha-a")
	state.RecordApplied("b.md", "sha-b")

	changes := Diff(state, remoteFiles("a.md", "sha-a", "b.md", "sha-b"))
	assert.Empty(t, changes)
}

func TestDiffFollowsRemoteOrder(t *testing.T) {
	state := NewState()

	remote := remoteFiles("z.md", "s1", "a.md", "s2", "m.md", "s3")
	changes := Diff(state, remote)
	require.Len(t, changes, 3)
	assert.Equal(t, "z.md", changes[0].Path)
	assert.Equal(t, "a.md", changes[1].Path)
	assert.Equal(t, "m.md", changes[2].Path)
}

func TestDiffIsIdempotent(t *testing.T) {
	state := NewState()
	state.RecordApplied("keep.md", "sha-k")
	state.RecordApplied("old.md", "sha-o")

	remote := remoteFiles("keep.md", "sha-k", "new.md", "sha-n")

	first := Diff(state, remote)
	second := Diff(state, remote)
	assert.Equal(t, first, second)

	// after applying the change set the diff against the same manifest
	// collapses to nothing
	for _, c := range first {
		switch c.Kind {
		case ChangeDeleted:
			state.RecordRemoved(c.Path)
		default:
			state.RecordApplied(c.Path, c.SHA)
		}
	}
	assert.Empty(t, Diff(state, remote))
}

func TestDiffEmptyStateAllAdded(t *testing.T) {
	changes := Diff(NewState(), remoteFiles("a.md", "s1", "b.md", "s2"))
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, ChangeAdded, c.Kind)
	}
}

func TestDiffEmptyManifestAllDeleted(t *testing.T) {
	state := NewState()
	state.RecordApplied("a.md", "s1")
	state.RecordApplied("b.md", "s2")

	changes := Diff(state, nil)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, ChangeDeleted, c.Kind)
	}
	// deleted entries come out in sorted path order
	assert.Equal(t, "a.md", changes[0].Path)
	assert.Equal(t, "b.md", changes[1].Path)
}
