package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/repovault/internal/config"
	"github.com/tildaslashalef/repovault/internal/github"
	"github.com/tildaslashalef/repovault/internal/loggy"
)

// memAdapter is an in-memory storage.Adapter safe for concurrent use
type memAdapter struct {
	mu       sync.Mutex
	files    map[string][]byte
	writeErr map[string]error
	delErr   map[string]error
	writes   int
}

func newMemAdapter() *memAdapter {
	return &memAdapter{
		files:    make(map[string][]byte),
		writeErr: make(map[string]error),
		delErr:   make(map[string]error),
	}
}

func (m *memAdapter) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *memAdapter) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}

func (m *memAdapter) Write(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr[path]; err != nil {
		return err
	}
	m.files[path] = data
	m.writes++
	return nil
}

func (m *memAdapter) Delete(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.delErr[path]; err != nil {
		return false, err
	}
	_, existed := m.files[path]
	delete(m.files, path)
	return existed, nil
}

func (m *memAdapter) MkdirAll(string) error { return nil }

// fakeClient is an in-memory RemoteClient
type fakeClient struct {
	mu       sync.Mutex
	files    []github.RemoteFile
	trunc    bool
	listErr  error
	content  map[string][]byte
	fetchErr map[string]error

	listCalls  int
	fetchCalls int

	// listStarted/listRelease let a test hold a run open mid-flight
	listStarted chan struct{}
	listRelease chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		content:  make(map[string][]byte),
		fetchErr: make(map[string]error),
	}
}

func (f *fakeClient) addFile(path, sha string, data []byte) {
	f.files = append(f.files, github.RemoteFile{Path: path, SHA: sha, Size: int64(len(data))})
	f.content[path] = data
}

func (f *fakeClient) ListFiles(context.Context) ([]github.RemoteFile, string, bool, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listStarted != nil {
		f.listStarted <- struct{}{}
		<-f.listRelease
	}
	if f.listErr != nil {
		return nil, "", false, f.listErr
	}
	return f.files, "tree-root-sha", f.trunc, nil
}

func (f *fakeClient) FetchFileBytes(_ context.Context, path, _ string) ([]byte, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if err := f.fetchErr[path]; err != nil {
		return nil, err
	}
	data, ok := f.content[path]
	if !ok {
		return nil, &github.RemoteError{Op: "fetch_file", Kind: github.KindNotFound, Message: "no content"}
	}
	return data, nil
}

func (f *fakeClient) TestReachability(context.Context) bool { return f.listErr == nil }

func (f *fakeClient) QuotaStatus(context.Context) github.Quota { return github.Quota{} }

func testConfig() *config.Config {
	cfg := config.New()
	cfg.GitHub.Owner = "acme"
	cfg.GitHub.Repo = "vault"
	cfg.GitHub.Branch = "main"
	cfg.GitHub.Token = "tok"
	return cfg
}

func newTestService(client *fakeClient, adapter *memAdapter) *Service {
	store := NewStateStore(adapter, stateFile, loggy.NewNoopLogger())
	return NewService(testConfig(), client, store, adapter, nil, nil, loggy.NewNoopLogger())
}

func TestRunFirstSyncAddsEverything(t *testing.T) {
	client := newFakeClient()
	client.addFile("notes/a.md", "sha-a", []byte("A"))
	client.addFile("notes/b.md", "sha-b", []byte("B"))
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.FilesAdded)
	assert.Zero(t, result.FilesModified)
	assert.Zero(t, result.FilesDeleted)
	assert.Empty(t, result.Errors)

	assert.True(t, adapter.Exists("notes/a.md"))
	assert.True(t, adapter.Exists("notes/b.md"))

	state := svc.store.Load()
	assert.Equal(t, "sha-a", state.Files["notes/a.md"].SHA)
	assert.NotZero(t, state.LastSyncTimestamp)
	assert.Equal(t, "tree-root-sha", state.LastSyncReferenceID)
}

func TestRunModifiedAndDeleted(t *testing.T) {
	client := newFakeClient()
	client.addFile("keep.md", "sha-k2", []byte("new content"))
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	// previous sync tracked both files
	require.NoError(t, adapter.Write("keep.md", []byte("old content")))
	require.NoError(t, adapter.Write("gone.md", []byte("bye")))
	state := NewState()
	state.RecordApplied("keep.md", "sha-k1")
	state.RecordApplied("gone.md", "sha-g")
	require.NoError(t, svc.store.Save(state))

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.FilesAdded)
	assert.Equal(t, 1, result.FilesModified)
	assert.Equal(t, 1, result.FilesDeleted)

	data, err := adapter.Read("keep.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("new content"), data)
	assert.False(t, adapter.Exists("gone.md"))

	loaded := svc.store.Load()
	assert.Equal(t, "sha-k2", loaded.Files["keep.md"].SHA)
	assert.NotContains(t, loaded.Files, "gone.md")
}

func TestRunNoChangesDoesNotWrite(t *testing.T) {
	client := newFakeClient()
	client.addFile("a.md", "sha-a", []byte("A"))
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	state := NewState()
	state.RecordApplied("a.md", "sha-a")
	require.NoError(t, svc.store.Save(state))
	writesBefore := adapter.writes

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Zero(t, result.TotalChanged())
	assert.Zero(t, client.fetchCalls)
	assert.Equal(t, writesBefore, adapter.writes)
}

func TestRunDeletionOfAbsentFileCleansStateUncounted(t *testing.T) {
	client := newFakeClient()
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	// tracked in state but already missing from the vault
	state := NewState()
	state.RecordApplied("phantom.md", "sha-p")
	require.NoError(t, svc.store.Save(state))

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Zero(t, result.FilesDeleted)
	assert.NotContains(t, svc.store.Load().Files, "phantom.md")
}

func TestRunLocalOnlyFilesAreNeverTouched(t *testing.T) {
	client := newFakeClient()
	client.addFile("remote.md", "sha-r", []byte("R"))
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	// created by the user, unknown to both state and manifest
	require.NoError(t, adapter.Write("my-private-note.md", []byte("mine")))

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	data, err := adapter.Read("my-private-note.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("mine"), data)
	assert.NotContains(t, svc.store.Load().Files, "my-private-note.md")
}

func TestRunPerFileFailuresDoNotAbort(t *testing.T) {
	client := newFakeClient()
	adapter := newMemAdapter()
	for i := 0; i < 10; i++ {
		path := fmt.Sprintf("notes/n%02d.md", i)
		client.addFile(path, fmt.Sprintf("sha-%02d", i), []byte("content"))
	}
	client.fetchErr["notes/n02.md"] = errors.New("boom")
	client.fetchErr["notes/n05.md"] = errors.New("boom")
	svc := newTestService(client, adapter)
	adapter.writeErr["notes/n07.md"] = errors.New("disk full")

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Equal(t, 7, result.FilesAdded)
	require.Len(t, result.Errors, 3)
	for _, fe := range result.Errors {
		assert.Equal(t, CategoryFile, fe.Category)
	}

	// the successful files are durably tracked, the failed ones are not
	state := svc.store.Load()
	assert.Contains(t, state.Files, "notes/n00.md")
	assert.NotContains(t, state.Files, "notes/n02.md")
	assert.NotContains(t, state.Files, "notes/n05.md")
	assert.NotContains(t, state.Files, "notes/n07.md")
}

func TestRunManifestFailureAborts(t *testing.T) {
	client := newFakeClient()
	client.listErr = &github.RemoteError{Op: "list_files", Kind: github.KindAuth, Message: "bad credentials"}
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	result := svc.Run(context.Background(), RunTypeManual)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorTypeAuth, result.ErrorType)
	assert.Zero(t, adapter.writes)
	assert.False(t, adapter.Exists(stateFile))
}

func TestRunConfigMissingFailsFast(t *testing.T) {
	client := newFakeClient()
	adapter := newMemAdapter()
	store := NewStateStore(adapter, stateFile, loggy.NewNoopLogger())
	svc := NewService(config.New(), client, store, adapter, nil, nil, loggy.NewNoopLogger())

	result := svc.Run(context.Background(), RunTypeManual)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorTypeConfigMissing, result.ErrorType)
	assert.Zero(t, client.listCalls)
}

func TestRunSingleFlight(t *testing.T) {
	client := newFakeClient()
	client.addFile("a.md", "sha-a", []byte("A"))
	client.listStarted = make(chan struct{})
	client.listRelease = make(chan struct{})
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	done := make(chan *SyncResult, 1)
	go func() {
		done <- svc.Run(context.Background(), RunTypeManual)
	}()
	<-client.listStarted
	assert.True(t, svc.IsSyncing())

	second := svc.Run(context.Background(), RunTypeManual)
	assert.False(t, second.Success)
	assert.Equal(t, ErrorTypeAlreadyRunning, second.ErrorType)
	assert.Equal(t, 1, client.listCalls)

	close(client.listRelease)
	first := <-done
	assert.True(t, first.Success)
	assert.False(t, svc.IsSyncing())

	// the guard is released, a fresh run goes through
	client.listStarted = nil
	client.listRelease = nil
	third := svc.Run(context.Background(), RunTypeManual)
	assert.True(t, third.Success)
}

func TestRunTruncatedListingSkipsDeletions(t *testing.T) {
	client := newFakeClient()
	client.addFile("present.md", "sha-p", []byte("P"))
	client.trunc = true
	adapter := newMemAdapter()
	svc := newTestService(client, adapter)

	require.NoError(t, adapter.Write("missing-from-listing.md", []byte("keep me")))
	state := NewState()
	state.RecordApplied("missing-from-listing.md", "sha-m")
	require.NoError(t, svc.store.Save(state))

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Zero(t, result.FilesDeleted)
	assert.True(t, adapter.Exists("missing-from-listing.md"))
	assert.Contains(t, svc.store.Load().Files, "missing-from-listing.md")
}

func TestRunStatePersistFailureFailsRun(t *testing.T) {
	client := newFakeClient()
	client.addFile("a.md", "sha-a", []byte("A"))
	adapter := newMemAdapter()
	adapter.writeErr[stateFile] = errors.New("disk full")
	svc := newTestService(client, adapter)

	result := svc.Run(context.Background(), RunTypeManual)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorTypeStorage, result.ErrorType)
	// the applied file stays on disk even though state was not saved
	assert.True(t, adapter.Exists("a.md"))
	assert.Equal(t, 1, result.FilesAdded)
}

func TestRunLargeChangeSetBatches(t *testing.T) {
	client := newFakeClient()
	adapter := newMemAdapter()
	for i := 0; i < 35; i++ {
		path := fmt.Sprintf("n/%02d.md", i)
		client.addFile(path, fmt.Sprintf("s%02d", i), []byte("x"))
	}
	store := NewStateStore(adapter, stateFile, loggy.NewNoopLogger())
	notifier := &recordingNotifier{}
	svc := NewService(testConfig(), client, store, adapter, nil, notifier, loggy.NewNoopLogger())

	result := svc.Run(context.Background(), RunTypeManual)

	assert.True(t, result.Success)
	assert.Equal(t, 35, result.FilesAdded)
	assert.Equal(t, 35, client.fetchCalls)

	// 35 changes over batches of 10 means four progress signals
	assert.Equal(t, []int{10, 20, 30, 35}, notifier.progress)
	assert.Equal(t, 1, notifier.started)
	assert.Equal(t, 1, notifier.completed)
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   int
	completed int
	progress  []int
}

func (n *recordingNotifier) SyncStarted(RunType) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
}

func (n *recordingNotifier) SyncProgress(done, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, done)
}

func (n *recordingNotifier) SyncCompleted(*SyncResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
}

func TestRunResultTimestamps(t *testing.T) {
	client := newFakeClient()
	client.addFile("a.md", "sha-a", []byte("A"))
	svc := newTestService(client, newMemAdapter())

	before := time.Now()
	result := svc.Run(context.Background(), RunTypeManual)
	after := time.Now()

	assert.False(t, result.StartedAt.Before(before))
	assert.False(t, result.CompletedAt.After(after))
	assert.GreaterOrEqual(t, result.Duration(), time.Duration(0))
}
