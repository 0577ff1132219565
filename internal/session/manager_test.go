package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/endpoint"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store := storage.New(t.TempDir())
	return NewManager(store, endpoint.NewInvoker(nil), nil)
}

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, CreateOptions{
		BasePrompt: "summarize",
		Profile:    "local",
		Config:     testConfig("http://localhost:11434"),
	})
	require.NoError(t, err)
	assert.Len(t, sess.ID(), 26)
	assert.Equal(t, "local", sess.Profile())
	assert.Equal(t, types.SessionIdle, sess.State())

	got, err := m.Get(ctx, sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestManager_GetNotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get(context.Background(), "01JMISSINGMISSINGMISSING00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_PersistAndRevive(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir)
	srv, _ := newEndpointServer(t)

	m := NewManager(store, endpoint.NewInvoker(nil), nil)
	ctx := context.Background()

	sess, err := m.Create(ctx, CreateOptions{
		BasePrompt: "summarize",
		Profile:    "mock",
		Config:     testConfig(srv.URL),
	})
	require.NoError(t, err)
	require.NoError(t, sess.Submit(ctx, "hello", types.SubmitOptions{}))
	waitIdle(t, sess)
	require.Equal(t, "r1", sess.View().Data)

	// A fresh manager over the same data dir sees the stored session.
	m2 := NewManager(storage.New(dir), endpoint.NewInvoker(nil), nil)
	revived, err := m2.Get(ctx, sess.ID())
	require.NoError(t, err)
	assert.NotSame(t, sess, revived)
	assert.Equal(t, sess.ID(), revived.ID())
	assert.Equal(t, "summarize", revived.BasePrompt())
	assert.Equal(t, "mock", revived.Profile())
	assert.Equal(t, types.SessionIdle, revived.State())
	assert.Equal(t, "r1", revived.View().Data)
	assert.Equal(t, []string{"summarize", "", "hello"}, revived.History())

	// The revived session keeps invoking with its stored config.
	require.NoError(t, revived.Submit(ctx, "again", types.SubmitOptions{}))
	waitIdle(t, revived)
	assert.Equal(t, "r2", revived.View().Data)
}

func TestManager_ReviveClosedStaysClosed(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(storage.New(dir), endpoint.NewInvoker(nil), nil)
	ctx := context.Background()

	sess, err := m.Create(ctx, CreateOptions{BasePrompt: "base", Config: testConfig("http://localhost:1")})
	require.NoError(t, err)
	sess.Close()

	m2 := NewManager(storage.New(dir), endpoint.NewInvoker(nil), nil)
	revived, err := m2.Get(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, types.SessionClosed, revived.State())
	assert.ErrorIs(t, revived.Submit(ctx, "nope", types.SubmitOptions{}), ErrClosed)
}

func TestManager_List(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.Create(ctx, CreateOptions{BasePrompt: "one", Config: testConfig("http://localhost:1")})
	require.NoError(t, err)
	_, err = m.Create(ctx, CreateOptions{BasePrompt: "two", Config: testConfig("http://localhost:1")})
	require.NoError(t, err)

	sessions, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, m.Delete(ctx, first.ID()))

	sessions, err = m.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "two", sessions[0].BasePrompt)
}

func TestManager_Delete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, CreateOptions{BasePrompt: "base", Config: testConfig("http://localhost:1")})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, sess.ID()))
	assert.Equal(t, types.SessionClosed, sess.State())

	_, err = m.Get(ctx, sess.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice reports the missing session.
	assert.ErrorIs(t, m.Delete(ctx, sess.ID()), ErrNotFound)
}

func TestManager_CreateReadsFileContext(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("remember the milk\n"), 0o644))

	m := newTestManager(t)
	sess, err := m.Create(context.Background(), CreateOptions{
		BasePrompt: "base",
		Config:     testConfig("http://localhost:1"),
		Files:      []string{notes},
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt:\nremember the milk", sess.fileContext)
}

func TestManager_CreateUnreadableFileFails(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(context.Background(), CreateOptions{
		BasePrompt: "base",
		Config:     testConfig("http://localhost:1"),
		Files:      []string{filepath.Join(t.TempDir(), "missing.txt")},
	})
	assert.Error(t, err)
}

func TestReadFileContext_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("beta\n\n"), 0o644))

	got, err := readFileContext([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, "a.txt:\nalpha\n\nb.txt:\nbeta", got)
}

func TestReadFileContext_Empty(t *testing.T) {
	got, err := readFileContext(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
