package progress

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDocs struct {
	mu      sync.Mutex
	docs    map[string]database.Document
	getErr  error
	setCall int
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string]database.Document)}
}

func (m *memDocs) Get(ctx context.Context, collection, key string) (database.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[collection+"/"+key]
	if !ok {
		return nil, database.ErrNotFound
	}
	return doc, nil
}

func (m *memDocs) Set(ctx context.Context, collection, key string, fields map[string]interface{}, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCall++
	id := collection + "/" + key
	doc := m.docs[id]
	if doc == nil || !merge {
		doc = database.Document{}
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		doc[k] = b
	}
	m.docs[id] = doc
	return nil
}

func (m *memDocs) Update(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	m.mu.Lock()
	_, ok := m.docs[collection+"/"+key]
	m.mu.Unlock()
	if !ok {
		return database.ErrNotFound
	}
	return m.Set(ctx, collection, key, fields, true)
}

func (m *memDocs) Keys(ctx context.Context, collection string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for id := range m.docs {
		if len(id) > len(collection)+1 && id[:len(collection)+1] == collection+"/" {
			keys = append(keys, id[len(collection)+1:])
		}
	}
	return keys, nil
}

func (m *memDocs) progress(t *testing.T, userID string) models.Progress {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var p models.Progress
	require.NoError(t, json.Unmarshal(m.docs[Collection+"/"+userID][Field], &p))
	return p
}

func newTestStore(docs DocumentStore) *Store {
	ps := NewPersister(DocumentWriter{Docs: docs}, time.Second, logger.Nop())
	s := NewStore(docs, ps, successorsOf, logger.Nop())
	s.now = func() time.Time { return day0 }
	return s
}

func TestStoreLoadCreatesDefault(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(docs)
	ctx := context.Background()

	p, err := s.Load(ctx, "u1", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, Default(day0), p)

	stored := docs.progress(t, "u1")
	assert.Equal(t, []string{"level1"}, stored.UnlockedLevels)
	assert.JSONEq(t, `"ana@example.com"`, string(docs.docs[Collection+"/u1"]["email"]))
}

func TestStoreLoadResetsLives(t *testing.T) {
	docs := newMemDocs()
	saved := Default(day0)
	saved.Lives = 1
	saved.TotalScore = 40
	require.NoError(t, docs.Set(context.Background(), Collection, "u1", map[string]interface{}{Field: saved}, true))

	s := newTestStore(docs)
	p, err := s.Load(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Lives)
	assert.Equal(t, 40, p.TotalScore)
}

func TestStoreLoadFailureFallsBackToDefaults(t *testing.T) {
	docs := newMemDocs()
	docs.getErr = errors.New("unavailable")
	s := newTestStore(docs)

	p, err := s.Load(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, Default(day0), p)
	assert.Equal(t, 0, docs.setCall)
}

func TestStoreMutationsPersist(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(docs)
	ctx := context.Background()

	_, err := s.UpdateScore(ctx, "u1", 25)
	require.NoError(t, err)
	_, err = s.UpdateLives(ctx, "u1", -5)
	require.NoError(t, err)
	_, err = s.CompleteLevel(ctx, "u1", "level2", 50)
	require.NoError(t, err)
	p, err := s.CompleteLevel(ctx, "u1", "level2", 50)
	require.NoError(t, err)

	assert.Equal(t, 125, p.TotalScore)
	assert.Equal(t, 0, p.Lives)
	assert.Equal(t, []string{"level2"}, p.CompletedLevels)
	assert.Equal(t, []string{"level1", "level3"}, p.UnlockedLevels)

	require.NoError(t, s.Flush(ctx, "u1"))
	assert.Equal(t, p, docs.progress(t, "u1"))

	snap, ok := s.Snapshot("u1")
	require.True(t, ok)
	assert.Equal(t, p, snap)

	p, err = s.ResetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Default(day0), p)
	require.NoError(t, s.Flush(ctx, "u1"))
	assert.Equal(t, 0, docs.progress(t, "u1").TotalScore)
}

func TestStoreSubscribe(t *testing.T) {
	s := newTestStore(newMemDocs())
	ctx := context.Background()

	ch, cancel, err := s.Subscribe(ctx, "u1")
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, 0, first.TotalScore)

	_, err = s.UpdateScore(ctx, "u1", 5)
	require.NoError(t, err)
	_, err = s.UpdateScore(ctx, "u1", 7)
	require.NoError(t, err)

	// The buffer keeps only the newest record.
	latest := <-ch
	assert.Equal(t, 12, latest.TotalScore)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestStoreExpireStreaks(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()

	stale := Default(day0.AddDate(0, 0, -5))
	stale.Streak = 4
	require.NoError(t, docs.Set(ctx, Collection, "idle", map[string]interface{}{Field: stale}, true))

	s := newTestStore(docs)
	_, err := s.UpdateScore(ctx, "active", 10)
	require.NoError(t, err)

	changed, err := s.ExpireStreaks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	require.NoError(t, s.Flush(ctx, "idle"))
	assert.Equal(t, 0, docs.progress(t, "idle").Streak)

	p, _ := s.Snapshot("active")
	assert.Equal(t, 1, p.Streak)
}

func TestStoreForget(t *testing.T) {
	s := newTestStore(newMemDocs())
	ctx := context.Background()

	_, err := s.UpdateScore(ctx, "u1", 10)
	require.NoError(t, err)
	require.NoError(t, s.Forget(ctx, "u1"))

	_, ok := s.Snapshot("u1")
	assert.False(t, ok)

	p, err := s.Load(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 10, p.TotalScore)
}

func TestStoreWithSQLiteDocuments(t *testing.T) {
	db, err := database.Connect("sqlite3", filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	docs := database.NewDocumentRepository(db)
	s := newTestStore(docs)
	ctx := context.Background()

	_, err = s.Load(ctx, "u1", "ana@example.com")
	require.NoError(t, err)
	_, err = s.CompleteLevel(ctx, "u1", "level7", 30)
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx, "u1"))

	fresh := newTestStore(docs)
	p, err := fresh.Load(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 30, p.TotalScore)
	assert.Contains(t, p.UnlockedLevels, "level8")

	doc, err := docs.Get(ctx, Collection, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `"ana@example.com"`, string(doc["email"]))
}

func TestDocumentWriterRecreatesMissingDocument(t *testing.T) {
	docs := newMemDocs()
	w := DocumentWriter{Docs: docs}
	ctx := context.Background()

	p := Default(day0)
	p.TotalScore = 12
	require.NoError(t, w.WriteProgress(ctx, "u1", p))
	assert.Equal(t, 12, docs.progress(t, "u1").TotalScore)

	require.NoError(t, docs.Set(ctx, Collection, "u1", map[string]interface{}{"email": "ana@example.com"}, true))
	p.TotalScore = 20
	require.NoError(t, w.WriteProgress(ctx, "u1", p))
	assert.Equal(t, 20, docs.progress(t, "u1").TotalScore)
	assert.Contains(t, docs.docs[Collection+"/u1"], "email")
}

// blockingDocs holds the first Get of key until release is closed
type blockingDocs struct {
	*memDocs
	key     string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingDocs) Get(ctx context.Context, collection, key string) (database.Document, error) {
	if key == b.key {
		first := false
		b.once.Do(func() { first = true })
		if first {
			close(b.entered)
			<-b.release
		}
	}
	return b.memDocs.Get(ctx, collection, key)
}

func TestStoreExpireStreaksKeepsConcurrentUpdate(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()

	stale := Default(day0.AddDate(0, 0, -5))
	stale.Streak = 4
	stale.TotalScore = 100
	require.NoError(t, docs.Set(ctx, Collection, "u1", map[string]interface{}{Field: stale}, true))

	bd := &blockingDocs{memDocs: docs, key: "u1", entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestStore(bd)

	swept := make(chan int, 1)
	go func() {
		n, _ := s.ExpireStreaks(ctx)
		swept <- n
	}()
	<-bd.entered

	updated := make(chan error, 1)
	go func() {
		_, err := s.UpdateScore(ctx, "u1", 50)
		updated <- err
	}()
	assert.Never(t, func() bool { return len(updated) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"the update must wait for the sweep to finish with the record")
	close(bd.release)

	assert.Equal(t, 1, <-swept)
	require.NoError(t, <-updated)
	require.NoError(t, s.Flush(ctx, "u1"))

	mem, ok := s.Snapshot("u1")
	require.True(t, ok)
	assert.Equal(t, 150, mem.TotalScore)
	assert.Equal(t, 150, docs.progress(t, "u1").TotalScore)
}

func TestStoreFlushAfterCloseReportsDroppedWrite(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(docs)
	ctx := context.Background()

	_, err := s.Load(ctx, "u1", "")
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx, "u1"))
	require.NoError(t, s.persister.Close(ctx))

	_, err = s.UpdateScore(ctx, "u1", 50)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Flush(ctx, "u1"), ErrPersisterClosed)
	assert.Equal(t, 0, docs.progress(t, "u1").TotalScore)
}

func TestStoreExpireStreaksDoesNotCacheIdleUsers(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()
	stale := Default(day0.AddDate(0, 0, -5))
	stale.Streak = 2
	require.NoError(t, docs.Set(ctx, Collection, "idle", map[string]interface{}{Field: stale}, true))

	s := newTestStore(docs)
	_, err := s.ExpireStreaks(ctx)
	require.NoError(t, err)

	s.mu.Lock()
	_, cached := s.users["idle"]
	s.mu.Unlock()
	assert.False(t, cached)

	p, err := s.Load(ctx, "idle", "")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Streak)
}
