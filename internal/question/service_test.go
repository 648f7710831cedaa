package question

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	"github.com/gokatarajesh/theory-exam/internal/i18n"
)

type stubStore struct {
	mu      sync.Mutex
	rows    []repository.QuestionRow
	err     error
	filters []repository.QuestionFilter
}

func (s *stubStore) List(_ context.Context, f repository.QuestionFilter) ([]repository.QuestionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	return s.rows, s.err
}

func (s *stubStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filters)
}

type memoryCache struct {
	mu     sync.Mutex
	store  map[PoolKey][]Question
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[PoolKey][]Question{}}
}

func (c *memoryCache) Get(_ context.Context, k PoolKey) ([]Question, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	qs, ok := c.store[k]
	return qs, ok, nil
}

func (c *memoryCache) Set(_ context.Context, k PoolKey, qs []Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[k] = qs
	return nil
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

func str(s string) *string { return &s }

func sampleRows() []repository.QuestionRow {
	pts := int32(2)
	return []repository.QuestionRow{
		{ID: 1, Licenses: "A,B", Prompt: "Czy wolno?", Correct: "Tak", Topic: str("Znaki drogowe"),
			Translations: map[string]repository.TranslationColumns{
				"de":  {Prompt: str("Darf man?")},
				"ua":  {},
				"eng": {},
			}},
		{ID: 2, Licenses: "B", Prompt: "Znak?", AnswerA: str("Stop"), AnswerB: str("Ustąp"), Correct: "A", Points: &pts, Media: str("a.jpg")},
	}
}

func TestFromRow(t *testing.T) {
	rows := sampleRows()

	q := FromRow(rows[0])
	assert.Equal(t, "Znaki drogowe", q.Topic)
	assert.Equal(t, KindYesNo, q.Kind())
	assert.Len(t, q.Translations, 1, "empty translations are dropped")
	assert.Equal(t, "Darf man?", q.Translations["de"].Prompt)

	q = FromRow(rows[1])
	assert.Equal(t, 2, q.Points)
	assert.Equal(t, "a.jpg", q.Media)
	assert.Nil(t, q.Translations)
}

func TestServiceUsesCache(t *testing.T) {
	store := &stubStore{rows: sampleRows()}
	cache := newMemoryCache()
	svc := NewService(store, cache, zerolog.New(io.Discard))

	first, err := svc.ForLicense(context.Background(), "B")
	require.NoError(t, err)
	second, err := svc.ForLicense(context.Background(), "B")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls())
	assert.Equal(t, repository.QuestionFilter{License: "B"}, store.filters[0])
}

func TestServiceCacheErrorFallsBackToStore(t *testing.T) {
	store := &stubStore{rows: sampleRows()}
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	svc := NewService(store, cache, zerolog.New(io.Discard))

	qs, err := svc.ForLicenseByKind(context.Background(), "B", KindYesNo)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
	assert.Equal(t, repository.PoolYesNo, store.filters[0].Kind)
}

func TestServiceStoreError(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	svc := NewService(store, nil, zerolog.New(io.Discard))

	_, err := svc.ForLicense(context.Background(), "B")
	assert.ErrorContains(t, err, "db down")
}

func TestForTopicLocalizes(t *testing.T) {
	store := &stubStore{rows: sampleRows()}
	svc := NewService(store, newMemoryCache(), zerolog.New(io.Discard))

	qs, err := svc.ForTopic(context.Background(), "B", "Znaki drogowe", i18n.German)
	require.NoError(t, err)
	assert.Equal(t, "Darf man?", qs[0].Prompt)
	assert.Equal(t, "Znak?", qs[1].Prompt)
	assert.Equal(t, "Znaki drogowe", store.filters[0].Topic)

	qs, err = svc.ForTopic(context.Background(), "B", "Znaki drogowe", i18n.Polish)
	require.NoError(t, err)
	assert.Equal(t, "Czy wolno?", qs[0].Prompt, "cached pool stays in the base language")
}

func TestWarmWorkerFillsCache(t *testing.T) {
	store := &stubStore{rows: sampleRows()}
	cache := newMemoryCache()
	svc := NewService(store, cache, zerolog.New(io.Discard))
	worker := NewWarmWorker(svc, zerolog.New(io.Discard), time.Second)

	go worker.Run()
	worker.Enqueue("C")

	assert.Eventually(t, func() bool { return cache.size() == 3 }, time.Second, 5*time.Millisecond)
	worker.Stop()
}
