package progress

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/theory-exam/internal/i18n"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[uuid.UUID]map[string]string
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[uuid.UUID]map[string]string{}}
}

func (m *memoryStore) hash(id uuid.UUID) map[string]string {
	h, ok := m.data[id]
	if !ok {
		h = map[string]string{}
		m.data[id] = h
	}
	return h
}

func (m *memoryStore) All(_ context.Context, id uuid.UUID) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]string{}
	for k, v := range m.hash(id) {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.hash(id)[field]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, id uuid.UUID, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.hash(id)[field] = value
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.hash(id), f)
	}
	return nil
}

func (m *memoryStore) RecordExam(_ context.Context, id uuid.UUID, score int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hash(id)
	finished := atoiOrZero(h[FieldFinishedExams]) + 1
	best := atoiOrZero(h[FieldBestScore])
	if score > best {
		best = score
	}
	h[FieldFinishedExams] = strconv.Itoa(finished)
	h[FieldBestScore] = strconv.Itoa(best)
	return finished, best, nil
}

func newTestService(store Store, onSelect func(string)) *Service {
	return NewService(store, zerolog.New(io.Discard), onSelect)
}

func TestSelectLicense(t *testing.T) {
	store := newMemoryStore()
	var warmed []string
	svc := newTestService(store, func(l string) { warmed = append(warmed, l) })
	user := uuid.New()

	_, err := svc.License(context.Background(), user)
	assert.ErrorIs(t, err, ErrNoLicense)

	lic, err := svc.SelectLicense(context.Background(), user, "c")
	require.NoError(t, err)
	assert.Equal(t, "C", lic.Code)
	assert.Equal(t, []string{"C"}, warmed)

	got, err := svc.License(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "C", got)

	_, err = svc.SelectLicense(context.Background(), user, "Z")
	assert.ErrorIs(t, err, ErrUnknownLicense)

	require.NoError(t, svc.ClearLicense(context.Background(), user))
	_, err = svc.License(context.Background(), user)
	assert.ErrorIs(t, err, ErrNoLicense)
}

func TestLanguage(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	user := uuid.New()

	assert.Equal(t, i18n.Polish, svc.Language(context.Background(), user))

	lang, err := svc.SetLanguage(context.Background(), user, "ua")
	require.NoError(t, err)
	assert.Equal(t, i18n.Ukrainian, lang)
	assert.Equal(t, i18n.Ukrainian, svc.Language(context.Background(), user))

	_, err = svc.SetLanguage(context.Background(), user, "klingon")
	assert.ErrorIs(t, err, ErrUnknownLanguage)

	store.err = errors.New("redis down")
	assert.Equal(t, i18n.Polish, svc.Language(context.Background(), user), "read errors degrade to default")
}

func TestLearningPosition(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	user := uuid.New()

	assert.Zero(t, svc.LearningPosition(context.Background(), user, "B"))

	require.NoError(t, svc.SetLearningPosition(context.Background(), user, "B", 7))
	assert.Equal(t, 7, svc.LearningPosition(context.Background(), user, "B"))
	assert.Zero(t, svc.LearningPosition(context.Background(), user, "A"), "positions are per license")

	store.data[user][LearningField("B")] = "NaN"
	assert.Zero(t, svc.LearningPosition(context.Background(), user, "B"))
}

func TestRecordExamKeepsBest(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	user := uuid.New()

	require.NoError(t, svc.RecordExam(context.Background(), user, 50))
	require.NoError(t, svc.RecordExam(context.Background(), user, 30))
	require.NoError(t, svc.RecordExam(context.Background(), user, 60))

	st, err := svc.Stats(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 3, st.FinishedExams)
	assert.Equal(t, 60, st.BestScore)
}

func TestStatsViewedQuestions(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	user := uuid.New()

	require.NoError(t, svc.SetLearningPosition(context.Background(), user, "B", 4))
	require.NoError(t, svc.SetLearningPosition(context.Background(), user, "A", 0))
	store.data[user][LearningField("C")] = "garbage"

	st, err := svc.Stats(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, Stats{ViewedQuestions: 6}, st)
}

func TestStatsStoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	svc := newTestService(store, nil)

	_, err := svc.Stats(context.Background(), uuid.New())
	assert.Error(t, err)
}
