package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	"github.com/gokatarajesh/theory-exam/internal/progress"
	"github.com/gokatarajesh/theory-exam/internal/question"
)

// memoryStore round-trips sessions through JSON like the Redis store does.
type memoryStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID][]byte
	locks     map[uuid.UUID]bool
	latest    map[uuid.UUID]uuid.UUID
	deadlines map[uuid.UUID]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions:  map[uuid.UUID][]byte{},
		locks:     map[uuid.UUID]bool{},
		latest:    map[uuid.UUID]uuid.UUID{},
		deadlines: map[uuid.UUID]time.Time{},
	}
}

func (m *memoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	return nil
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memoryStore) Lock(_ context.Context, id uuid.UUID) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] {
		return nil, ErrLockHeld
	}
	m.locks[id] = true
	return func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, id)
		return nil
	}, nil
}

func (m *memoryStore) SetLatest(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[userID] = id
	return nil
}

func (m *memoryStore) Latest(_ context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.latest[userID]
	return id, ok, nil
}

func (m *memoryStore) ScheduleDeadline(_ context.Context, id uuid.UUID, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[id] = deadline
	return nil
}

func (m *memoryStore) ClearDeadline(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, id)
	return nil
}

func (m *memoryStore) DueSessions(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, d := range m.deadlines {
		if !d.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memoryStore) scheduled(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.deadlines[id]
	return ok
}

type stubQuestions struct {
	pools map[question.Kind][]question.Question
	err   error
}

func (s *stubQuestions) ForLicenseByKind(_ context.Context, _ string, kind question.Kind) ([]question.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pools[kind], nil
}

type stubProgress struct {
	mu       sync.Mutex
	license  string
	finished int
	best     int
}

func (p *stubProgress) License(context.Context, uuid.UUID) (string, error) {
	if p.license == "" {
		return "", progress.ErrNoLicense
	}
	return p.license, nil
}

func (p *stubProgress) RecordExam(_ context.Context, _ uuid.UUID, score int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
	if score > p.best {
		p.best = score
	}
	return nil
}

type stubResults struct {
	mu    sync.Mutex
	saved []repository.ExamResult
}

func (r *stubResults) SaveResult(_ context.Context, res repository.ExamResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, res)
	return nil
}

func (r *stubResults) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]repository.ExamResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.ExamResult
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].UserID == userID {
			out = append(out, r.saved[i])
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// identityRand keeps shuffles in input order.
type identityRand struct{}

func (identityRand) IntN(n int) int { return n - 1 }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func yesNoPool(n int) []question.Question {
	out := make([]question.Question, n)
	for i := range out {
		correct := question.AnswerYes
		if i%2 == 1 {
			correct = question.AnswerNo
		}
		out[i] = question.Question{ID: int64(i + 1), Prompt: fmt.Sprintf("Pytanie %d", i+1), Correct: correct}
	}
	return out
}

func multiPool(n int) []question.Question {
	out := make([]question.Question, n)
	for i := range out {
		out[i] = question.Question{
			ID:      int64(1000 + i),
			Prompt:  fmt.Sprintf("Pytanie specjalistyczne %d", i+1),
			AnswerA: "pierwsza",
			AnswerB: "druga",
			AnswerC: "trzecia",
			Correct: "B",
			Points:  3,
		}
	}
	return out
}

type fixture struct {
	svc       *Service
	store     *memoryStore
	questions *stubQuestions
	progress  *stubProgress
	results   *stubResults
	events    *recordingPublisher
	clock     *fakeClock
	user      uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store: newMemoryStore(),
		questions: &stubQuestions{pools: map[question.Kind][]question.Question{
			question.KindYesNo:          yesNoPool(30),
			question.KindMultipleChoice: multiPool(15),
		}},
		progress: &stubProgress{license: "B"},
		results:  &stubResults{},
		events:   &recordingPublisher{},
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		user:     uuid.New(),
	}
	f.svc = NewService(f.store, f.questions, f.progress, DefaultConfig(), Options{
		Results: f.results,
		Events:  f.events,
		Rand:    identityRand{},
		Now:     f.clock.Now,
	}, zerolog.Nop())
	return f
}
