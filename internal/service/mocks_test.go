package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/agent"
	"github.com/Strob0t/AgentForge/internal/domain/relationship"
	"github.com/Strob0t/AgentForge/internal/domain/schedule"
	"github.com/Strob0t/AgentForge/internal/domain/stats"
	"github.com/Strob0t/AgentForge/internal/domain/task"
	"github.com/Strob0t/AgentForge/internal/port/eventbus"
)

func timeNowUTC() time.Time { return time.Now().UTC() }

// In-memory store fakes shared by the service tests.

type fakeScheduleStore struct {
	mu    sync.Mutex
	items map[string]*schedule.Schedule
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{items: make(map[string]*schedule.Schedule)}
}

func (s *fakeScheduleStore) Create(_ context.Context, sc *schedule.Schedule) error {
	if err := sc.Pattern.Validate(); err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sc
	s.items[sc.ID] = &copied
	return nil
}

func (s *fakeScheduleStore) Get(_ context.Context, id string) (*schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *sc
	return &copied, nil
}

func (s *fakeScheduleStore) Update(_ context.Context, sc *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[sc.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *sc
	s.items[sc.ID] = &copied
	return nil
}

func (s *fakeScheduleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if sc.Source == schedule.SourceSystem {
		return domain.ErrSystemSchedule
	}
	delete(s.items, id)
	return nil
}

func (s *fakeScheduleStore) ForceDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *fakeScheduleStore) List(_ context.Context) ([]schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schedule.Schedule, 0, len(s.items))
	for _, sc := range s.items {
		out = append(out, *sc)
	}
	return out, nil
}

type fakeTaskStore struct {
	mu    sync.Mutex
	items map[string]*task.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{items: make(map[string]*task.Task)}
}

func (s *fakeTaskStore) Create(_ context.Context, req task.CreateRequest) (*task.Task, error) {
	t := &task.Task{
		ID:          uuid.NewString(),
		Title:       task.DeriveTitle(req.Title, req.Description),
		Description: req.Description,
		Status:      task.StatusPending,
		Priority:    req.Priority,
		CreatedBy:   req.CreatedBy,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *t
	s.items[t.ID] = &copied
	return t, nil
}

func (s *fakeTaskStore) Get(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *fakeTaskStore) Update(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[t.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *t
	s.items[t.ID] = &copied
	return nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *fakeTaskStore) List(_ context.Context, filter task.Filter) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]task.Task, 0, len(s.items))
	for _, t := range s.items {
		if filter.Matches(t) {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles []agent.Profile
}

func (s *fakeProfileStore) Create(_ context.Context, p *agent.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, *p)
	return nil
}

func (s *fakeProfileStore) Get(_ context.Context, id string) (*agent.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			copied := s.profiles[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeProfileStore) Update(_ context.Context, p *agent.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == p.ID {
			s.profiles[i] = *p
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *fakeProfileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *fakeProfileStore) List(_ context.Context) ([]agent.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agent.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}

type fakeStatsStore struct {
	mu    sync.Mutex
	items map[string]*stats.AgentStats
}

func newFakeStatsStore() *fakeStatsStore {
	return &fakeStatsStore{items: make(map[string]*stats.AgentStats)}
}

func (s *fakeStatsStore) Get(_ context.Context, agentID string) (*stats.AgentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[agentID]
	if !ok {
		return &stats.AgentStats{AgentID: agentID}, nil
	}
	copied := *st
	return &copied, nil
}

func (s *fakeStatsStore) Update(_ context.Context, st *stats.AgentStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *st
	s.items[st.AgentID] = &copied
	return nil
}

func (s *fakeStatsStore) IncrementTokens(_ context.Context, agentID string, in, out int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensure(agentID)
	st.AddTokens(in, out)
	return nil
}

func (s *fakeStatsStore) RecordExecution(ctx context.Context, agentID string, success bool, durationMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensure(agentID)
	st.RecordExecution(success, durationMs, timeNowUTC())
	return nil
}

func (s *fakeStatsStore) ensure(agentID string) *stats.AgentStats {
	st, ok := s.items[agentID]
	if !ok {
		st = &stats.AgentStats{AgentID: agentID}
		s.items[agentID] = st
	}
	return st
}

type fakeRelationshipStore struct {
	mu    sync.Mutex
	items map[string]*relationship.Relationship
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{items: make(map[string]*relationship.Relationship)}
}

func relKey(sourceID, targetID string) string { return sourceID + "\x00" + targetID }

func (s *fakeRelationshipStore) Get(_ context.Context, sourceID, targetID string) (*relationship.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[relKey(sourceID, targetID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *fakeRelationshipStore) Set(_ context.Context, r *relationship.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.items[relKey(r.SourceAgentID, r.TargetAgentID)] = &copied
	return nil
}

func (s *fakeRelationshipStore) GetAll(_ context.Context, sourceID string) ([]relationship.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []relationship.Relationship
	for _, r := range s.items {
		if r.SourceAgentID == sourceID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeRelationshipStore) UpdateTrust(_ context.Context, sourceID, targetID string, outcome, weight float64) (*relationship.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := relKey(sourceID, targetID)
	r, ok := s.items[key]
	if !ok {
		r = relationship.New(sourceID, targetID)
		s.items[key] = r
	}
	r.ApplyOutcome(outcome, weight, timeNowUTC())
	copied := *r
	return &copied, nil
}

// recordingBus captures published events for assertions and delivers them
// synchronously to subscribers.
type recordingBus struct {
	mu       sync.Mutex
	events   []busEvent
	handlers map[string][]eventbus.Handler
}

type busEvent struct {
	subject string
	data    []byte
}

func newRecordingBus() *recordingBus {
	return &recordingBus{handlers: make(map[string][]eventbus.Handler)}
}

func (b *recordingBus) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.Lock()
	b.events = append(b.events, busEvent{subject: subject, data: data})
	handlers := append([]eventbus.Handler(nil), b.handlers[subject]...)
	b.mu.Unlock()

	for _, h := range handlers {
		_ = h(ctx, subject, data)
	}
	return nil
}

func (b *recordingBus) Subscribe(_ context.Context, subject string, handler eventbus.Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = append(b.handlers[subject], handler)
	return func() {}, nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published(subject string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]byte
	for _, e := range b.events {
		if e.subject == subject {
			out = append(out, e.data)
		}
	}
	return out
}
