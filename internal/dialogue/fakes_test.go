package dialogue

import (
	"context"
	"errors"
	"sync"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/retrieval"
)

type memStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session
	reminders map[string][]*domain.Reminder
	history   []*domain.ChatMessage

	failReminders bool
	onGetSession  func(userID string)
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  make(map[string]domain.Session),
		reminders: make(map[string][]*domain.Reminder),
	}
}

func (s *memStore) GetSession(_ context.Context, userID string) (*domain.Session, error) {
	if s.onGetSession != nil {
		s.onGetSession(userID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *memStore) UpsertSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = *sess
	return nil
}

func (s *memStore) session(userID string) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *memStore) setSession(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
}

func (s *memStore) UpsertReminder(_ context.Context, r *domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReminders {
		return errors.New("database is locked")
	}
	list := s.reminders[r.UserID]
	for i, existing := range list {
		if existing.Name == r.Name {
			cp := *r
			list[i] = &cp
			return nil
		}
	}
	cp := *r
	s.reminders[r.UserID] = append(list, &cp)
	return nil
}

func (s *memStore) ListReminders(_ context.Context, userID string) ([]*domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Reminder(nil), s.reminders[userID]...), nil
}

func (s *memStore) reminderList(userID string) []*domain.Reminder {
	list, _ := s.ListReminders(context.Background(), userID)
	return list
}

func (s *memStore) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	return nil
}

func (s *memStore) ClearMessages(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*domain.ChatMessage
	var n int64
	for _, m := range s.history {
		if m.UserID == userID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.history = kept
	return n, nil
}

type fakeRetriever struct {
	mu              sync.Mutex
	disease         map[string]retrieval.Result
	diseaseCalls    []string
	medicationCalls []string
}

func (f *fakeRetriever) DiseaseInfo(_ context.Context, topic string) retrieval.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diseaseCalls = append(f.diseaseCalls, topic)
	if r, ok := f.disease[topic]; ok {
		return r
	}
	return retrieval.Result{Body: "I couldn't find specific information about " + topic + "."}
}

func (f *fakeRetriever) MedicationInfo(_ context.Context, topic string) retrieval.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.medicationCalls = append(f.medicationCalls, topic)
	return retrieval.Result{Body: "info about " + topic, Succeeded: true, Source: "curated"}
}

type countingObserver struct {
	mu     sync.Mutex
	turns  map[string]int
	saved  int
	resets map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{turns: map[string]int{}, resets: map[string]int{}}
}

func (o *countingObserver) ObserveTurn(input string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns[input]++
}

func (o *countingObserver) ObserveReminderSaved() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saved++
}

func (o *countingObserver) ObserveSessionReset(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets[reason]++
}
