package server

import (
	"context"
	"sync"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/pkg/activity"
)

type memStore struct {
	mu      sync.RWMutex
	granted bool
	answer  bool
	data    []activity.Summary
}

func newMemStore(answer bool) *memStore {
	return &memStore{answer: answer}
}

func (m *memStore) RequestAuthorization(context.Context, []healthstore.Category) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted = m.answer
	return m.answer, nil
}

func (m *memStore) ActivitySummaries(_ context.Context, days activity.DayRange) ([]activity.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []activity.Summary{}
	if !m.granted {
		return out, nil
	}
	for _, s := range m.data {
		if d, ok := s.Components.Date(); ok && days.Contains(d) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) PutSummaries(_ context.Context, sums []activity.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range sums {
		if d, ok := s.Components.Date(); !ok || d.Year < 1 || d.Year > 9999 {
			return healthstore.ErrIncompleteDate
		}
	}

	m.data = append(m.data, sums...)
	return nil
}

func (m *memStore) Close() error {
	return nil
}

var _ healthstore.Store = (*memStore)(nil)
var _ Importer = (*memStore)(nil)
