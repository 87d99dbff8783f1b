package memory

import (
	"context"
	"sync"

	"github.com/queosk/queosk/internal/domain"
)

// QueueStore is a process local live queue store. Each restaurant scope has
// its own lock; the scope map lock is only held to look a scope up.
type QueueStore struct {
	mu     sync.RWMutex
	scopes map[string]*scopeQueue
}

const compactMinCap = 64

type scopeQueue struct {
	mu  sync.Mutex
	ids []string
}

var _ domain.LiveQueueStore = (*QueueStore)(nil)

// NewQueueStore creates an empty in-memory live queue store
func NewQueueStore() *QueueStore {
	return &QueueStore{scopes: make(map[string]*scopeQueue)}
}

// scope returns the queue for the scope, creating it when create is set.
func (s *QueueStore) scope(name string, create bool) *scopeQueue {
	s.mu.RLock()
	q, ok := s.scopes[name]
	s.mu.RUnlock()
	if ok || !create {
		return q
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok = s.scopes[name]; !ok {
		q = &scopeQueue{}
		s.scopes[name] = q
	}
	return q
}

func (s *QueueStore) Append(_ context.Context, scope, id string) (int64, error) {
	q := s.scope(scope, true)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return int64(len(q.ids) - 1), nil
}

func (s *QueueStore) PopFront(_ context.Context, scope string) (string, error) {
	q := s.scope(scope, false)
	if q == nil {
		return "", nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", nil
	}
	id := q.ids[0]
	q.ids[0] = ""
	q.ids = q.ids[1:]
	q.compact()
	return id, nil
}

func (s *QueueStore) ListAll(_ context.Context, scope string) ([]string, error) {
	q := s.scope(scope, false)
	if q == nil {
		return []string{}, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.ids))
	copy(out, q.ids)
	return out, nil
}

func (s *QueueStore) Remove(_ context.Context, scope, id string) error {
	q := s.scope(scope, false)
	if q == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.ids[:0]
	for _, v := range q.ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	q.ids = kept
	return nil
}

func (s *QueueStore) Rank(_ context.Context, scope, id string) (int64, bool, error) {
	q := s.scope(scope, false)
	if q == nil {
		return 0, false, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i, v := range q.ids {
		if v == id {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (s *QueueStore) Count(_ context.Context, scope string) (int64, error) {
	q := s.scope(scope, false)
	if q == nil {
		return 0, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ids)), nil
}

// compact moves the ids to a fresh array once popping has left most of the
// old one unreachable.
func (q *scopeQueue) compact() {
	if cap(q.ids) < compactMinCap || len(q.ids) > cap(q.ids)/4 {
		return
	}
	ids := make([]string, len(q.ids), 2*len(q.ids)+1)
	copy(ids, q.ids)
	q.ids = ids
}
