package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/queosk/queosk/internal/domain"
)

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTransactor) WithinReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeQueueRepo struct {
	mu        sync.Mutex
	nextID    int64
	entries   map[int64]*domain.QueueEntry
	order     []int64
	markCalls int
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: map[int64]*domain.QueueEntry{}}
}

func (r *fakeQueueRepo) Create(_ context.Context, entry *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	stored := *entry
	r.entries[entry.ID] = &stored
	r.order = append(r.order, entry.ID)
	return nil
}

func (r *fakeQueueRepo) GetByID(_ context.Context, id int64) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeQueueRepo) FindLatestByUserAndRestaurant(_ context.Context, userID, restaurantID int64) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.QueueEntry
	for _, id := range r.order {
		e := r.entries[id]
		if e.UserID != userID || e.RestaurantID != restaurantID {
			continue
		}
		if latest == nil || !e.CreatedAt.Before(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, domain.ErrEntryNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeQueueRepo) FindAllByIDs(_ context.Context, ids []int64) ([]*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.QueueEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeQueueRepo) FindAllByUserID(_ context.Context, userID int64) ([]*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.QueueEntry
	for _, id := range r.order {
		if e := r.entries[id]; e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeQueueRepo) MarkDone(_ context.Context, id int64, doneAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.IsDone = true
	e.UpdatedAt = doneAt
	return nil
}

func (r *fakeQueueRepo) entry(id int64) domain.QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.entries[id]
}

type fakeRestaurantRepo struct {
	restaurants map[int64]*domain.Restaurant
	err         error
}

func newFakeRestaurantRepo(ids ...int64) *fakeRestaurantRepo {
	r := &fakeRestaurantRepo{restaurants: map[int64]*domain.Restaurant{}}
	for _, id := range ids {
		r.restaurants[id] = &domain.Restaurant{ID: id, RestaurantName: "restaurant", OperationStatus: domain.OperationStatusOpen}
	}
	return r
}

func (r *fakeRestaurantRepo) Create(_ context.Context, restaurant *domain.Restaurant) error {
	r.restaurants[restaurant.ID] = restaurant
	return nil
}

func (r *fakeRestaurantRepo) GetByID(_ context.Context, id int64) (*domain.Restaurant, error) {
	if r.err != nil {
		return nil, r.err
	}
	restaurant, ok := r.restaurants[id]
	if !ok {
		return nil, domain.ErrRestaurantNotFound
	}
	return restaurant, nil
}

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func newFakeUserRepo(ids ...int64) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int64]*domain.User{}}
	for _, id := range ids {
		r.users[id] = &domain.User{ID: id, Email: emailOf(id)}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	contacts []string
	err      error
}

func (n *recordingNotifier) NotifyNearFront(_ context.Context, contact string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, contact)
	return n.err
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.contacts...)
}

// failingLiveStore wraps a live store and fails the chosen operation.
type failingLiveStore struct {
	domain.LiveQueueStore
	failAppend bool
	failRank   bool
}

var errLiveStoreDown = errors.New("live store down")

func (s *failingLiveStore) Append(ctx context.Context, scope, id string) (int64, error) {
	if s.failAppend {
		return 0, errLiveStoreDown
	}
	return s.LiveQueueStore.Append(ctx, scope, id)
}

func (s *failingLiveStore) Rank(ctx context.Context, scope, id string) (int64, bool, error) {
	if s.failRank {
		return 0, false, errLiveStoreDown
	}
	return s.LiveQueueStore.Rank(ctx, scope, id)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func emailOf(userID int64) string {
	return "user" + idOf(userID) + "@example.com"
}
