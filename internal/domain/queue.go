package domain

import (
	"context"
	"time"
)

// QueueEntry is the durable record of one waiting attempt of a user at a restaurant.
// Rows are never deleted; cancelling only drops the id from the live store.
type QueueEntry struct {
	ID            int64     `json:"id" db:"id"`
	RestaurantID  int64     `json:"restaurant_id" db:"restaurant_id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	NumberOfParty int       `json:"number_of_party" db:"number_of_party"`
	IsDone        bool      `json:"is_done" db:"is_done"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Queue rules
const (
	MinPartySize = 1
	MaxPartySize = 100

	// DefaultGraceWindow is how long a served party keeps reporting index -1.
	DefaultGraceWindow = 11 * time.Minute

	// DefaultNotifyThreshold bounds which waiting entries receive the near-front push.
	DefaultNotifyThreshold = 2

	// CalledIndex is reported for an entry that was served within the grace window.
	CalledIndex int64 = -1
)

// IsValidPartySize checks the party size bounds
func IsValidPartySize(n int) bool {
	return n >= MinPartySize && n <= MaxPartySize
}

// IsRecentlyDone reports whether the entry was served less than window ago.
func (q *QueueEntry) IsRecentlyDone(now time.Time, window time.Duration) bool {
	return q.IsDone && q.UpdatedAt.Add(window).After(now)
}

// QueueCreateRequest carries the join payload
type QueueCreateRequest struct {
	NumberOfParty int `json:"number_of_party" binding:"required,min=1,max=100"`
}

// QueueIndex is the position of a user inside a restaurant queue.
// UserQueueIndex is zero based; CalledIndex marks a party that is being seated.
type QueueIndex struct {
	UserQueueIndex int64 `json:"user_queue_index"`
	QueueRemaining int64 `json:"queue_remaining"`
}

// QueueList is the ordered waiting list of a restaurant, front first.
type QueueList struct {
	Entries []*QueueEntry `json:"entries"`
}

// RestaurantQueueSummary is the cheap count-only view of a restaurant queue.
type RestaurantQueueSummary struct {
	TotalQueue int64 `json:"total_queue"`
}

// UserQueue is one active or recently served queue of a user with its restaurant.
type UserQueue struct {
	Entry          *QueueEntry `json:"entry"`
	Restaurant     *Restaurant `json:"restaurant"`
	UserQueueIndex int64       `json:"user_queue_index"`
}

// QueueEntryRepository is the durable queue store
type QueueEntryRepository interface {
	Create(ctx context.Context, entry *QueueEntry) error
	GetByID(ctx context.Context, id int64) (*QueueEntry, error)
	FindLatestByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) (*QueueEntry, error)
	FindAllByIDs(ctx context.Context, ids []int64) ([]*QueueEntry, error)
	FindAllByUserID(ctx context.Context, userID int64) ([]*QueueEntry, error)
	MarkDone(ctx context.Context, id int64, doneAt time.Time) error
}

// LiveQueueStore is the ordered, restaurant scoped index of waiting entry ids.
// Operations on one scope are linearizable; scopes do not block each other.
type LiveQueueStore interface {
	// Append returns the zero based position the id landed at.
	Append(ctx context.Context, scope, id string) (int64, error)
	// PopFront returns "" when the scope is empty.
	PopFront(ctx context.Context, scope string) (string, error)
	ListAll(ctx context.Context, scope string) ([]string, error)
	// Remove is a no-op for ids that are not present.
	Remove(ctx context.Context, scope, id string) error
	// Rank returns ok=false when the id is not in the scope.
	Rank(ctx context.Context, scope, id string) (rank int64, ok bool, err error)
	Count(ctx context.Context, scope string) (int64, error)
}

// QueueUsecase coordinates the durable and the live queue stores
type QueueUsecase interface {
	CreateQueue(ctx context.Context, req *QueueCreateRequest, userID, restaurantID int64) (*QueueIndex, error)
	GetQueueList(ctx context.Context, restaurantID int64) (*QueueList, error)
	GetQueueOfRestaurant(ctx context.Context, restaurantID int64) (*RestaurantQueueSummary, error)
	GetUserQueueNumber(ctx context.Context, restaurantID, userID int64) (*QueueIndex, error)
	PopTheFirstTeamOfQueue(ctx context.Context, restaurantID int64) error
	DeleteUserQueue(ctx context.Context, restaurantID, userID int64) error
	GetUserQueueList(ctx context.Context, userID int64) ([]*UserQueue, error)
}
