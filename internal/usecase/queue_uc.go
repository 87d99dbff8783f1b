package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/metrics"
)

// QueueOptions tunes the waiting queue rules
type QueueOptions struct {
	GraceWindow     time.Duration
	NotifyThreshold int64
	// NotifyByRank compares the threshold against queue position instead of entry id.
	NotifyByRank bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type queueUsecase struct {
	transactor     domain.Transactor
	queueRepo      domain.QueueEntryRepository
	liveStore      domain.LiveQueueStore
	restaurantRepo domain.RestaurantRepository
	userRepo       domain.UserRepository
	notifier       domain.NotificationGateway
	opts           QueueOptions
}

// NewQueueUsecase creates a new queue use case
func NewQueueUsecase(
	transactor domain.Transactor,
	queueRepo domain.QueueEntryRepository,
	liveStore domain.LiveQueueStore,
	restaurantRepo domain.RestaurantRepository,
	userRepo domain.UserRepository,
	notifier domain.NotificationGateway,
	opts QueueOptions,
) domain.QueueUsecase {
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = domain.DefaultGraceWindow
	}
	if opts.NotifyThreshold <= 0 {
		opts.NotifyThreshold = domain.DefaultNotifyThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &queueUsecase{
		transactor:     transactor,
		queueRepo:      queueRepo,
		liveStore:      liveStore,
		restaurantRepo: restaurantRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		opts:           opts,
	}
}

// CreateQueue registers the user in the restaurant's waiting queue and
// returns the position the new entry was appended at.
func (uc *queueUsecase) CreateQueue(ctx context.Context, req *domain.QueueCreateRequest, userID, restaurantID int64) (index *domain.QueueIndex, err error) {
	defer uc.record("create", time.Now(), &err)

	if req == nil || !domain.IsValidPartySize(req.NumberOfParty) {
		return nil, domain.ErrInvalidPartySize
	}

	scope := scopeOf(restaurantID)

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := uc.restaurantRepo.GetByID(ctx, restaurantID); err != nil {
			if errors.Is(err, domain.ErrRestaurantNotFound) {
				return domain.ErrInvalidRestaurant
			}
			return fmt.Errorf("failed to get restaurant: %w", err)
		}

		if err := uc.checkNotWaiting(ctx, scope, userID, restaurantID); err != nil {
			return err
		}

		now := uc.now()
		entry := &domain.QueueEntry{
			RestaurantID:  restaurantID,
			UserID:        userID,
			NumberOfParty: req.NumberOfParty,
			IsDone:        false,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := uc.queueRepo.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to save queue entry: %w", err)
		}

		// A failed append rolls the insert back with the transaction.
		position, err := uc.liveStore.Append(ctx, scope, idOf(entry.ID))
		if err != nil {
			logger.Error("Failed to append queue entry to live store",
				logger.Int64("queue_id", entry.ID),
				logger.Int64("restaurant_id", restaurantID),
				logger.ErrorField(err),
			)
			return fmt.Errorf("failed to append queue entry: %w", err)
		}
		index = &domain.QueueIndex{UserQueueIndex: position, QueueRemaining: position}

		logger.Info("User joined queue",
			logger.Int64("queue_id", entry.ID),
			logger.Int64("user_id", userID),
			logger.Int64("restaurant_id", restaurantID),
			logger.Int("number_of_party", req.NumberOfParty),
		)
		metrics.ObservePartySize(req.NumberOfParty)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.refreshQueueSize(ctx, scope)
	return index, nil
}

// GetQueueList returns the waiting entries of a restaurant, front first
func (uc *queueUsecase) GetQueueList(ctx context.Context, restaurantID int64) (*domain.QueueList, error) {
	list := &domain.QueueList{Entries: []*domain.QueueEntry{}}

	err := uc.transactor.WithinReadOnlyTransaction(ctx, func(ctx context.Context) error {
		entries, err := uc.resolveLive(ctx, scopeOf(restaurantID))
		if err != nil {
			return err
		}
		list.Entries = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// GetQueueOfRestaurant returns the number of waiting teams
func (uc *queueUsecase) GetQueueOfRestaurant(ctx context.Context, restaurantID int64) (*domain.RestaurantQueueSummary, error) {
	scope := scopeOf(restaurantID)

	total, err := uc.liveStore.Count(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count queue: %w", err)
	}
	metrics.SetQueueSize(scope, float64(total))

	return &domain.RestaurantQueueSummary{TotalQueue: total}, nil
}

// GetUserQueueNumber returns the user's zero based position, or CalledIndex
// while a served party is inside the grace window
func (uc *queueUsecase) GetUserQueueNumber(ctx context.Context, restaurantID, userID int64) (*domain.QueueIndex, error) {
	var index *domain.QueueIndex

	err := uc.transactor.WithinReadOnlyTransaction(ctx, func(ctx context.Context) error {
		entry, err := uc.latestEntry(ctx, userID, restaurantID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrQueueNotFound
		}

		rank, ok, err := uc.liveStore.Rank(ctx, scopeOf(restaurantID), idOf(entry.ID))
		if err != nil {
			return fmt.Errorf("failed to get queue rank: %w", err)
		}
		if ok {
			index = &domain.QueueIndex{UserQueueIndex: rank, QueueRemaining: rank}
			return nil
		}

		if entry.IsRecentlyDone(uc.now(), uc.opts.GraceWindow) {
			index = &domain.QueueIndex{UserQueueIndex: domain.CalledIndex}
			return nil
		}

		return domain.ErrQueueNotFound
	})
	if err != nil {
		return nil, err
	}

	return index, nil
}

// PopTheFirstTeamOfQueue serves the front team and notifies the teams near the front
func (uc *queueUsecase) PopTheFirstTeamOfQueue(ctx context.Context, restaurantID int64) (err error) {
	defer uc.record("pop", time.Now(), &err)

	scope := scopeOf(restaurantID)
	var waiting []*domain.QueueEntry

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		popped, err := uc.liveStore.PopFront(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to pop queue: %w", err)
		}

		if popped != "" {
			if err := uc.markDone(ctx, restaurantID, popped); err != nil {
				return err
			}
		}

		waiting, err = uc.resolveLive(ctx, scope)
		return err
	})
	if err != nil {
		return err
	}

	uc.refreshQueueSize(ctx, scope)

	for rank, entry := range waiting {
		if uc.shouldNotify(entry, int64(rank)) {
			uc.notifyUser(ctx, entry)
		}
	}

	return nil
}

// DeleteUserQueue drops the user's latest entry from the live queue
func (uc *queueUsecase) DeleteUserQueue(ctx context.Context, restaurantID, userID int64) (err error) {
	defer uc.record("delete", time.Now(), &err)

	scope := scopeOf(restaurantID)

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := uc.latestEntry(ctx, userID, restaurantID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrQueueNotFound
		}

		if err := uc.liveStore.Remove(ctx, scope, idOf(entry.ID)); err != nil {
			return fmt.Errorf("failed to remove queue entry: %w", err)
		}

		logger.Info("User left queue",
			logger.Int64("queue_id", entry.ID),
			logger.Int64("user_id", userID),
			logger.Int64("restaurant_id", restaurantID),
		)
		return nil
	})
	if err != nil {
		return err
	}

	uc.refreshQueueSize(ctx, scope)
	return nil
}

// GetUserQueueList returns every live or recently served queue of the user
func (uc *queueUsecase) GetUserQueueList(ctx context.Context, userID int64) ([]*domain.UserQueue, error) {
	result := []*domain.UserQueue{}

	err := uc.transactor.WithinReadOnlyTransaction(ctx, func(ctx context.Context) error {
		entries, err := uc.queueRepo.FindAllByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user queues: %w", err)
		}

		now := uc.now()
		for _, entry := range entries {
			rank, ok, err := uc.liveStore.Rank(ctx, scopeOf(entry.RestaurantID), idOf(entry.ID))
			if err != nil {
				return fmt.Errorf("failed to get queue rank: %w", err)
			}
			if !ok {
				if !entry.IsRecentlyDone(now, uc.opts.GraceWindow) {
					continue
				}
				rank = domain.CalledIndex
			}

			restaurant, err := uc.restaurantRepo.GetByID(ctx, entry.RestaurantID)
			if err != nil {
				if errors.Is(err, domain.ErrRestaurantNotFound) {
					continue
				}
				return fmt.Errorf("failed to get restaurant: %w", err)
			}

			result = append(result, &domain.UserQueue{
				Entry:          entry,
				Restaurant:     restaurant,
				UserQueueIndex: rank,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *queueUsecase) checkNotWaiting(ctx context.Context, scope string, userID, restaurantID int64) error {
	latest, err := uc.latestEntry(ctx, userID, restaurantID)
	if err != nil || latest == nil {
		return err
	}

	_, waiting, err := uc.liveStore.Rank(ctx, scope, idOf(latest.ID))
	if err != nil {
		return fmt.Errorf("failed to check live queue: %w", err)
	}
	if waiting {
		return domain.ErrQueueAlreadyExists
	}
	return nil
}

// latestEntry returns nil without error when the pair has no history.
func (uc *queueUsecase) latestEntry(ctx context.Context, userID, restaurantID int64) (*domain.QueueEntry, error) {
	entry, err := uc.queueRepo.FindLatestByUserAndRestaurant(ctx, userID, restaurantID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest queue entry: %w", err)
	}
	return entry, nil
}

func (uc *queueUsecase) markDone(ctx context.Context, restaurantID int64, popped string) error {
	id, err := strconv.ParseInt(popped, 10, 64)
	if err != nil {
		logger.Warn("Popped malformed queue id",
			logger.String("queue_id", popped),
			logger.Int64("restaurant_id", restaurantID),
		)
		return nil
	}

	err = uc.queueRepo.MarkDone(ctx, id, uc.now())
	if errors.Is(err, domain.ErrEntryNotFound) {
		logger.Warn("Popped queue id has no durable entry",
			logger.Int64("queue_id", id),
			logger.Int64("restaurant_id", restaurantID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark queue entry done: %w", err)
	}

	logger.Info("Queue entry served",
		logger.Int64("queue_id", id),
		logger.Int64("restaurant_id", restaurantID),
	)
	return nil
}

// resolveLive maps the live ids of scope to durable entries in live order.
// Ids without a durable entry are skipped.
func (uc *queueUsecase) resolveLive(ctx context.Context, scope string) ([]*domain.QueueEntry, error) {
	raw, err := uc.liveStore.ListAll(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			logger.Warn("Skipping malformed queue id",
				logger.String("queue_id", s),
				logger.String("scope", scope),
			)
			continue
		}
		ids = append(ids, id)
	}

	found, err := uc.queueRepo.FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue entries: %w", err)
	}

	byID := make(map[int64]*domain.QueueEntry, len(found))
	for _, entry := range found {
		byID[entry.ID] = entry
	}

	entries := make([]*domain.QueueEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := byID[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// shouldNotify applies the near-front threshold. By default it compares the
// entry id, which is what deployed clients rely on; NotifyByRank compares the
// position instead.
func (uc *queueUsecase) shouldNotify(entry *domain.QueueEntry, rank int64) bool {
	byID := entry.ID <= uc.opts.NotifyThreshold
	byRank := rank < uc.opts.NotifyThreshold

	if uc.opts.NotifyByRank {
		return byRank
	}

	if byID != byRank {
		logger.Warn("Near-front check differs between entry id and queue position",
			logger.Int64("queue_id", entry.ID),
			logger.Int64("rank", rank),
			logger.Bool("notify_by_id", byID),
			logger.Bool("notify_by_rank", byRank),
		)
	}
	return byID
}

func (uc *queueUsecase) notifyUser(ctx context.Context, entry *domain.QueueEntry) {
	user, err := uc.userRepo.GetByID(ctx, entry.UserID)
	if err != nil {
		logger.Warn("Skipping near-front notification, user not resolvable",
			logger.Int64("user_id", entry.UserID),
			logger.ErrorField(err),
		)
		return
	}

	if err := uc.notifier.NotifyNearFront(ctx, user.Email); err != nil {
		logger.Error("Failed to send near-front notification",
			logger.Int64("queue_id", entry.ID),
			logger.Int64("user_id", entry.UserID),
			logger.ErrorField(err),
		)
		return
	}

	logger.Info("Near-front notification sent",
		logger.Int64("queue_id", entry.ID),
		logger.Int64("user_id", entry.UserID),
	)
}

func (uc *queueUsecase) refreshQueueSize(ctx context.Context, scope string) {
	total, err := uc.liveStore.Count(ctx, scope)
	if err != nil {
		logger.Warn("Failed to refresh queue size metric",
			logger.String("scope", scope),
			logger.ErrorField(err),
		)
		return
	}
	metrics.SetQueueSize(scope, float64(total))
}

func (uc *queueUsecase) record(operation string, start time.Time, err *error) {
	result := "success"
	switch {
	case *err == nil:
	case errors.Is(*err, domain.ErrQueueAlreadyExists),
		errors.Is(*err, domain.ErrQueueNotFound),
		errors.Is(*err, domain.ErrInvalidRestaurant),
		errors.Is(*err, domain.ErrInvalidPartySize):
		result = "rejected"
	default:
		result = "error"
		metrics.RecordSystemError("queue_"+operation, "queue_usecase")
	}
	metrics.RecordQueueOperation(operation, result, time.Since(start).Seconds())
}

func (uc *queueUsecase) now() time.Time {
	return uc.opts.Now().UTC()
}

func scopeOf(restaurantID int64) string {
	return strconv.FormatInt(restaurantID, 10)
}

func idOf(entryID int64) string {
	return strconv.FormatInt(entryID, 10)
}
