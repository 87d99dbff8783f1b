package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/metrics"
)

const queueColumns = `id, restaurant_id, user_id, number_of_party, is_done, created_at, updated_at`

type queueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository creates a new durable queue repository
func NewQueueRepository(db *sqlx.DB) domain.QueueEntryRepository {
	return &queueRepository{db: db}
}

// Create inserts a new queue entry and fills its ID
func (r *queueRepository) Create(ctx context.Context, entry *domain.QueueEntry) error {
	defer observe("insert", time.Now())

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	query := r.db.Rebind(`
		INSERT INTO queues (restaurant_id, user_id, number_of_party, is_done, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := executor(ctx, r.db).QueryRowxContext(ctx, query,
		entry.RestaurantID, entry.UserID, entry.NumberOfParty,
		entry.IsDone, entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID)
	if err != nil {
		logger.Error("Failed to create queue entry",
			logger.Int64("restaurant_id", entry.RestaurantID),
			logger.Int64("user_id", entry.UserID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to create queue entry: %w", err)
	}

	logger.Info("Queue entry created",
		logger.Int64("queue_id", entry.ID),
		logger.Int64("restaurant_id", entry.RestaurantID),
		logger.Int64("user_id", entry.UserID),
	)

	return nil
}

// GetByID retrieves a queue entry by ID
func (r *queueRepository) GetByID(ctx context.Context, id int64) (*domain.QueueEntry, error) {
	defer observe("select", time.Now())

	query := r.db.Rebind(`SELECT ` + queueColumns + ` FROM queues WHERE id = ?`)

	var entry domain.QueueEntry
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &entry, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		logger.Error("Failed to get queue entry by ID",
			logger.Int64("queue_id", id),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return &entry, nil
}

// FindLatestByUserAndRestaurant returns the most recently created entry of the pair
func (r *queueRepository) FindLatestByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) (*domain.QueueEntry, error) {
	defer observe("select", time.Now())

	query := r.db.Rebind(`
		SELECT ` + queueColumns + `
		FROM queues
		WHERE user_id = ? AND restaurant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)

	var entry domain.QueueEntry
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &entry, query, userID, restaurantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		logger.Error("Failed to get latest queue entry",
			logger.Int64("user_id", userID),
			logger.Int64("restaurant_id", restaurantID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get latest queue entry: %w", err)
	}

	return &entry, nil
}

// FindAllByIDs returns the entries that exist for ids, in no particular order
func (r *queueRepository) FindAllByIDs(ctx context.Context, ids []int64) ([]*domain.QueueEntry, error) {
	if len(ids) == 0 {
		return []*domain.QueueEntry{}, nil
	}
	defer observe("select", time.Now())

	query, args, err := sqlx.In(`SELECT `+queueColumns+` FROM queues WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build queue entry query: %w", err)
	}
	query = r.db.Rebind(query)

	var entries []*domain.QueueEntry
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &entries, query, args...); err != nil {
		logger.Error("Failed to get queue entries by IDs",
			logger.Int64s("queue_ids", ids),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get queue entries: %w", err)
	}

	return entries, nil
}

// FindAllByUserID returns every entry of the user, oldest first
func (r *queueRepository) FindAllByUserID(ctx context.Context, userID int64) ([]*domain.QueueEntry, error) {
	defer observe("select", time.Now())

	query := r.db.Rebind(`SELECT ` + queueColumns + ` FROM queues WHERE user_id = ? ORDER BY id ASC`)

	var entries []*domain.QueueEntry
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &entries, query, userID); err != nil {
		logger.Error("Failed to get queue entries by user ID",
			logger.Int64("user_id", userID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get queue entries by user ID: %w", err)
	}

	return entries, nil
}

// MarkDone flags the entry as served at doneAt
func (r *queueRepository) MarkDone(ctx context.Context, id int64, doneAt time.Time) error {
	defer observe("update", time.Now())

	query := r.db.Rebind(`UPDATE queues SET is_done = ?, updated_at = ? WHERE id = ?`)

	result, err := executor(ctx, r.db).ExecContext(ctx, query, true, doneAt, id)
	if err != nil {
		logger.Error("Failed to mark queue entry done",
			logger.Int64("queue_id", id),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to mark queue entry done: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrEntryNotFound
	}

	logger.Info("Queue entry marked done", logger.Int64("queue_id", id))

	return nil
}

func observe(operation string, start time.Time) {
	metrics.RecordDBQuery(operation, "queues", time.Since(start).Seconds())
}
