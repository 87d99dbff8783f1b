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

type restaurantRepository struct {
	db *sqlx.DB
}

// NewRestaurantRepository creates a new restaurant repository
func NewRestaurantRepository(db *sqlx.DB) domain.RestaurantRepository {
	return &restaurantRepository{db: db}
}

// Create creates a new restaurant
func (r *restaurantRepository) Create(ctx context.Context, restaurant *domain.Restaurant) error {
	now := time.Now().UTC()
	restaurant.CreatedAt = now
	restaurant.UpdatedAt = now
	if restaurant.OperationStatus == "" {
		restaurant.OperationStatus = domain.OperationStatusClosed
	}

	query := r.db.Rebind(`
		INSERT INTO restaurants (restaurant_name, restaurant_phone, email, address, category,
			image_url, max_waiting, operation_status, rating_average, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := executor(ctx, r.db).QueryRowxContext(ctx, query,
		restaurant.RestaurantName, restaurant.RestaurantPhone, restaurant.Email,
		restaurant.Address, restaurant.Category, restaurant.ImageURL,
		restaurant.MaxWaiting, restaurant.OperationStatus, restaurant.RatingAverage,
		restaurant.CreatedAt, restaurant.UpdatedAt,
	).Scan(&restaurant.ID)
	if err != nil {
		logger.Error("Failed to create restaurant",
			logger.String("restaurant_name", restaurant.RestaurantName),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to create restaurant: %w", err)
	}

	logger.Info("Restaurant created successfully",
		logger.Int64("restaurant_id", restaurant.ID),
		logger.String("restaurant_name", restaurant.RestaurantName),
	)

	return nil
}

// GetByID retrieves a restaurant by ID
func (r *restaurantRepository) GetByID(ctx context.Context, id int64) (*domain.Restaurant, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("select", "restaurants", time.Since(start).Seconds())
	}()

	query := r.db.Rebind(`
		SELECT id, restaurant_name, restaurant_phone, email, address, category,
			image_url, max_waiting, operation_status, rating_average,
			created_at, updated_at
		FROM restaurants WHERE id = ?
	`)

	var restaurant domain.Restaurant
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &restaurant, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRestaurantNotFound
		}
		logger.Error("Failed to get restaurant by ID",
			logger.Int64("restaurant_id", id),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}

	return &restaurant, nil
}
