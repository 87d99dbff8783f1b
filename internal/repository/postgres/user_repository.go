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
)

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) domain.UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO users (email, nickname, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := executor(ctx, r.db).QueryRowxContext(ctx, query,
		user.Email, user.Nickname, user.Phone, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		logger.Error("Failed to create user",
			logger.String("email", user.Email),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("User created successfully",
		logger.Int64("user_id", user.ID),
		logger.String("nickname", user.Nickname),
	)

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := r.db.Rebind(`
		SELECT id, email, nickname, phone, created_at, updated_at
		FROM users WHERE id = ?
	`)

	var user domain.User
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		logger.Error("Failed to get user by ID",
			logger.Int64("user_id", id),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
