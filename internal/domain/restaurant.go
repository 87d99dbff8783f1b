package domain

import (
	"context"
	"time"
)

// Restaurant is the summary of a restaurant embedded in queue views
type Restaurant struct {
	ID              int64     `json:"id" db:"id"`
	RestaurantName  string    `json:"restaurant_name" db:"restaurant_name"`
	RestaurantPhone string    `json:"restaurant_phone" db:"restaurant_phone"`
	Email           string    `json:"email" db:"email"`
	Address         string    `json:"address" db:"address"`
	Category        string    `json:"category" db:"category"`
	ImageURL        *string   `json:"image_url" db:"image_url"`
	MaxWaiting      int64     `json:"max_waiting" db:"max_waiting"`
	OperationStatus string    `json:"operation_status" db:"operation_status"`
	RatingAverage   float64   `json:"rating_average" db:"rating_average"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Restaurant operation status values
const (
	OperationStatusOpen   = "OPEN"
	OperationStatusClosed = "CLOSED"
)

// RestaurantRepository resolves restaurants for the queue coordinator.
// GetByID returns ErrRestaurantNotFound when the id does not exist.
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *Restaurant) error
	GetByID(ctx context.Context, id int64) (*Restaurant, error)
}
