package domain

import "errors"

// Queue errors returned to callers
var (
	ErrInvalidRestaurant  = errors.New("invalid restaurant")
	ErrQueueAlreadyExists = errors.New("queue already exists")
	ErrQueueNotFound      = errors.New("queue does not exist")
	ErrInvalidPartySize   = errors.New("number of party must be between 1 and 100")
)

// Repository lookup errors
var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEntryNotFound      = errors.New("queue entry not found")
)
