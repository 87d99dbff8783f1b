package domain

import "context"

// Transactor runs fn inside one database transaction. The transaction is
// carried in the context passed to fn; repositories pick it up from there.
// It commits when fn returns nil and rolls back on error or panic.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithinReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
