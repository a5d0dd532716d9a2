package repositories

import (
	"context"
)

// TransactionManager runs a unit of work inside one database transaction.
// The transaction travels in the returned context; repository methods called
// with that context join it. The transaction commits when fn returns nil and
// rolls back otherwise.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
