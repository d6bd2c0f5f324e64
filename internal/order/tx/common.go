package tx

import (
	"context"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
)

type CheckoutItem struct {
	MaterialID domain.MaterialID `json:"materialId"`
	Quantity   int               `json:"quantity"`
}

type CheckoutInput struct {
	Caller          domain.Caller
	IdempotencyKey  string
	Items           []CheckoutItem
	DeliveryAddress string
	PaymentMethod   string
	Notes           string
	ClearCart       bool
}

// Tx is the set of reads and writes the order workflow performs inside one store transaction.
// Reads through Tx take the locks (postgres) or register the read set (badger) that make the
// surrounding check-then-act atomic.
type Tx interface {
	// LockMaterials returns the existing materials among ids. Missing ids are absent from the map.
	LockMaterials(ctx context.Context, ids []domain.MaterialID) (map[domain.MaterialID]domain.Material, error)
	// AdjustStock adds delta to the material quantity. It fails with ErrValidation when the result
	// would be negative and with ErrNotFound when the material no longer exists.
	AdjustStock(ctx context.Context, id domain.MaterialID, delta int) error
	LockOrder(ctx context.Context, id domain.OrderID) (domain.Order, error)
	InsertOrder(ctx context.Context, o domain.Order) error
	UpdateOrder(ctx context.Context, o domain.Order) error
	// LookupIdempotency returns the order vendorID created under key, or "" when that vendor has
	// not used the key. Keys of different vendors never collide.
	LookupIdempotency(ctx context.Context, vendorID, key string) (domain.OrderID, error)
	// SaveIdempotency fails with ErrDuplicate when vendorID already used key.
	SaveIdempotency(ctx context.Context, vendorID, key string, id domain.OrderID) error
	AppendOutbox(ctx context.Context, evt contracts.Event) error
}

// Runner executes fn inside a transaction. A conflicting concurrent commit surfaces as
// domain.ErrConflict so the caller can retry the whole function.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// OrderReader serves the non-transactional order reads.
type OrderReader interface {
	GetOrder(ctx context.Context, id domain.OrderID) (domain.Order, error)
	ListOrders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, int, error)
}

type Store interface {
	Runner
	OrderReader
}
