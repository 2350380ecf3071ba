package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// ErrDuplicate is returned by Insert* when the key is already taken.
var ErrDuplicate = errors.New("store: duplicate key")

// Get* methods return (nil, nil) when the entity does not exist; callers
// translate that into a domain not-found error.
//
// Swap*Status methods are the compare-and-swap primitive every bulk
// transition relies on: they flip the status only if the current status
// still matches `from`, and report whether the swap happened. Secondary
// indexes are maintained atomically with the primary insert.

// RequestStore owns RFQRequest records and the user secondary index.
type RequestStore interface {
	InsertRequest(ctx context.Context, req *model.RFQRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*model.RFQRequest, error)
	ListRequests(ctx context.Context) ([]*model.RFQRequest, error)
	ListRequestsByUser(ctx context.Context, userAddress string) ([]*model.RFQRequest, error)
	UpdateRequest(ctx context.Context, req *model.RFQRequest) error
	SwapRequestStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus) (bool, error)
	CountOpenRequests(ctx context.Context, userAddress string) (int, error)
}

// QuoteStore owns RFQQuote records and the request secondary index.
type QuoteStore interface {
	InsertQuote(ctx context.Context, q *model.RFQQuote) error
	GetQuote(ctx context.Context, id uuid.UUID) (*model.RFQQuote, error)
	ListQuotes(ctx context.Context) ([]*model.RFQQuote, error)
	ListQuotesByRequest(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error)
	UpdateQuote(ctx context.Context, q *model.RFQQuote) error
	SwapQuoteStatus(ctx context.Context, id uuid.UUID, from, to model.QuoteStatus) (bool, error)
}

// ExecutionStore owns RFQExecution records, keyed by execution ID with a
// unique index on the quote ID.
type ExecutionStore interface {
	InsertExecution(ctx context.Context, e *model.RFQExecution) error
	GetExecution(ctx context.Context, id uuid.UUID) (*model.RFQExecution, error)
	GetExecutionByQuote(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error)
	UpdateExecution(ctx context.Context, e *model.RFQExecution) error
	SwapExecutionStatus(ctx context.Context, id uuid.UUID, from, to model.ExecutionStatus) (bool, error)
}

// OrderStore owns off-chain orders for the orderbook index.
type OrderStore interface {
	InsertOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context) ([]*model.Order, error)
	UpdateOrder(ctx context.Context, o *model.Order) error
	SwapOrderStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)
}

// ResolverStore owns resolver bots, keyed by address.
type ResolverStore interface {
	InsertResolver(ctx context.Context, b *model.ResolverBot) error
	GetResolver(ctx context.Context, address string) (*model.ResolverBot, error)
	ListResolvers(ctx context.Context) ([]*model.ResolverBot, error)
	UpdateResolver(ctx context.Context, b *model.ResolverBot) error
	DeleteResolver(ctx context.Context, address string) error
}

// PredicateStore owns price predicates. SwapPredicate writes the full
// record only while the stored status still matches `from`; a validation
// refresh uses it so a concurrent cancel or expiry is never overwritten.
type PredicateStore interface {
	InsertPredicate(ctx context.Context, p *model.Predicate) error
	GetPredicate(ctx context.Context, id uuid.UUID) (*model.Predicate, error)
	ListPredicates(ctx context.Context) ([]*model.Predicate, error)
	UpdatePredicate(ctx context.Context, p *model.Predicate) error
	SwapPredicate(ctx context.Context, p *model.Predicate, from model.PredicateStatus) (bool, error)
	SwapPredicateStatus(ctx context.Context, id uuid.UUID, from, to model.PredicateStatus) (bool, error)
}

// Store is the full persistence contract consumed by the engine wiring.
type Store interface {
	RequestStore
	QuoteStore
	ExecutionStore
	OrderStore
	ResolverStore
	PredicateStore

	HealthCheck(ctx context.Context) error
	Close() error
}
