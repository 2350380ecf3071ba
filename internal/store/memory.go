package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// Memory is the in-memory Store used by tests and single-node deploys.
// One mutex per entity family; secondary indexes are updated under the
// same lock as the primary insert. All reads return clones so callers
// never share mutable state with the store.
type Memory struct {
	requests   requestMaps
	quotes     quoteMaps
	executions executionMaps
	orders     orderMaps
	resolvers  resolverMaps
	predicates predicateMaps
}

type requestMaps struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*model.RFQRequest
	byUser map[string][]uuid.UUID
}

type quoteMaps struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*model.RFQQuote
	byRequest map[uuid.UUID][]uuid.UUID
}

type executionMaps struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*model.RFQExecution
	byQuote map[uuid.UUID]uuid.UUID
}

type orderMaps struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*model.Order
}

type resolverMaps struct {
	mu        sync.RWMutex
	byAddress map[string]*model.ResolverBot
}

type predicateMaps struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*model.Predicate
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		requests: requestMaps{
			byID:   make(map[uuid.UUID]*model.RFQRequest),
			byUser: make(map[string][]uuid.UUID),
		},
		quotes: quoteMaps{
			byID:      make(map[uuid.UUID]*model.RFQQuote),
			byRequest: make(map[uuid.UUID][]uuid.UUID),
		},
		executions: executionMaps{
			byID:    make(map[uuid.UUID]*model.RFQExecution),
			byQuote: make(map[uuid.UUID]uuid.UUID),
		},
		orders:     orderMaps{byID: make(map[uuid.UUID]*model.Order)},
		resolvers:  resolverMaps{byAddress: make(map[string]*model.ResolverBot)},
		predicates: predicateMaps{byID: make(map[uuid.UUID]*model.Predicate)},
	}
}

// --- requests ---

func (m *Memory) InsertRequest(_ context.Context, req *model.RFQRequest) error {
	m.requests.mu.Lock()
	defer m.requests.mu.Unlock()
	if _, ok := m.requests.byID[req.ID]; ok {
		return ErrDuplicate
	}
	m.requests.byID[req.ID] = req.Clone()
	m.requests.byUser[req.UserAddress] = append(m.requests.byUser[req.UserAddress], req.ID)
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id uuid.UUID) (*model.RFQRequest, error) {
	m.requests.mu.RLock()
	defer m.requests.mu.RUnlock()
	req, ok := m.requests.byID[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (m *Memory) ListRequests(_ context.Context) ([]*model.RFQRequest, error) {
	m.requests.mu.RLock()
	defer m.requests.mu.RUnlock()
	out := make([]*model.RFQRequest, 0, len(m.requests.byID))
	for _, req := range m.requests.byID {
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListRequestsByUser(_ context.Context, userAddress string) ([]*model.RFQRequest, error) {
	m.requests.mu.RLock()
	defer m.requests.mu.RUnlock()
	ids := m.requests.byUser[userAddress]
	out := make([]*model.RFQRequest, 0, len(ids))
	for _, id := range ids {
		if req, ok := m.requests.byID[id]; ok {
			out = append(out, req.Clone())
		}
	}
	return out, nil
}

func (m *Memory) UpdateRequest(_ context.Context, req *model.RFQRequest) error {
	m.requests.mu.Lock()
	defer m.requests.mu.Unlock()
	if _, ok := m.requests.byID[req.ID]; !ok {
		return errNotStored("request", req.ID.String())
	}
	m.requests.byID[req.ID] = req.Clone()
	return nil
}

func (m *Memory) SwapRequestStatus(_ context.Context, id uuid.UUID, from, to model.RequestStatus) (bool, error) {
	m.requests.mu.Lock()
	defer m.requests.mu.Unlock()
	req, ok := m.requests.byID[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	req.UpdatedAt = nowUTC()
	return true, nil
}

func (m *Memory) CountOpenRequests(_ context.Context, userAddress string) (int, error) {
	m.requests.mu.RLock()
	defer m.requests.mu.RUnlock()
	count := 0
	for _, id := range m.requests.byUser[userAddress] {
		if req, ok := m.requests.byID[id]; ok && !req.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

// --- quotes ---

func (m *Memory) InsertQuote(_ context.Context, q *model.RFQQuote) error {
	m.quotes.mu.Lock()
	defer m.quotes.mu.Unlock()
	if _, ok := m.quotes.byID[q.ID]; ok {
		return ErrDuplicate
	}
	m.quotes.byID[q.ID] = q.Clone()
	m.quotes.byRequest[q.RequestID] = append(m.quotes.byRequest[q.RequestID], q.ID)
	return nil
}

func (m *Memory) GetQuote(_ context.Context, id uuid.UUID) (*model.RFQQuote, error) {
	m.quotes.mu.RLock()
	defer m.quotes.mu.RUnlock()
	q, ok := m.quotes.byID[id]
	if !ok {
		return nil, nil
	}
	return q.Clone(), nil
}

func (m *Memory) ListQuotes(_ context.Context) ([]*model.RFQQuote, error) {
	m.quotes.mu.RLock()
	defer m.quotes.mu.RUnlock()
	out := make([]*model.RFQQuote, 0, len(m.quotes.byID))
	for _, q := range m.quotes.byID {
		out = append(out, q.Clone())
	}
	return out, nil
}

func (m *Memory) ListQuotesByRequest(_ context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error) {
	m.quotes.mu.RLock()
	defer m.quotes.mu.RUnlock()
	ids := m.quotes.byRequest[requestID]
	out := make([]*model.RFQQuote, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.quotes.byID[id]; ok {
			out = append(out, q.Clone())
		}
	}
	return out, nil
}

func (m *Memory) UpdateQuote(_ context.Context, q *model.RFQQuote) error {
	m.quotes.mu.Lock()
	defer m.quotes.mu.Unlock()
	if _, ok := m.quotes.byID[q.ID]; !ok {
		return errNotStored("quote", q.ID.String())
	}
	m.quotes.byID[q.ID] = q.Clone()
	return nil
}

func (m *Memory) SwapQuoteStatus(_ context.Context, id uuid.UUID, from, to model.QuoteStatus) (bool, error) {
	m.quotes.mu.Lock()
	defer m.quotes.mu.Unlock()
	q, ok := m.quotes.byID[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	q.UpdatedAt = nowUTC()
	return true, nil
}

// --- executions ---

func (m *Memory) InsertExecution(_ context.Context, e *model.RFQExecution) error {
	m.executions.mu.Lock()
	defer m.executions.mu.Unlock()
	if _, ok := m.executions.byID[e.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := m.executions.byQuote[e.QuoteID]; ok {
		return ErrDuplicate
	}
	m.executions.byID[e.ID] = e.Clone()
	m.executions.byQuote[e.QuoteID] = e.ID
	return nil
}

func (m *Memory) GetExecution(_ context.Context, id uuid.UUID) (*model.RFQExecution, error) {
	m.executions.mu.RLock()
	defer m.executions.mu.RUnlock()
	e, ok := m.executions.byID[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (m *Memory) GetExecutionByQuote(_ context.Context, quoteID uuid.UUID) (*model.RFQExecution, error) {
	m.executions.mu.RLock()
	defer m.executions.mu.RUnlock()
	id, ok := m.executions.byQuote[quoteID]
	if !ok {
		return nil, nil
	}
	return m.executions.byID[id].Clone(), nil
}

func (m *Memory) UpdateExecution(_ context.Context, e *model.RFQExecution) error {
	m.executions.mu.Lock()
	defer m.executions.mu.Unlock()
	if _, ok := m.executions.byID[e.ID]; !ok {
		return errNotStored("execution", e.ID.String())
	}
	m.executions.byID[e.ID] = e.Clone()
	return nil
}

func (m *Memory) SwapExecutionStatus(_ context.Context, id uuid.UUID, from, to model.ExecutionStatus) (bool, error) {
	m.executions.mu.Lock()
	defer m.executions.mu.Unlock()
	e, ok := m.executions.byID[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	e.UpdatedAt = nowUTC()
	return true, nil
}

// --- orders ---

func (m *Memory) InsertOrder(_ context.Context, o *model.Order) error {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	if _, ok := m.orders.byID[o.ID]; ok {
		return ErrDuplicate
	}
	m.orders.byID[o.ID] = o.Clone()
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.orders.mu.RLock()
	defer m.orders.mu.RUnlock()
	o, ok := m.orders.byID[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (m *Memory) ListOrders(_ context.Context) ([]*model.Order, error) {
	m.orders.mu.RLock()
	defer m.orders.mu.RUnlock()
	out := make([]*model.Order, 0, len(m.orders.byID))
	for _, o := range m.orders.byID {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateOrder(_ context.Context, o *model.Order) error {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	if _, ok := m.orders.byID[o.ID]; !ok {
		return errNotStored("order", o.ID.String())
	}
	m.orders.byID[o.ID] = o.Clone()
	return nil
}

func (m *Memory) SwapOrderStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	o, ok := m.orders.byID[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = nowUTC()
	return true, nil
}

// --- resolvers ---

func (m *Memory) InsertResolver(_ context.Context, b *model.ResolverBot) error {
	m.resolvers.mu.Lock()
	defer m.resolvers.mu.Unlock()
	if _, ok := m.resolvers.byAddress[b.Address]; ok {
		return ErrDuplicate
	}
	m.resolvers.byAddress[b.Address] = b.Clone()
	return nil
}

func (m *Memory) GetResolver(_ context.Context, address string) (*model.ResolverBot, error) {
	m.resolvers.mu.RLock()
	defer m.resolvers.mu.RUnlock()
	b, ok := m.resolvers.byAddress[address]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

func (m *Memory) ListResolvers(_ context.Context) ([]*model.ResolverBot, error) {
	m.resolvers.mu.RLock()
	defer m.resolvers.mu.RUnlock()
	out := make([]*model.ResolverBot, 0, len(m.resolvers.byAddress))
	for _, b := range m.resolvers.byAddress {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (m *Memory) UpdateResolver(_ context.Context, b *model.ResolverBot) error {
	m.resolvers.mu.Lock()
	defer m.resolvers.mu.Unlock()
	if _, ok := m.resolvers.byAddress[b.Address]; !ok {
		return errNotStored("resolver", b.Address)
	}
	m.resolvers.byAddress[b.Address] = b.Clone()
	return nil
}

func (m *Memory) DeleteResolver(_ context.Context, address string) error {
	m.resolvers.mu.Lock()
	defer m.resolvers.mu.Unlock()
	delete(m.resolvers.byAddress, address)
	return nil
}

// --- predicates ---

func (m *Memory) InsertPredicate(_ context.Context, p *model.Predicate) error {
	m.predicates.mu.Lock()
	defer m.predicates.mu.Unlock()
	if _, ok := m.predicates.byID[p.ID]; ok {
		return ErrDuplicate
	}
	m.predicates.byID[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPredicate(_ context.Context, id uuid.UUID) (*model.Predicate, error) {
	m.predicates.mu.RLock()
	defer m.predicates.mu.RUnlock()
	p, ok := m.predicates.byID[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *Memory) ListPredicates(_ context.Context) ([]*model.Predicate, error) {
	m.predicates.mu.RLock()
	defer m.predicates.mu.RUnlock()
	out := make([]*model.Predicate, 0, len(m.predicates.byID))
	for _, p := range m.predicates.byID {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *Memory) UpdatePredicate(_ context.Context, p *model.Predicate) error {
	m.predicates.mu.Lock()
	defer m.predicates.mu.Unlock()
	if _, ok := m.predicates.byID[p.ID]; !ok {
		return errNotStored("predicate", p.ID.String())
	}
	m.predicates.byID[p.ID] = p.Clone()
	return nil
}

func (m *Memory) SwapPredicate(_ context.Context, p *model.Predicate, from model.PredicateStatus) (bool, error) {
	m.predicates.mu.Lock()
	defer m.predicates.mu.Unlock()
	cur, ok := m.predicates.byID[p.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	m.predicates.byID[p.ID] = p.Clone()
	return true, nil
}

func (m *Memory) SwapPredicateStatus(_ context.Context, id uuid.UUID, from, to model.PredicateStatus) (bool, error) {
	m.predicates.mu.Lock()
	defer m.predicates.mu.Unlock()
	p, ok := m.predicates.byID[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = nowUTC()
	return true, nil
}

// --- lifecycle ---

func (m *Memory) HealthCheck(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
