package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// PGPoolConfig tunes the pgx connection pool.
type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Postgres is the durable Store. Status transitions use conditional
// UPDATE ... WHERE status = $from so the atomic-per-key contract holds
// across replicas without advisory locks.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres connects a pool and returns the durable store.
func NewPostgres(ctx context.Context, pgURL string, poolCfg PGPoolConfig, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	if poolCfg.MaxConns > 0 {
		cfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		cfg.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = poolCfg.MaxConnLifetime
	}
	if poolCfg.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}
	if poolCfg.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = poolCfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- requests ---

func (s *Postgres) InsertRequest(ctx context.Context, req *model.RFQRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rfq.request (
			id, user_address, from_token, to_token, amount, token_decimals,
			chain_id, deadline, status, allowed_resolvers, max_slippage,
			predicate_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, req.ID, req.UserAddress, req.FromToken, req.ToToken, req.Amount.String(),
		req.TokenDecimals, req.ChainID, req.Deadline, req.Status,
		req.AllowedResolvers, req.MaxSlippage, req.PredicateID,
		req.CreatedAt, req.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		s.logger.Error("store.pg.insert_request_failed", zap.Error(err))
	}
	return err
}

func (s *Postgres) GetRequest(ctx context.Context, id uuid.UUID) (*model.RFQRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_address, from_token, to_token, amount::text, token_decimals,
		       chain_id, deadline, status, allowed_resolvers, max_slippage,
		       predicate_id, created_at, updated_at
		FROM rfq.request
		WHERE id = $1;
	`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (s *Postgres) ListRequests(ctx context.Context) ([]*model.RFQRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_address, from_token, to_token, amount::text, token_decimals,
		       chain_id, deadline, status, allowed_resolvers, max_slippage,
		       predicate_id, created_at, updated_at
		FROM rfq.request
		ORDER BY created_at;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RFQRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Postgres) ListRequestsByUser(ctx context.Context, userAddress string) ([]*model.RFQRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_address, from_token, to_token, amount::text, token_decimals,
		       chain_id, deadline, status, allowed_resolvers, max_slippage,
		       predicate_id, created_at, updated_at
		FROM rfq.request
		WHERE user_address = $1
		ORDER BY created_at;
	`, userAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RFQRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateRequest(ctx context.Context, req *model.RFQRequest) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rfq.request
		SET status = $2, deadline = $3, updated_at = $4
		WHERE id = $1;
	`, req.ID, req.Status, req.Deadline, req.UpdatedAt)
	return err
}

func (s *Postgres) SwapRequestStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE rfq.request
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2;
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Postgres) CountOpenRequests(ctx context.Context, userAddress string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM rfq.request
		WHERE user_address = $1
		  AND status IN ('PENDING', 'QUOTED');
	`, userAddress).Scan(&count)
	return count, err
}

func scanRequest(row pgx.Row) (*model.RFQRequest, error) {
	var (
		req    model.RFQRequest
		amount string
	)
	if err := row.Scan(&req.ID, &req.UserAddress, &req.FromToken, &req.ToToken,
		&amount, &req.TokenDecimals, &req.ChainID, &req.Deadline, &req.Status,
		&req.AllowedResolvers, &req.MaxSlippage, &req.PredicateID,
		&req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	req.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("scan request amount: %w", err)
	}
	return &req, nil
}

// --- quotes ---

func (s *Postgres) InsertQuote(ctx context.Context, q *model.RFQQuote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rfq.quote (
			id, request_id, resolver_address, from_amount, to_amount, fee,
			gas_estimate, price_impact, valid_until, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, q.ID, q.RequestID, q.ResolverAddress, q.FromAmount.String(), q.ToAmount.String(),
		q.Fee.String(), q.GasEstimate.String(), q.PriceImpact, q.ValidUntil,
		q.Status, q.CreatedAt, q.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetQuote(ctx context.Context, id uuid.UUID) (*model.RFQQuote, error) {
	row := s.pool.QueryRow(ctx, selectQuote+` WHERE id = $1;`, id)
	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func (s *Postgres) ListQuotes(ctx context.Context) ([]*model.RFQQuote, error) {
	return s.queryQuotes(ctx, selectQuote+` ORDER BY created_at;`)
}

func (s *Postgres) ListQuotesByRequest(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error) {
	return s.queryQuotes(ctx, selectQuote+` WHERE request_id = $1 ORDER BY created_at;`, requestID)
}

func (s *Postgres) queryQuotes(ctx context.Context, sql string, args ...any) ([]*model.RFQQuote, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RFQQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateQuote(ctx context.Context, q *model.RFQQuote) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rfq.quote
		SET status = $2, updated_at = $3
		WHERE id = $1;
	`, q.ID, q.Status, q.UpdatedAt)
	return err
}

func (s *Postgres) SwapQuoteStatus(ctx context.Context, id uuid.UUID, from, to model.QuoteStatus) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE rfq.quote
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2;
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

const selectQuote = `
	SELECT id, request_id, resolver_address, from_amount::text, to_amount::text,
	       fee::text, gas_estimate::text, price_impact, valid_until, status,
	       created_at, updated_at
	FROM rfq.quote`

func scanQuote(row pgx.Row) (*model.RFQQuote, error) {
	var (
		q                                 model.RFQQuote
		fromAmount, toAmount, fee, gasEst string
	)
	if err := row.Scan(&q.ID, &q.RequestID, &q.ResolverAddress, &fromAmount,
		&toAmount, &fee, &gasEst, &q.PriceImpact, &q.ValidUntil, &q.Status,
		&q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if q.FromAmount, err = decimal.NewFromString(fromAmount); err != nil {
		return nil, err
	}
	if q.ToAmount, err = decimal.NewFromString(toAmount); err != nil {
		return nil, err
	}
	if q.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, err
	}
	if q.GasEstimate, err = decimal.NewFromString(gasEst); err != nil {
		return nil, err
	}
	return &q, nil
}

// --- executions ---

func (s *Postgres) InsertExecution(ctx context.Context, e *model.RFQExecution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rfq.execution (
			id, request_id, quote_id, tx_hash, block_number, gas_used,
			status, error, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.RequestID, e.QuoteID, e.TxHash, e.BlockNumber, e.GasUsed.String(),
		e.Status, e.Error, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetExecution(ctx context.Context, id uuid.UUID) (*model.RFQExecution, error) {
	row := s.pool.QueryRow(ctx, selectExecution+` WHERE id = $1;`, id)
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *Postgres) GetExecutionByQuote(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error) {
	row := s.pool.QueryRow(ctx, selectExecution+` WHERE quote_id = $1;`, quoteID)
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *Postgres) UpdateExecution(ctx context.Context, e *model.RFQExecution) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rfq.execution
		SET tx_hash = $2, block_number = $3, gas_used = $4, status = $5,
		    error = $6, updated_at = $7
		WHERE id = $1;
	`, e.ID, e.TxHash, e.BlockNumber, e.GasUsed.String(), e.Status, e.Error, e.UpdatedAt)
	return err
}

func (s *Postgres) SwapExecutionStatus(ctx context.Context, id uuid.UUID, from, to model.ExecutionStatus) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE rfq.execution
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2;
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

const selectExecution = `
	SELECT id, request_id, quote_id, tx_hash, block_number, gas_used::text,
	       status, error, created_at, updated_at
	FROM rfq.execution`

func scanExecution(row pgx.Row) (*model.RFQExecution, error) {
	var (
		e       model.RFQExecution
		gasUsed string
	)
	if err := row.Scan(&e.ID, &e.RequestID, &e.QuoteID, &e.TxHash, &e.BlockNumber,
		&gasUsed, &e.Status, &e.Error, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.GasUsed, err = decimal.NewFromString(gasUsed); err != nil {
		return nil, err
	}
	return &e, nil
}

// --- orders ---

func (s *Postgres) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rfq.order_data (
			id, user_address, from_token, to_token, amount, token_decimals,
			chain_id, deadline, allowed_senders, max_slippage, status,
			execution_attempts, executor_address, tx_hash, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, o.ID, o.UserAddress, o.FromToken, o.ToToken, o.Amount.String(), o.TokenDecimals,
		o.ChainID, o.Deadline, o.AllowedSenders, o.MaxSlippage, o.Status,
		o.ExecutionAttempts, o.ExecutorAddress, o.TxHash, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := s.pool.QueryRow(ctx, selectOrder+` WHERE id = $1;`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (s *Postgres) ListOrders(ctx context.Context) ([]*model.Order, error) {
	rows, err := s.pool.Query(ctx, selectOrder+` ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateOrder(ctx context.Context, o *model.Order) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rfq.order_data
		SET status = $2, execution_attempts = $3, executor_address = $4,
		    tx_hash = $5, updated_at = $6
		WHERE id = $1;
	`, o.ID, o.Status, o.ExecutionAttempts, o.ExecutorAddress, o.TxHash, o.UpdatedAt)
	return err
}

func (s *Postgres) SwapOrderStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE rfq.order_data
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2;
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

const selectOrder = `
	SELECT id, user_address, from_token, to_token, amount::text, token_decimals,
	       chain_id, deadline, allowed_senders, max_slippage, status,
	       execution_attempts, executor_address, tx_hash, created_at, updated_at
	FROM rfq.order_data`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		amount string
	)
	if err := row.Scan(&o.ID, &o.UserAddress, &o.FromToken, &o.ToToken, &amount,
		&o.TokenDecimals, &o.ChainID, &o.Deadline, &o.AllowedSenders, &o.MaxSlippage,
		&o.Status, &o.ExecutionAttempts, &o.ExecutorAddress, &o.TxHash,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &o, nil
}

// --- resolvers ---

func (s *Postgres) InsertResolver(ctx context.Context, b *model.ResolverBot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rfq.resolver_bot (
			address, name, is_whitelisted, allowed_pairs, min_order_size,
			max_order_size, is_online, reputation, total_executions,
			success_rate, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.Address, b.Name, b.IsWhitelisted, b.AllowedPairs, b.MinOrderSize.String(),
		b.MaxOrderSize.String(), b.IsOnline, b.Reputation, b.TotalExecutions,
		b.SuccessRate, b.CreatedAt, b.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetResolver(ctx context.Context, address string) (*model.ResolverBot, error) {
	row := s.pool.QueryRow(ctx, selectResolver+` WHERE address = $1;`, address)
	b, err := scanResolver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *Postgres) ListResolvers(ctx context.Context) ([]*model.ResolverBot, error) {
	rows, err := s.pool.Query(ctx, selectResolver+` ORDER BY address;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ResolverBot
	for rows.Next() {
		b, err := scanResolver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateResolver(ctx context.Context, b *model.ResolverBot) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rfq.resolver_bot
		SET name = $2, is_whitelisted = $3, allowed_pairs = $4, min_order_size = $5,
		    max_order_size = $6, is_online = $7, reputation = $8,
		    total_executions = $9, success_rate = $10, updated_at = $11
		WHERE address = $1;
	`, b.Address, b.Name, b.IsWhitelisted, b.AllowedPairs, b.MinOrderSize.String(),
		b.MaxOrderSize.String(), b.IsOnline, b.Reputation, b.TotalExecutions,
		b.SuccessRate, b.UpdatedAt)
	return err
}

func (s *Postgres) DeleteResolver(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rfq.resolver_bot WHERE address = $1;`, address)
	return err
}

const selectResolver = `
	SELECT address, name, is_whitelisted, allowed_pairs, min_order_size::text,
	       max_order_size::text, is_online, reputation, total_executions,
	       success_rate, created_at, updated_at
	FROM rfq.resolver_bot`

func scanResolver(row pgx.Row) (*model.ResolverBot, error) {
	var (
		b                model.ResolverBot
		minSize, maxSize string
	)
	if err := row.Scan(&b.Address, &b.Name, &b.IsWhitelisted, &b.AllowedPairs,
		&minSize, &maxSize, &b.IsOnline, &b.Reputation, &b.TotalExecutions,
		&b.SuccessRate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.MinOrderSize, err = decimal.NewFromString(minSize); err != nil {
		return nil, err
	}
	if b.MaxOrderSize, err = decimal.NewFromString(maxSize); err != nil {
		return nil, err
	}
	return &b, nil
}

// --- predicates ---

func (s *Postgres) InsertPredicate(ctx context.Context, p *model.Predicate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rfq.predicate (
			id, user_address, oracle_address, chain_id, tolerance,
			price_threshold, current_price, is_valid, status, expires_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.UserAddress, p.OracleAddress, p.ChainID, p.Tolerance,
		p.PriceThreshold.String(), p.CurrentPrice.String(), p.IsValid, p.Status,
		p.ExpiresAt, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetPredicate(ctx context.Context, id uuid.UUID) (*model.Predicate, error) {
	row := s.pool.QueryRow(ctx, selectPredicate+` WHERE id = $1;`, id)
	p, err := scanPredicate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *Postgres) ListPredicates(ctx context.Context) ([]*model.Predicate, error) {
	rows, err := s.pool.Query(ctx, selectPredicate+` ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Predicate
	for rows.Next() {
		p, err := scanPredicate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdatePredicate(ctx context.Context, p *model.Predicate) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rfq.predicate
		SET current_price = $2, is_valid = $3, status = $4, updated_at = $5
		WHERE id = $1;
	`, p.ID, p.CurrentPrice.String(), p.IsValid, p.Status, p.UpdatedAt)
	return err
}

func (s *Postgres) SwapPredicate(ctx context.Context, p *model.Predicate, from model.PredicateStatus) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE rfq.predicate
		SET current_price = $3, is_valid = $4, status = $5, updated_at = $6
		WHERE id = $1 AND status = $2;
	`, p.ID, from, p.CurrentPrice.String(), p.IsValid, p.Status, p.UpdatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Postgres) SwapPredicateStatus(ctx context.Context, id uuid.UUID, from, to model.PredicateStatus) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE rfq.predicate
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2;
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

const selectPredicate = `
	SELECT id, user_address, oracle_address, chain_id, tolerance,
	       price_threshold::text, current_price::text, is_valid, status,
	       expires_at, created_at, updated_at
	FROM rfq.predicate`

func scanPredicate(row pgx.Row) (*model.Predicate, error) {
	var (
		p                  model.Predicate
		threshold, current string
	)
	if err := row.Scan(&p.ID, &p.UserAddress, &p.OracleAddress, &p.ChainID,
		&p.Tolerance, &threshold, &current, &p.IsValid, &p.Status,
		&p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.PriceThreshold, err = decimal.NewFromString(threshold); err != nil {
		return nil, err
	}
	if p.CurrentPrice, err = decimal.NewFromString(current); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- lifecycle ---

func (s *Postgres) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
