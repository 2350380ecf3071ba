package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/metrics"
	"github.com/Checker-Finance/rfq-engine/internal/rate"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// Price is a point-in-time oracle reading.
type Price struct {
	Price     decimal.Decimal `json:"price"`
	Decimals  int32           `json:"decimals"`
	Timestamp time.Time       `json:"timestamp"`
}

// Source returns live prices for oracle feeds. The predicate validator
// is the only consumer; fetches are the one legitimate blocking point
// in the core and always run under a caller-supplied timeout.
type Source interface {
	GetOraclePrice(ctx context.Context, oracleAddress string, chainID int64) (*Price, error)
}

// FeedConfig is the per-chain oracle API configuration, resolved from
// AWS Secrets Manager at runtime.
type FeedConfig struct {
	BaseURL string `json:"base_url"`
	WSURL   string `json:"ws_url,omitempty"`
	APIKey  string `json:"api_key"`
}

// ConfigResolver resolves FeedConfig per chain.
type ConfigResolver interface {
	Resolve(ctx context.Context, chainID int64) (*FeedConfig, error)
	SupportedChains() []int64
}

// HTTPSource fetches prices over the oracle provider's REST API, with a
// Redis read-through cache and per-chain rate limiting. All transport
// failures are translated to domain upstream errors; raw errors never
// cross the package boundary.
type HTTPSource struct {
	client   *http.Client
	cache    *PriceCache
	resolver ConfigResolver
	rateMgr  *rate.Manager
	logger   *zap.Logger
}

func NewHTTPSource(resolver ConfigResolver, cache *PriceCache, rateMgr *rate.Manager, logger *zap.Logger) *HTTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSource{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		cache:    cache,
		resolver: resolver,
		rateMgr:  rateMgr,
		logger:   logger,
	}
}

type priceResponse struct {
	Price     string `json:"price"`
	Decimals  int32  `json:"decimals"`
	Timestamp int64  `json:"timestamp"`
}

// GetOraclePrice returns the current price for a feed, serving from
// cache when fresh.
func (s *HTTPSource) GetOraclePrice(ctx context.Context, oracleAddress string, chainID int64) (*Price, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, chainID, oracleAddress); ok {
			return p, nil
		}
	}

	cfg, err := s.resolver.Resolve(ctx, chainID)
	if err != nil {
		return nil, model.ErrUpstream(model.CodeOracleUnavailable,
			fmt.Sprintf("no oracle feed config for chain %d", chainID), err)
	}

	if s.rateMgr != nil {
		if err := s.rateMgr.Wait(ctx, strconv.FormatInt(chainID, 10)); err != nil {
			return nil, model.ErrUpstream(model.CodeOracleTimeout, "oracle rate limit wait canceled", err)
		}
	}

	url := fmt.Sprintf("%s/v1/feeds/%s?chain=%d", cfg.BaseURL, oracleAddress, chainID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.ErrUpstream(model.CodeOracleUnavailable, "building oracle request failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.ObserveDuration(metrics.OracleRequestDuration, start, strconv.FormatInt(chainID, 10))
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			s.logger.Warn("oracle.request_timeout",
				zap.String("feed", oracleAddress),
				zap.Int64("chain", chainID),
				zap.Error(err),
			)
			return nil, model.ErrUpstream(model.CodeOracleTimeout, "oracle did not respond in time", err)
		}
		return nil, model.ErrUpstream(model.CodeOracleUnavailable, "oracle request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, model.ErrUpstream(model.CodeOracleNotFound,
			fmt.Sprintf("unknown oracle feed %s on chain %d", oracleAddress, chainID), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, model.ErrUpstream(model.CodeOracleUnavailable,
			fmt.Sprintf("oracle returned %d", resp.StatusCode), nil)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, model.ErrUpstream(model.CodeOracleUnavailable, "decoding oracle response failed", err)
	}

	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		return nil, model.ErrUpstream(model.CodeOracleUnavailable, "oracle returned a non-decimal price", err)
	}

	p := &Price{
		Price:     price,
		Decimals:  body.Decimals,
		Timestamp: time.Unix(body.Timestamp, 0).UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, chainID, oracleAddress, p); err != nil {
			s.logger.Warn("oracle.cache_put_failed",
				zap.String("feed", oracleAddress),
				zap.Error(err))
		}
	}

	return p, nil
}
