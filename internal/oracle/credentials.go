package oracle

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/pkg/secrets"
)

// AWSResolver resolves per-chain oracle feed configuration from AWS
// Secrets Manager, caching results locally to reduce API calls.
//
// Secret naming convention: {env}/oracle/{chainID}
// Secret JSON format:       {"base_url": "https://...", "api_key": "...", "ws_url": "wss://..."}
type AWSResolver struct {
	logger   *zap.Logger
	env      string
	provider secrets.Provider
	cache    *secrets.Cache[FeedConfig]
	chains   []int64
}

// NewAWSResolver constructs the resolver for the given supported chains.
func NewAWSResolver(
	logger *zap.Logger,
	env string,
	provider secrets.Provider,
	cache *secrets.Cache[FeedConfig],
	chains []int64,
) *AWSResolver {
	return &AWSResolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
		chains:   chains,
	}
}

func (r *AWSResolver) secretName(chainID int64) string {
	return strings.ToLower(fmt.Sprintf("%s/oracle/%d", r.env, chainID))
}

// Resolve fetches or caches the FeedConfig for a chain.
func (r *AWSResolver) Resolve(ctx context.Context, chainID int64) (*FeedConfig, error) {
	key := strconv.FormatInt(chainID, 10)
	if cfg, ok := r.cache.Get(key); ok {
		return &cfg, nil
	}

	name := r.secretName(chainID)
	secretMap, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return nil, fmt.Errorf("resolve oracle config for chain %d: %w", chainID, err)
	}

	cfg, err := parseFeedConfig(secretMap)
	if err != nil {
		return nil, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(key, cfg)
	r.logger.Info("aws.oracle_config_resolved", zap.Int64("chain", chainID))
	return &cfg, nil
}

// SupportedChains returns the chains this resolver serves, sorted.
func (r *AWSResolver) SupportedChains() []int64 {
	out := append([]int64(nil), r.chains...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func parseFeedConfig(m map[string]string) (FeedConfig, error) {
	cfg := FeedConfig{
		BaseURL: m["base_url"],
		WSURL:   m["ws_url"],
		APIKey:  m["api_key"],
	}
	if cfg.BaseURL == "" {
		return FeedConfig{}, fmt.Errorf("missing required field 'base_url'")
	}
	if cfg.APIKey == "" {
		return FeedConfig{}, fmt.Errorf("missing required field 'api_key'")
	}
	return cfg, nil
}
