package rfq

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/rfq-engine/internal/registry"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// PairCount is one entry of the top-pairs leaderboard.
type PairCount struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// Stats is the aggregate snapshot exposed by GetStats.
type Stats struct {
	TotalRequests     int                `json:"total_requests"`
	ActiveRequests    int                `json:"active_requests"`
	ExecutedRequests  int                `json:"executed_requests"`
	ExecutedVolume    decimal.Decimal    `json:"executed_volume"`
	SuccessRate       float64            `json:"success_rate"`
	AvgQuoteLatencyMs float64            `json:"avg_quote_latency_ms"`
	TopPairs          []PairCount        `json:"top_pairs"`
	ResolverPool      registry.PoolStats `json:"resolver_pool"`
}

const topPairsLimit = 5

// GetStats aggregates counts, executed volume, average resolver response
// latency, success rate and the top pairs by request count. Read-only.
func (e *Engine) GetStats(ctx context.Context) (*Stats, error) {
	requests, err := e.requests.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := e.quotes.ListQuotes(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := e.registry.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalRequests:  len(requests),
		ExecutedVolume: decimal.Zero,
		ResolverPool:   pool,
	}

	byID := make(map[string]*model.RFQRequest, len(requests))
	pairCounts := make(map[string]int)
	for _, r := range requests {
		byID[r.ID.String()] = r
		pairCounts[r.Pair()]++
		switch {
		case !r.Status.Terminal():
			stats.ActiveRequests++
		case r.Status == model.RequestExecuted:
			stats.ExecutedRequests++
			stats.ExecutedVolume = stats.ExecutedVolume.Add(r.Amount)
		}
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.ExecutedRequests) / float64(stats.TotalRequests)
	}

	// Resolver response latency: quote timestamp minus the parent
	// request's timestamp, averaged over every quote.
	var latencySum time.Duration
	var latencyCount int
	for _, q := range quotes {
		req, ok := byID[q.RequestID.String()]
		if !ok {
			continue
		}
		latencySum += q.CreatedAt.Sub(req.CreatedAt)
		latencyCount++
	}
	if latencyCount > 0 {
		stats.AvgQuoteLatencyMs = float64(latencySum.Milliseconds()) / float64(latencyCount)
	}

	stats.TopPairs = topPairs(pairCounts, topPairsLimit)
	return stats, nil
}

func topPairs(counts map[string]int, limit int) []PairCount {
	pairs := make([]PairCount, 0, len(counts))
	for pair, n := range counts {
		pairs = append(pairs, PairCount{Pair: pair, Count: n})
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].Count != pairs[b].Count {
			return pairs[a].Count > pairs[b].Count
		}
		return pairs[a].Pair < pairs[b].Pair
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
