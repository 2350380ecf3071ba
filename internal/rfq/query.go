package rfq

import (
	"context"
	"sort"

	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// QueryRequests filters, sorts and paginates the request set. Returns
// the page plus the total match count. Read-only.
func (e *Engine) QueryRequests(ctx context.Context, filter model.RequestFilter) ([]*model.RFQRequest, int, error) {
	var (
		requests []*model.RFQRequest
		err      error
	)
	if filter.UserAddress != "" {
		requests, err = e.requests.ListRequestsByUser(ctx, filter.UserAddress)
	} else {
		requests, err = e.requests.ListRequests(ctx)
	}
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*model.RFQRequest, 0, len(requests))
	for _, r := range requests {
		if filter.FromToken != "" && r.FromToken != filter.FromToken {
			continue
		}
		if filter.ToToken != "" && r.ToToken != filter.ToToken {
			continue
		}
		if filter.ChainID != 0 && r.ChainID != filter.ChainID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && r.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, r)
	}

	sortRequests(matched, filter.Sort)

	total := len(matched)
	page := filter.Page.Normalize()
	start := page.Offset()
	if start >= total {
		return []*model.RFQRequest{}, total, nil
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func sortRequests(requests []*model.RFQRequest, s model.Sort) {
	desc := s.Direction != model.SortAsc
	switch s.Field {
	case model.SortByAmount:
		sort.SliceStable(requests, func(a, b int) bool {
			if desc {
				return requests[a].Amount.GreaterThan(requests[b].Amount)
			}
			return requests[a].Amount.LessThan(requests[b].Amount)
		})
	case model.SortByPrice:
		// Accepted but a no-op for now; see model.SortByPrice.
	default:
		sort.SliceStable(requests, func(a, b int) bool {
			if desc {
				return requests[a].CreatedAt.After(requests[b].CreatedAt)
			}
			return requests[a].CreatedAt.Before(requests[b].CreatedAt)
		})
	}
}
