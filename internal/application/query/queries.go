package query

import (
	"fmt"
	"strings"

	"scriptdex/internal/domain/errors/domain"
)

// Paging limits shared by the list endpoints.
const (
	DefaultLimit      = 200
	DefaultMaxLimit   = 2000
	DefaultTraceLimit = 2000
	MaxTraceLimit     = 10000
)

// SearchQuery represents a catalog search request.
type SearchQuery struct {
	Q      string
	Offset int
	Limit  int
}

// Validate checks the query and applies the default limit. Limits above maxLimit are
// clamped rather than rejected.
func (q *SearchQuery) Validate(maxLimit int) error {
	if strings.TrimSpace(q.Q) == "" {
		return fmt.Errorf("%w: q is required", domain.ErrInvalidInput)
	}
	return validatePage(&q.Offset, &q.Limit, maxLimit)
}

// IndexQuery represents a page of the compact catalog index.
type IndexQuery struct {
	Offset int
	Limit  int
}

// Validate checks the page and applies the default limit.
func (q *IndexQuery) Validate(maxLimit int) error {
	return validatePage(&q.Offset, &q.Limit, maxLimit)
}

// TraceQuery represents a trace lookup by exact key or by key prefix. Key wins when both
// are set.
type TraceQuery struct {
	Key    string
	Prefix string
	Limit  int
}

// Validate applies the default limit and caps it.
func (q *TraceQuery) Validate() error {
	q.Key = strings.TrimSpace(q.Key)
	q.Prefix = strings.TrimSpace(q.Prefix)
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	if q.Limit == 0 {
		q.Limit = DefaultTraceLimit
	}
	q.Limit = min(q.Limit, MaxTraceLimit)
	return nil
}

func validatePage(offset, limit *int, maxLimit int) error {
	if *offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}
	if *limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if *limit == 0 {
		*limit = DefaultLimit
	}
	*limit = max(1, min(*limit, maxLimit))
	return nil
}
