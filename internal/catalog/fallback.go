package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filter"
)

// QueryOrEmpty runs q.Query and turns a failure into an empty page with a
// zero total, so a listing renders instead of erroring. The failure is logged.
func QueryOrEmpty(ctx context.Context, q Querier, f filter.Filters, logger zerolog.Logger) Page {
	page, err := q.Query(ctx, f)
	if err == nil {
		return page
	}

	level := zerolog.WarnLevel
	if !errors.Is(err, ErrQuery) {
		level = zerolog.ErrorLevel
	}
	logger.WithLevel(level).Err(err).Str("query", filter.ToQuery(f)).Msg("catalog query failed, serving empty listing")

	return Page{Data: []Product{}, Pagination: NewPagination(0, f.EffectivePage(), clampLimit(f.Limit))}
}
