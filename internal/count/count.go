// Package count implements exact counting over a paged-listing capability.
//
// The upstream listing API's single-page estimate field is documented as
// inaccurate (it caps near round numbers and diverges from true counts by
// tens of items). When exactness is requested, this package drives the
// listing to completion across all pages and counts the items itself; the
// estimate is never read.
package count

import (
	"context"
	"fmt"

	"github.com/inboxpilot/inboxpilot/pkg/models"
	"github.com/rs/zerolog/log"
)

// PagedLister is the paged-listing capability a collaborator tool exposes.
// An empty cursor requests the first page; an empty NextCursor on the
// returned page means pagination is complete.
type PagedLister interface {
	ListPage(ctx context.Context, query, cursor string) (*models.Page, error)
}

// PartialCountError reports a pagination failure after some items were
// already counted. The partial total is never silently returned as exact;
// callers decide whether it is acceptable.
type PartialCountError struct {
	// Counted is the running total accumulated before the failure.
	Counted int
	// Cursor is the continuation cursor at the point of failure.
	Cursor string
	// Err is the underlying capability failure.
	Err error
}

func (e *PartialCountError) Error() string {
	return fmt.Sprintf("count: pagination failed after %d items (cursor %q): %v", e.Counted, e.Cursor, e.Err)
}

func (e *PartialCountError) Unwrap() error { return e.Err }

// All paginates the listing to completion and returns the true item count.
func All(ctx context.Context, lister PagedLister, query string) (int, error) {
	total := 0
	cursor := ""
	pages := 0

	for {
		page, err := lister.ListPage(ctx, query, cursor)
		if err != nil {
			return 0, &PartialCountError{Counted: total, Cursor: cursor, Err: err}
		}
		total += len(page.IDs)
		pages++

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	log.Debug().
		Str("query", query).
		Int("pages", pages).
		Int("total", total).
		Msg("Exact count complete")
	return total, nil
}
