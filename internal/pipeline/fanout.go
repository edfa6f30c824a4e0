package pipeline

import (
	"context"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Fanout loads each batch into every loader concurrently. The batch fails if
// any loader fails, leaving its offsets uncommitted.
type Fanout []BatchLoader

func (f Fanout) LoadBatch(ctx context.Context, reports []domain.Report) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range f {
		g.Go(func() error {
			return l.LoadBatch(ctx, reports)
		})
	}
	return g.Wait()
}
