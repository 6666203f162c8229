package source

import (
	"context"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
)

// Adapter is one external data provider. Implementations are stateless from
// the engine's perspective: Fetch is idempotent, owns no shared mutable
// state beyond its transport client, and reports transient failures as
// error values rather than panicking. The caller bounds each fetch with a
// context deadline.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Record, error)
}
