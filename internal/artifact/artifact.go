// Package artifact defines the store abstraction used to persist assembled
// metric tables, with SQLite and Postgres backends in subpackages.
package artifact

import (
	"context"

	"cdrflux/pkg/table"
)

// Store persists named metric tables. Artifacts are write-once per (run,
// metric) invocation: saving the same name again replaces the artifact.
type Store interface {
	// SaveTable persists t under the artifact name (e.g. co2_flxs,
	// cationflx_ca, rockflx_gbas).
	SaveTable(ctx context.Context, name string, t *table.Table) error
	Close() error
}
