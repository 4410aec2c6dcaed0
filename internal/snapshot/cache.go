// Package snapshot keeps the last successful classification per farm so an
// analysis can still be served when the classification service is down.
package snapshot

import (
	"context"

	"github.com/satfarm/farmcarbon/internal/ndvi"
)

// Cache stores the most recent classification per farmer.
type Cache interface {
	// Get returns the stored classification. ok is false on a miss.
	Get(ctx context.Context, farmerID string) (result *ndvi.ChangeResult, ok bool, err error)

	// Put replaces the stored classification for farmerID.
	Put(ctx context.Context, farmerID string, result *ndvi.ChangeResult) error
}
