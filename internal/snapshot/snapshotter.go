package snapshot

import (
	"context"

	"turn-dispatch/models"
)

// Snapshotter persists the full queue state as a single durable record.
type Snapshotter interface {
	// Load reads the last saved state. A missing snapshot returns
	// (nil, nil); a present but unreadable one returns an error.
	Load(ctx context.Context) (*models.QueueState, error)

	// Save replaces the durable record with the given state. A partial
	// write must never leave an unloadable record behind.
	Save(ctx context.Context, state *models.QueueState) error
}
