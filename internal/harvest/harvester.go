// Package harvest builds the outreach working set from competitor accounts.
package harvest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mvidalr/gramreach/internal/domain"
	"github.com/mvidalr/gramreach/internal/platform"
)

// Harvester fetches followers of competitor accounts into a working set.
type Harvester struct {
	client platform.Client
	batch  int
	logger *slog.Logger
}

// NewHarvester creates a harvester fetching up to batch followers per
// competitor handle.
func NewHarvester(client platform.Client, batch int, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		client: client,
		batch:  batch,
		logger: logger.With("component", "harvest"),
	}
}

// Harvest resolves each competitor handle and collects a bounded batch of
// its followers, deduplicated into a single working set. Per-handle
// failures are logged and skipped; a failing handle never aborts the
// harvest. An empty result is the caller's signal that there is no campaign
// to run.
func (h *Harvester) Harvest(ctx context.Context, handles []string) *domain.WorkingSet {
	set := domain.NewWorkingSet()

	for _, handle := range handles {
		handle = strings.TrimSpace(handle)
		if handle == "" {
			continue
		}

		h.logger.Info("harvesting followers", "handle", handle)

		userID, err := h.client.UserIDFromUsername(ctx, handle)
		if err != nil {
			h.logger.Warn("failed to resolve competitor handle", "handle", handle, "error", err)
			continue
		}

		followers, err := h.client.UserFollowers(ctx, userID, h.batch)
		if err != nil {
			h.logger.Warn("failed to fetch followers", "handle", handle, "error", err)
			continue
		}

		added := set.PushAll(followers)
		h.logger.Info("harvested followers", "handle", handle, "fetched", len(followers), "added", added)
	}

	return set
}
