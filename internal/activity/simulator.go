// Package activity simulates organic account activity by liking and
// commenting on the logged-in account's own recent posts between send
// cycles.
package activity

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/mvidalr/gramreach/internal/content"
	"github.com/mvidalr/gramreach/internal/platform"
)

// Simulator likes and comments on the account's recent posts.
type Simulator struct {
	client  platform.Client
	library *content.Library
	posts   int
	logger  *slog.Logger

	// pick chooses a comment template index; overridable in tests.
	pick func(n int) int
}

// NewSimulator creates a simulator touching up to posts recent posts per
// pass.
func NewSimulator(client platform.Client, library *content.Library, posts int, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		client:  client,
		library: library,
		posts:   posts,
		logger:  logger.With("component", "activity"),
		pick:    rand.Intn,
	}
}

// Simulate runs one activity pass. Every failure is logged and skipped;
// the pass never propagates an error to the scheduler.
func (s *Simulator) Simulate(ctx context.Context) {
	userID := s.client.CurrentUserID()
	if userID == "" {
		s.logger.Warn("no authenticated user, skipping activity pass")
		return
	}

	medias, err := s.client.UserMedias(ctx, userID, s.posts)
	if err != nil {
		s.logger.Warn("failed to fetch own posts", "error", err)
		return
	}
	if len(medias) == 0 {
		s.logger.Debug("account has no posts, skipping activity pass")
		return
	}

	templates := s.library.Templates()

	for i, media := range medias {
		if ctx.Err() != nil {
			return
		}

		if err := s.client.Like(ctx, media.ID); err != nil {
			s.logger.Warn("failed to like post", "media_id", media.ID, "error", err)
		} else {
			s.logger.Debug("liked post", "media_id", media.ID)
		}

		// Comment on every other post, when there is something to say.
		if i%2 == 0 && len(templates) > 0 {
			comment := templates[s.pick(len(templates))]
			if err := s.client.Comment(ctx, media.ID, comment); err != nil {
				s.logger.Warn("failed to comment on post", "media_id", media.ID, "error", err)
			} else {
				s.logger.Debug("commented on post", "media_id", media.ID)
			}
		}
	}

	s.logger.Info("activity pass completed", "posts", len(medias))
}
