package app

import (
	"context"

	"github.com/matshaug/flagline/internal/adapters/cachestore"
	"github.com/matshaug/flagline/internal/dom"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/watch"
)

// Toggle enables or disables annotation. Disabling strips every decoration
// from the document; enabling re-scans immediately. The watcher keeps
// observing either way, so no re-initialization is needed.
type Toggle func(ctx context.Context, enabled bool)

func BuildToggle(
	watcher *watch.Watcher,
	doc *dom.Document,
	scanner Scanner,
	snapshots cachestore.SnapshotStore,
) Toggle {
	return func(ctx context.Context, enabled bool) {
		logger := logging.FromContext(ctx)
		logger.InfoContext(ctx, "Toggling annotation", "enabled", enabled)

		watcher.SetEnabled(enabled)

		if enabled {
			scanner.Scan(ctx, doc)
		} else {
			scanner.Strip(doc)
		}

		// Best effort: the toggle takes effect regardless of persistence.
		if err := snapshots.SetEnabled(ctx, enabled); err != nil {
			logger.ErrorContext(ctx, "Failed to persist enabled flag", "error", err.Error())
		}
	}
}
