package devs

import (
	"log/slog"

	"github.com/romain1189/devs/stats"
)

// processorDeps bundles the cross-cutting collaborators every
// processor in the tree needs, so building the tree doesn't thread
// four separate parameters through every recursive newProcessor call.
type processorDeps struct {
	logger *slog.Logger
	stats  *stats.Collector
}
