package orphans

import (
	"context"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/metrics"
	"github.com/forgeops/anvil/pkg/types"
)

// Deleter is the subset of the backend client needed for cleanup.
type Deleter interface {
	DeleteExtent(ctx context.Context, id int) error
	DeleteTarget(ctx context.Context, id int) error
}

// Find computes the orphan set: extents and targets whose IDs are not
// referenced by any association. Note this is deliberately broad -- an
// extent or target created by another consumer outside this engine's
// naming convention still counts as orphaned if nothing references it.
func Find(extents []types.Extent, targets []types.Target, assocs []types.Association) types.OrphanSet {
	usedExtents := make(map[int]bool, len(assocs))
	usedTargets := make(map[int]bool, len(assocs))
	for _, a := range assocs {
		usedExtents[a.ExtentID] = true
		usedTargets[a.TargetID] = true
	}

	var set types.OrphanSet
	for _, e := range extents {
		if !usedExtents[e.ID] {
			set.ExtentIDs = append(set.ExtentIDs, e.ID)
		}
	}
	for _, t := range targets {
		if !usedTargets[t.ID] {
			set.TargetIDs = append(set.TargetIDs, t.ID)
		}
	}
	return set
}

// Clean deletes every orphaned extent and target. Deletes are independent:
// a failed delete is logged and counted but never aborts the remaining
// deletions.
func Clean(ctx context.Context, backend Deleter, set types.OrphanSet) types.CleanupResult {
	logger := log.WithComponent("orphans")
	result := types.CleanupResult{
		Found: len(set.ExtentIDs) + len(set.TargetIDs),
	}

	for _, id := range set.ExtentIDs {
		if err := backend.DeleteExtent(ctx, id); err != nil {
			logger.Warn().Err(err).Int("extent_id", id).Msg("failed to delete orphaned extent")
			metrics.OrphanCleanupFailures.Inc()
			result.Failed++
			continue
		}
		logger.Info().Int("extent_id", id).Msg("deleted orphaned extent")
		metrics.OrphansCleaned.Inc()
		result.Cleaned++
	}

	for _, id := range set.TargetIDs {
		if err := backend.DeleteTarget(ctx, id); err != nil {
			logger.Warn().Err(err).Int("target_id", id).Msg("failed to delete orphaned target")
			metrics.OrphanCleanupFailures.Inc()
			result.Failed++
			continue
		}
		logger.Info().Int("target_id", id).Msg("deleted orphaned target")
		metrics.OrphansCleaned.Inc()
		result.Cleaned++
	}

	return result
}
