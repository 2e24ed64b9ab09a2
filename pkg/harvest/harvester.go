package harvest

import (
	"context"

	"valavatar/pkg/chains"
	"valavatar/pkg/logger"
)

// Harvester walks endpoints one after another and folds their identities
// into a single set.
type Harvester struct {
	walker *Walker
	logger logger.Logger
}

// NewHarvester creates a Harvester
func NewHarvester(walker *Walker, log logger.Logger) *Harvester {
	return &Harvester{walker: walker, logger: logger.OrNop(log)}
}

// Harvest walks every endpoint sequentially. A failing endpoint is logged and
// the harvest moves on; only ctx cancellation stops it early.
func (h *Harvester) Harvest(ctx context.Context, endpoints []chains.Endpoint) (*IdentitySet, []WalkResult) {
	set := NewIdentitySet()
	results := make([]WalkResult, 0, len(endpoints))

	for _, ep := range endpoints {
		if ctx.Err() != nil {
			break
		}

		h.logger.InfoWithFields("processing validator identities", map[string]interface{}{
			"chain_id": ep.ChainID,
			"lcd":      ep.LCD,
		})

		res := h.walker.Walk(ctx, ep)
		added := set.Add(res.Identities...)
		logger.LogEndpointDone(h.logger, ep.ChainID, res.Pages, len(res.Identities), res.Err)
		h.logger.DebugWithFields("identities merged", map[string]interface{}{
			"chain_id": ep.ChainID,
			"new":      added,
			"total":    set.Len(),
		})

		results = append(results, res)
	}

	return set, results
}
