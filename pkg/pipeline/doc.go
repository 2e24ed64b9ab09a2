// Package pipeline orchestrates a full avatar harvest.
//
// A run proceeds in two phases:
//
//  1. Harvest: the endpoint directory is fetched and each LCD endpoint is
//     walked in turn, folding validator identities into one set.
//  2. Fetch: every unique identity is resolved through Keybase and its image
//     downloaded, with at most download.concurrency tasks in flight.
//
// Only a failure to fetch the endpoint directory fails a run. Everything
// else is logged and reflected in the Report: aborted endpoint walks,
// unresolvable identities and failed downloads.
//
// Usage:
//
//	p, err := pipeline.New(cfg, log)
//	if err != nil {
//	    return err
//	}
//	report, err := p.Run(ctx)
package pipeline
