// Package logger is the structured logging layer used across valavatar.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can swap in NewNopLogger or NewTestLogger.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "harvest")
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "chain_id": "phoenix-1",
//	    "page":     3,
//	})
//
// With no log file configured, output goes to a console writer on stderr.
// With a file, JSON lines are appended to it and mirrored to the console.
package logger
