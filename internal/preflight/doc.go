// Package preflight checks that filesearch can run before it starts
// indexing or serving.
//
// The package validates:
//   - conversion tools required by the current settings
//   - search backend reachability
//   - the records root and its attachments
//   - the task database
//   - disk space, write permissions, and file descriptor limits of the
//     data directory
//
// Checks run concurrently:
//
//	checker := preflight.New(cfg, preflight.WithPinger(adapter))
//	results := checker.RunAll(ctx)
//	if err := checker.Err(results); err != nil {
//	    // Handle failures
//	}
package preflight
