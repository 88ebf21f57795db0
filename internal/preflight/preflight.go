package preflight

import (
	"context"

	"podscribe/internal/config"
	"podscribe/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Credentials (presence only; a bad key surfaces on the first search)
	results = append(results, CheckCredentials(cfg))

	// Pipeline directories
	results = append(results,
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
		CheckDirectoryAccess("Transcript directory", cfg.Paths.TranscriptDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	)

	// External binaries
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: binaryDetail(status),
		})
	}

	// Speech model and disk headroom
	results = append(results, CheckModelFile(cfg))
	results = append(results, CheckFreeSpace("Download disk space", cfg.Paths.DownloadDir))

	return results
}

// binaryDetail picks the display detail for a binary check: the resolved
// path when available, the failure reason otherwise.
func binaryDetail(status deps.Status) string {
	if status.Available {
		return status.Command
	}
	return status.Detail
}
