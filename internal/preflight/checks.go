package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"podscribe/internal/config"
	"podscribe/internal/deps"
	"podscribe/internal/transcribe"
)

// CheckCredentials verifies the Podcast Index key pair is configured.
// The API itself is not called; invalid keys surface on the first search.
func CheckCredentials(cfg *config.Config) Result {
	const name = "PodcastIndex credentials"
	if strings.TrimSpace(cfg.PodcastIndex.APIKey) == "" || strings.TrimSpace(cfg.PodcastIndex.APISecret) == "" {
		return Result{Name: name, Detail: "api_key and api_secret are required"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelFile verifies the configured speech model exists on disk.
func CheckModelFile(cfg *config.Config) Result {
	const name = "Speech model"
	path, err := transcribe.ResolveModelPath(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (missing; run 'podscribe model download')", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (is a directory)", path)}
	}
	if info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (file is empty)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// minFreeBytes is the headroom required before downloads are considered
// safe. Episode audio commonly runs 50-150 MB per file.
const minFreeBytes uint64 = 1 << 30

// statfs is a seam for tests that need to simulate full or failing disks.
var statfs = func(path string) (total, free uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free = stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// CheckFreeSpace verifies the filesystem behind path has room for episode audio.
func CheckFreeSpace(name, path string) Result {
	total, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s free, need %s)", path, formatBytes(free), formatBytes(minFreeBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free of %s)", path, formatBytes(free), formatBytes(total))}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out
// to. The daemon and the CLI status command share this list so the two
// surfaces never disagree about what is required.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "whisper.cpp",
			Command:     cfg.WhisperBinary(),
			Description: "Required for transcription",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio conversion",
		},
	}
	return deps.CheckBinaries(requirements)
}

func formatBytes(value uint64) string {
	const (
		kiB = 1 << 10
		miB = 1 << 20
		giB = 1 << 30
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
