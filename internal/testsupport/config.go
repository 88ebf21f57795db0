package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"podscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.PodcastIndex.APIKey = "test-key"
	cfgVal.PodcastIndex.APISecret = "test-secret"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.TranscriptDir = filepath.Join(base, "transcriptions")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ModelCacheDir = filepath.Join(base, "models")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithIndexCredentials sets the Podcast Index API credentials on the test config.
func WithIndexCredentials(key, secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PodcastIndex.APIKey = key
		b.cfg.PodcastIndex.APISecret = secret
	}
}

// WithModelFile writes a placeholder model file and points the config at it.
func WithModelFile(name string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "models", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.t.Fatalf("mkdir model dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
			b.t.Fatalf("write model file: %v", err)
		}
		b.cfg.Speech.ModelPath = path
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default podscribe external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"whisper-cli", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
