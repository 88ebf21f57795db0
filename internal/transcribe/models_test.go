package transcribe_test

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podscribe/internal/services"
	"podscribe/internal/testsupport"
	"podscribe/internal/transcribe"
)

func TestLookupPreset(t *testing.T) {
	preset, ok := transcribe.LookupPreset("base.en")
	if !ok {
		t.Fatal("expected base.en preset")
	}
	if preset.Filename != "ggml-base.en.bin" {
		t.Fatalf("Filename = %q", preset.Filename)
	}
	if !strings.HasSuffix(preset.URL, "/ggml-base.en.bin") {
		t.Fatalf("URL = %q", preset.URL)
	}

	if _, ok := transcribe.LookupPreset("  LARGE-V3-TURBO  "); !ok {
		t.Fatal("lookup should trim and fold case")
	}
	if _, ok := transcribe.LookupPreset("enormous-v9"); ok {
		t.Fatal("unknown preset should not resolve")
	}
}

func TestResolveModelPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelFile("ggml-custom.bin"))
	got, err := transcribe.ResolveModelPath(cfg)
	if err != nil {
		t.Fatalf("ResolveModelPath: %v", err)
	}
	if got != cfg.Speech.ModelPath {
		t.Fatalf("path = %q, want explicit %q", got, cfg.Speech.ModelPath)
	}

	cfg.Speech.ModelPath = ""
	cfg.Speech.Model = "tiny"
	got, err = transcribe.ResolveModelPath(cfg)
	if err != nil {
		t.Fatalf("ResolveModelPath preset: %v", err)
	}
	if want := filepath.Join(cfg.Paths.ModelCacheDir, "ggml-tiny.bin"); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}

	cfg.Speech.Model = "enormous-v9"
	if _, err := transcribe.ResolveModelPath(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("unknown preset error = %v, want ErrConfiguration", err)
	}
}

func TestDownloadModelInstallsIntoCache(t *testing.T) {
	payload := make([]byte, 256*1024)
	if _, err := rand.Read(payload); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	cacheDir := filepath.Join(t.TempDir(), "models")
	preset := transcribe.Preset{Name: "test", Filename: "ggml-test.bin", URL: srv.URL + "/ggml-test.bin"}

	var lastWritten int64
	path, err := transcribe.DownloadModel(context.Background(), srv.Client(), preset, cacheDir, func(written, total int64) {
		lastWritten = written
	})
	if err != nil {
		t.Fatalf("DownloadModel: %v", err)
	}
	if path != filepath.Join(cacheDir, "ggml-test.bin") {
		t.Fatalf("path = %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("installed %d bytes, want %d", len(got), len(payload))
	}
	if lastWritten != int64(len(payload)) {
		t.Fatalf("progress saw %d bytes, want %d", lastWritten, len(payload))
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %q", entry.Name())
		}
	}

	// A second call must not refetch; the closed server would fail it.
	srv.Close()
	again, err := transcribe.DownloadModel(context.Background(), srv.Client(), preset, cacheDir, nil)
	if err != nil {
		t.Fatalf("DownloadModel cached: %v", err)
	}
	if again != path {
		t.Fatalf("cached path = %q, want %q", again, path)
	}
}

func TestDownloadModelRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cacheDir := filepath.Join(t.TempDir(), "models")
	preset := transcribe.Preset{Name: "test", Filename: "ggml-test.bin", URL: srv.URL + "/ggml-test.bin"}

	if _, err := transcribe.DownloadModel(context.Background(), srv.Client(), preset, cacheDir, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "ggml-test.bin")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no model file should be installed, err=%v", err)
	}
}

func TestPresetsCoverConfiguredDefault(t *testing.T) {
	found := false
	for _, preset := range transcribe.Presets() {
		if preset.Name == "base.en" {
			found = true
		}
		if preset.SizeMB <= 0 {
			t.Fatalf("preset %q has no size", preset.Name)
		}
	}
	if !found {
		t.Fatal("default model base.en must have a preset")
	}
}
