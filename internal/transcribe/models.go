package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/fileutil"
	"podscribe/internal/services"
)

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Preset names a ggml model whisper.cpp publishes for download.
type Preset struct {
	Name     string
	Filename string
	URL      string
	// SizeMB is the approximate download size, for listings only.
	SizeMB int
}

var presets = []Preset{
	{Name: "tiny", SizeMB: 75},
	{Name: "tiny.en", SizeMB: 75},
	{Name: "base", SizeMB: 142},
	{Name: "base.en", SizeMB: 142},
	{Name: "small", SizeMB: 466},
	{Name: "small.en", SizeMB: 466},
	{Name: "medium", SizeMB: 1530},
	{Name: "medium.en", SizeMB: 1530},
	{Name: "large-v3-turbo", SizeMB: 1620},
}

func init() {
	for i := range presets {
		presets[i].Filename = "ggml-" + presets[i].Name + ".bin"
		presets[i].URL = modelBaseURL + "/" + presets[i].Filename
	}
}

// Presets returns the known model presets in listing order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset resolves a preset by name, case-insensitively.
func LookupPreset(name string) (Preset, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, preset := range presets {
		if preset.Name == needle {
			return preset, true
		}
	}
	return Preset{}, false
}

// ResolveModelPath returns the on-disk model file the pipeline should
// load: an explicit speech.model_path wins, otherwise the configured
// preset name resolved into the model cache directory.
func ResolveModelPath(cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("%w: configuration unavailable", services.ErrConfiguration)
	}
	if path := strings.TrimSpace(cfg.Speech.ModelPath); path != "" {
		return path, nil
	}
	preset, ok := LookupPreset(cfg.Speech.Model)
	if !ok {
		return "", fmt.Errorf("%w: unknown speech model %q", services.ErrConfiguration, cfg.Speech.Model)
	}
	return filepath.Join(cfg.Paths.ModelCacheDir, preset.Filename), nil
}

// DownloadModel fetches a preset into the cache directory and returns the
// installed path. An already-installed model is returned without a fetch.
// progress, when non-nil, receives byte counts as the stream lands
// (total is -1 when the server does not announce a length).
func DownloadModel(ctx context.Context, client *http.Client, preset Preset, cacheDir string, progress func(written, total int64)) (string, error) {
	cacheDir = strings.TrimSpace(cacheDir)
	if cacheDir == "" {
		return "", fmt.Errorf("download model: cache directory required")
	}
	target := filepath.Join(cacheDir, preset.Filename)
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		return target, nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, preset.URL, nil)
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download model: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(cacheDir, preset.Filename+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	tmpPath := tmp.Name()

	buf := make([]byte, 64*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return "", err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				tmp.Close()
				os.Remove(tmpPath)
				return "", fmt.Errorf("download model: %w", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, resp.ContentLength)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("download model: %w", readErr)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("download model: %w", err)
	}
	if err := fileutil.MoveFile(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("install model: %w", err)
	}
	return target, nil
}
