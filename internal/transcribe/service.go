package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/language"
)

// Service wraps the whisper.cpp CLI and the ffmpeg conversion step that
// feeds it. Podcasts arrive as mp3 or m4a; whisper.cpp wants mono
// 16 kHz pcm_s16le WAV input.
type Service struct {
	whisperBinary string
	ffmpegBinary  string
	language      string
	threads       int
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service from the speech configuration.
func NewService(cfg *config.Config) *Service {
	svc := &Service{
		whisperBinary: "whisper-cli",
		ffmpegBinary:  "ffmpeg",
	}
	if cfg != nil {
		svc.whisperBinary = cfg.WhisperBinary()
		svc.ffmpegBinary = cfg.FFmpegBinary()
		svc.language = language.Normalize(cfg.Speech.Language)
		svc.threads = cfg.Speech.Threads
	}
	return svc
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// ConvertToWAV transcodes the source audio into a mono 16 kHz pcm_s16le
// WAV file at dest, overwriting any previous conversion.
func (s *Service) ConvertToWAV(ctx context.Context, source, dest string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("convert audio: source path required")
	}
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("convert audio: dest path required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg convert: %w", err)
	}
	return nil
}

// Transcribe runs whisper-cli over a prepared WAV file and returns the
// recognized segments in document order. outputPrefix names the JSON
// sidecar whisper writes (outputPrefix + ".json").
func (s *Service) Transcribe(ctx context.Context, modelPath, wavPath, outputPrefix string) ([]Segment, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, fmt.Errorf("transcribe: model path required")
	}
	if strings.TrimSpace(wavPath) == "" {
		return nil, fmt.Errorf("transcribe: wav path required")
	}
	if strings.TrimSpace(outputPrefix) == "" {
		return nil, fmt.Errorf("transcribe: output prefix required")
	}

	args := s.buildWhisperArgs(modelPath, wavPath, outputPrefix)
	if err := s.run(ctx, s.whisperBinary, args...); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	segments, err := LoadSegments(outputPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper output: %w", err)
	}
	return segments, nil
}

func (s *Service) buildWhisperArgs(modelPath, wavPath, outputPrefix string) []string {
	args := []string{
		"-m", modelPath,
		"-f", wavPath,
		"-oj",
		"-of", outputPrefix,
		"-np",
	}
	if s.threads > 0 {
		args = append(args, "-t", strconv.Itoa(s.threads))
	}
	if s.language != "" && !strings.EqualFold(s.language, "auto") {
		args = append(args, "-l", s.language)
	}
	return args
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Segment is one recognized span from the whisper JSON output.
type Segment struct {
	Text    string  `json:"text"`
	Offsets Offsets `json:"offsets"`
}

// Offsets carries segment timing in milliseconds from stream start.
type Offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// whisperPayload is the JSON structure whisper-cli emits with -oj.
type whisperPayload struct {
	Transcription []Segment `json:"transcription"`
}

// LoadSegments loads segments from a whisper-cli JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}
	return payload.Transcription, nil
}

// FlattenSegments renders segments as the transcript file body: each
// segment trimmed onto its own line, empty segments dropped, and a
// trailing newline when any text survived.
func FlattenSegments(segments []Segment) string {
	var lines []string
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

var modelLoadMarkers = []string{
	"failed to load model",
	"failed to initialize whisper context",
}

// IsModelLoadFailure reports whether a whisper run error looks like the
// model failed to load rather than the decode itself failing. whisper-cli
// prints these markers before exiting non-zero, and the run error carries
// the combined output.
func IsModelLoadFailure(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range modelLoadMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
