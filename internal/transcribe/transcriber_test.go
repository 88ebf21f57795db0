package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/services"
	"podscribe/internal/testsupport"
	"podscribe/internal/transcribe"
)

const whisperFixture = `{
	"result": {"language": "en"},
	"transcription": [
		{"offsets": {"from": 0, "to": 3000}, "text": " Welcome to the show."},
		{"offsets": {"from": 3000, "to": 6500}, "text": " Today we cover work queues."},
		{"offsets": {"from": 6500, "to": 8000}, "text": " Thanks for listening."}
	]
}`

func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// fakeRunner satisfies the command seam: ffmpeg invocations synthesize the
// WAV, whisper invocations write the JSON payload.
func fakeRunner(t *testing.T, whisperJSON string) func(ctx context.Context, name string, args ...string) error {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) error {
		switch filepath.Base(name) {
		case "ffmpeg":
			return os.WriteFile(args[len(args)-1], []byte("RIFFwav"), 0o644)
		case "whisper-cli":
			return os.WriteFile(argAfter(args, "-of")+".json", []byte(whisperJSON), 0o644)
		default:
			t.Fatalf("unexpected binary %q", name)
			return nil
		}
	}
}

func TestTranscriberWritesTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Systems Weekly", "Deep Dive", "https://cdn.example.com/deep-dive.mp3")
	audioPath := filepath.Join(cfg.Paths.DownloadDir, "deep-dive.mp3")
	testsupport.WriteFile(t, audioPath, 4096)
	item.AudioPath = audioPath
	item.Status = queue.StatusTranscribing
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(fakeRunner(t, whisperFixture))
	handler := transcribe.NewTranscriberWithService(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if item.ProgressMessage != "Loading speech model" {
		t.Fatalf("ProgressMessage = %q after Prepare", item.ProgressMessage)
	}
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("persist prepared item: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantTranscript := filepath.Join(cfg.Paths.TranscriptDir, "deep-dive.txt")
	if item.TranscriptPath != wantTranscript {
		t.Fatalf("TranscriptPath = %q, want %q", item.TranscriptPath, wantTranscript)
	}
	got, err := os.ReadFile(wantTranscript)
	if err != nil {
		t.Fatalf("ReadFile transcript: %v", err)
	}
	want := "Welcome to the show.\nToday we cover work queues.\nThanks for listening.\n"
	if string(got) != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("ProgressPercent = %v, want 100", item.ProgressPercent)
	}
	if item.ProgressMessage != "Transcribed 3 segments" {
		t.Fatalf("ProgressMessage = %q", item.ProgressMessage)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkDir, "deep-dive.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected scratch WAV cleanup, err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkDir, "deep-dive.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected whisper JSON cleanup, err=%v", err)
	}
}

func TestTranscriberEmptyResultStillSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Silent Cast", "Dead Air", "https://cdn.example.com/dead-air.mp3")
	audioPath := filepath.Join(cfg.Paths.DownloadDir, "dead-air.mp3")
	testsupport.WriteFile(t, audioPath, 1024)
	item.AudioPath = audioPath
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(fakeRunner(t, `{"transcription": []}`))
	handler := transcribe.NewTranscriberWithService(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := os.ReadFile(item.TranscriptPath)
	if err != nil {
		t.Fatalf("ReadFile transcript: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("transcript = %q, want empty file", got)
	}
	if item.ProgressMessage != "Transcribed 0 segments" {
		t.Fatalf("ProgressMessage = %q", item.ProgressMessage)
	}
}

func TestPrepareFailsWhenModelMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Show", "Ep", "https://cdn.example.com/ep.mp3")
	handler := transcribe.NewTranscriber(cfg, store, logging.NewNop())

	err := handler.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrModelLoad) {
		t.Fatalf("Prepare error = %v, want ErrModelLoad", err)
	}
	if details := services.Details(err); !strings.Contains(details.Message, "model download") {
		t.Fatalf("message %q should point at the download command", details.Message)
	}
}

func TestPrepareFailsWhenBinaryMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelFile("ggml-base.en.bin"))
	cfg.Speech.WhisperBinary = "podscribe-missing-whisper"
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Show", "Ep", "https://cdn.example.com/ep.mp3")
	handler := transcribe.NewTranscriber(cfg, store, logging.NewNop())

	err := handler.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrModelLoad) {
		t.Fatalf("Prepare error = %v, want ErrModelLoad", err)
	}
}

func TestExecuteClassifiesModelLoadFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Show", "Ep", "https://cdn.example.com/ep.mp3")
	audioPath := filepath.Join(cfg.Paths.DownloadDir, "ep.mp3")
	testsupport.WriteFile(t, audioPath, 1024)
	item.AudioPath = audioPath
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if filepath.Base(name) == "ffmpeg" {
			return os.WriteFile(args[len(args)-1], []byte("RIFFwav"), 0o644)
		}
		return errors.New("whisper-cli: exit status 1: error: failed to load model")
	})
	handler := transcribe.NewTranscriberWithService(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrModelLoad) {
		t.Fatalf("Execute error = %v, want ErrModelLoad", err)
	}
}

func TestExecuteConversionFailureIsTranscriptionError(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Show", "Ep", "https://cdn.example.com/ep.mp3")
	audioPath := filepath.Join(cfg.Paths.DownloadDir, "ep.mp3")
	testsupport.WriteFile(t, audioPath, 1024)
	item.AudioPath = audioPath
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("ffmpeg: exit status 1: invalid data found when processing input")
	})
	handler := transcribe.NewTranscriberWithService(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("Execute error = %v, want ErrTranscription", err)
	}
	if details := services.Details(err); details.Kind != services.KindTranscription {
		t.Fatalf("Kind = %q, want %q", details.Kind, services.KindTranscription)
	}
}

func TestExecuteMissingAudioIsStorageError(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Show", "Ep", "https://cdn.example.com/ep.mp3")
	item.AudioPath = filepath.Join(cfg.Paths.DownloadDir, "never-downloaded.mp3")
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(fakeRunner(t, whisperFixture))
	handler := transcribe.NewTranscriberWithService(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("Execute error = %v, want ErrStorage", err)
	}
}

func TestExecuteHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewEpisode(t, store, "Show", "Ep", "https://cdn.example.com/ep.mp3")
	audioPath := filepath.Join(cfg.Paths.DownloadDir, "ep.mp3")
	testsupport.WriteFile(t, audioPath, 1024)
	item.AudioPath = audioPath
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(func(runCtx context.Context, name string, args ...string) error {
		if filepath.Base(name) == "ffmpeg" {
			return os.WriteFile(args[len(args)-1], []byte("RIFFwav"), 0o644)
		}
		cancel()
		return runCtx.Err()
	})
	handler := transcribe.NewTranscriberWithService(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(ctx, item)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
	if item.TranscriptPath != "" {
		t.Fatalf("TranscriptPath = %q, want empty after cancellation", item.TranscriptPath)
	}
}

func TestTranscriberHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	store := testsupport.MustOpenStore(t, cfg)

	handler := transcribe.NewTranscriber(cfg, store, logging.NewNop())
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}

	missingModel := *cfg
	missingModel.Speech.ModelPath = filepath.Join(testsupport.BaseDir(cfg), "models", "ggml-absent.bin")
	unhealthy := transcribe.NewTranscriber(&missingModel, store, logging.NewNop())
	if health := unhealthy.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage when the model file is absent")
	}
}
