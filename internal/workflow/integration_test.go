package workflow_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"podscribe/internal/download"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/testsupport"
	"podscribe/internal/transcribe"
	"podscribe/internal/workflow"
)

const integrationWhisperJSON = `{
  "transcription": [
    {"text": " Welcome back.", "offsets": {"from": 0, "to": 1800}},
    {"text": " Let's talk about work queues.", "offsets": {"from": 1800, "to": 5200}}
  ]
}`

func TestWorkflowIntegrationEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithModelFile("ggml-base.en.bin"),
		testsupport.WithStubbedBinaries(),
	)
	cfg.Workflow.QueuePollInterval = 0

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	notifier := &stubNotifier{}

	audio := []byte(strings.Repeat("podcast-audio ", 4096))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
		_, _ = w.Write(audio)
	}))
	t.Cleanup(srv.Close)

	downloader := download.NewDownloader(cfg, store, logger, download.WithNotifier(notifier))

	svc := transcribe.NewService(cfg)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		switch filepath.Base(name) {
		case "ffmpeg":
			return os.WriteFile(args[len(args)-1], []byte("RIFFwav"), 0o644)
		case "whisper-cli":
			prefix := ""
			for i, arg := range args {
				if arg == "-of" && i+1 < len(args) {
					prefix = args[i+1]
				}
			}
			return os.WriteFile(prefix+".json", []byte(integrationWhisperJSON), 0o644)
		default:
			return fmt.Errorf("unexpected binary %q", name)
		}
	})
	transcriber := transcribe.NewTranscriberWithDependencies(cfg, store, logger, svc, notifier)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Downloader:  downloader,
		Transcriber: transcriber,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("manager.Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item := testsupport.NewEpisode(t, store, "Systems Weekly", "Episode 12", srv.URL+"/episodes/episode-12.mp3")

	deadline := time.After(120 * time.Second)
	var final *queue.Item
	for final == nil {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for workflow completion")
		default:
		}
		updated, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("store.GetByID: %v", err)
		}
		if updated.Status == queue.StatusFailed {
			t.Fatalf("workflow failed: %s", updated.ErrorMessage)
		}
		if updated.Status == queue.StatusCompleted {
			final = updated
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if filepath.Base(final.AudioPath) != "episode-12.mp3" {
		t.Fatalf("unexpected audio path %q", final.AudioPath)
	}
	downloaded, err := os.ReadFile(final.AudioPath)
	if err != nil {
		t.Fatalf("read downloaded audio: %v", err)
	}
	if len(downloaded) != len(audio) {
		t.Fatalf("expected %d downloaded bytes, got %d", len(audio), len(downloaded))
	}

	if filepath.Base(final.TranscriptPath) != "episode-12.txt" {
		t.Fatalf("unexpected transcript path %q", final.TranscriptPath)
	}
	transcript, err := os.ReadFile(final.TranscriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	wantTranscript := "Welcome back.\nLet's talk about work queues.\n"
	if string(transcript) != wantTranscript {
		t.Fatalf("unexpected transcript %q", string(transcript))
	}

	if final.ProgressStage != "Completed" {
		t.Fatalf("expected progress stage 'Completed', got %q", final.ProgressStage)
	}
	if final.ProgressMessage != "Transcribed 2 segments" {
		t.Fatalf("unexpected progress message %q", final.ProgressMessage)
	}

	scratch, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(scratch) != 0 {
		t.Fatalf("expected scratch files to be cleaned up, found %d", len(scratch))
	}

	notifier.waitFor(t, notifications.EventQueueCompleted)
	if got := notifier.count(notifications.EventDownloadStarted); got != 1 {
		t.Fatalf("expected one download start event, got %d", got)
	}
	downloadDone := notifier.waitFor(t, notifications.EventDownloadCompleted)
	if size, _ := downloadDone["size"].(string); size == "" {
		t.Fatal("expected download completion event to carry a size")
	}
	transcriptDone := notifier.waitFor(t, notifications.EventTranscriptCompleted)
	if transcriptDone["transcript"] != final.TranscriptPath {
		t.Fatalf("expected transcript event to carry %q, got %v", final.TranscriptPath, transcriptDone["transcript"])
	}
	if got := notifier.count(notifications.EventQueueStarted); got != 1 {
		t.Fatalf("expected one queue start event, got %d", got)
	}
}
