package workflow_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
	"podscribe/internal/stage"
	"podscribe/internal/testsupport"
	"podscribe/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Item)
	executeHook func(*queue.Item)
	executeFunc func(context.Context, *queue.Item) error
	prepareErr  error
	executeErr  error
	health      stage.Health

	executeCalls atomic.Int64
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, item *queue.Item) error {
	if s.prepareHook != nil {
		s.prepareHook(item)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(ctx context.Context, item *queue.Item) error {
	s.executeCalls.Add(1)
	if s.executeFunc != nil {
		return s.executeFunc(ctx, item)
	}
	if s.executeHook != nil {
		s.executeHook(item)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	return cfg
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		updated, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status == want {
			return updated
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerProcessesItems(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	downloader := newStubStage("download")
	downloader.executeHook = func(item *queue.Item) {
		item.AudioPath = "/tmp/episode.mp3"
	}
	transcriber := newStubStage("transcribe")
	transcriber.executeHook = func(item *queue.Item) {
		item.TranscriptPath = "/tmp/episode.txt"
	}

	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Downloader:  downloader,
		Transcriber: transcriber,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item := testsupport.NewEpisode(t, store, "Systems Weekly", "Episode 7", "https://cdn.example.com/ep7.mp3")

	final := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if final.AudioPath == "" || final.TranscriptPath == "" {
		t.Fatalf("expected stage hooks to record paths, got %+v", final)
	}
	if final.ProgressStage != "Completed" {
		t.Fatalf("expected progress stage 'Completed', got %q", final.ProgressStage)
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("expected progress percent 100, got %v", final.ProgressPercent)
	}

	notifier.waitFor(t, notifications.EventQueueCompleted)
	if got := notifier.count(notifications.EventQueueStarted); got != 1 {
		t.Fatalf("expected one queue start notification, got %d", got)
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := newStubStage("download")
	handler.health = stage.Unhealthy(handler.name, "download directory not writable")

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{Downloader: handler})

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("expected workflow to report not running before Start")
	}
	health, ok := status.StageHealth[handler.name]
	if !ok {
		t.Fatalf("expected stage health entry for %s", handler.name)
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != "download directory not writable" {
		t.Fatalf("unexpected health detail %q", health.Detail)
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	if err := mgr.Start(context.Background()); err == nil {
		mgr.Stop()
		t.Fatal("expected Start to fail without configured stages")
	}
}

func TestManagerPrepareFailureFailsWithoutProcessing(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	downloader := newStubStage("download")
	downloader.prepareErr = services.Wrap(services.ErrNoAudio, "download", "validate enclosure",
		"Episode has no audio enclosure", nil)

	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Downloader: downloader})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item := testsupport.NewEpisode(t, store, "Systems Weekly", "No Enclosure", "https://cdn.example.com/missing.mp3")

	failed := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if got := downloader.executeCalls.Load(); got != 0 {
		t.Fatalf("expected Execute never to run after Prepare failure, got %d calls", got)
	}
	if !strings.Contains(failed.ErrorMessage, "Episode has no audio enclosure") {
		t.Fatalf("expected guard message in error, got %q", failed.ErrorMessage)
	}
	if failed.ProgressStage != "Failed" {
		t.Fatalf("expected progress stage 'Failed', got %q", failed.ProgressStage)
	}

	payload := notifier.waitFor(t, notifications.EventError)
	wantContext := fmt.Sprintf("download (item #%d)", item.ID)
	if payload["context"] != wantContext {
		t.Fatalf("expected error context %q, got %v", wantContext, payload["context"])
	}
}

func TestManagerFailureDefaultsToFailed(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	failing := newStubStage("download")
	failing.executeErr = fmt.Errorf("boom")

	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Downloader: failing})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item := testsupport.NewEpisode(t, store, "Systems Weekly", "Flaky Episode", "https://cdn.example.com/flaky.mp3")

	failed := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message to be populated")
	}
	if failed.ProgressStage != "Failed" {
		t.Fatalf("expected progress stage 'Failed', got %q", failed.ProgressStage)
	}
	if got := notifier.count(notifications.EventError); got == 0 {
		t.Fatal("expected an error notification")
	}
}

func TestManagerShutdownLeavesItemReclaimable(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	started := make(chan struct{})
	blocking := newStubStage("download")
	blocking.executeFunc = func(ctx context.Context, _ *queue.Item) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &stubNotifier{})
	mgr.ConfigureStages(workflow.StageSet{Downloader: blocking})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	item := testsupport.NewEpisode(t, store, "Systems Weekly", "Interrupted", "https://cdn.example.com/interrupted.mp3")

	select {
	case <-started:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for stage to start")
	}
	mgr.Stop()

	interrupted, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if interrupted.Status != queue.StatusDownloading {
		t.Fatalf("expected interrupted item to stay in downloading, got %s", interrupted.Status)
	}

	reclaimed, err := mgr.ResetStuckProcessing(context.Background())
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected one reclaimed item, got %d", reclaimed)
	}
	recovered, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if recovered.Status != queue.StatusQueued {
		t.Fatalf("expected recovered item to be queued, got %s", recovered.Status)
	}
}
