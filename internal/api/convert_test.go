package api

import (
	"testing"
	"time"

	"podscribe/internal/deps"
	"podscribe/internal/queue"
	"podscribe/internal/stage"
	"podscribe/internal/workflow"
)

func TestFromQueueItemMapsFields(t *testing.T) {
	heartbeat := time.Date(2026, time.March, 4, 12, 30, 0, 0, time.UTC)
	item := &queue.Item{
		ID:              42,
		PodcastTitle:    "Go Time",
		EpisodeTitle:    "Generics revisited",
		FeedURL:         "https://example.com/feed.xml",
		AudioURL:        "https://cdn.example.com/42.mp3",
		AudioPath:       "/data/downloads/42.mp3",
		TranscriptPath:  "/data/transcripts/42.txt",
		Status:          queue.StatusTranscribing,
		CreatedAt:       time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, time.March, 4, 12, 30, 0, 0, time.UTC),
		ProgressStage:   "transcribe",
		ProgressPercent: 55.5,
		ProgressMessage: "Transcribing audio",
		LastHeartbeat:   &heartbeat,
	}

	converted := FromQueueItem(item)
	if converted.ID != 42 || converted.PodcastTitle != "Go Time" || converted.EpisodeTitle != "Generics revisited" {
		t.Fatalf("identity fields not mapped: %+v", converted)
	}
	if converted.Status != string(queue.StatusTranscribing) {
		t.Fatalf("expected status %q, got %q", queue.StatusTranscribing, converted.Status)
	}
	if converted.Progress.Stage != "transcribe" || converted.Progress.Percent != 55.5 || converted.Progress.Message != "Transcribing audio" {
		t.Fatalf("progress not mapped: %+v", converted.Progress)
	}
	if converted.CreatedAt != "2026-03-04T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt %q", converted.CreatedAt)
	}
	if converted.UpdatedAt != "2026-03-04T12:30:00.000Z" {
		t.Fatalf("unexpected updatedAt %q", converted.UpdatedAt)
	}
}

func TestFromQueueItemZeroValues(t *testing.T) {
	converted := FromQueueItem(nil)
	if converted.ID != 0 || converted.Status != "" {
		t.Fatalf("expected zero value for nil item, got %+v", converted)
	}

	converted = FromQueueItem(&queue.Item{ID: 7, Status: queue.StatusQueued})
	if converted.CreatedAt != "" || converted.UpdatedAt != "" {
		t.Fatalf("zero timestamps should stay empty: %+v", converted)
	}
}

func TestQueueItemDisplayTitle(t *testing.T) {
	cases := []struct {
		name string
		item QueueItem
		want string
	}{
		{"both", QueueItem{PodcastTitle: "Go Time", EpisodeTitle: "Ep 1"}, "Go Time: Ep 1"},
		{"episode only", QueueItem{EpisodeTitle: "Ep 1"}, "Ep 1"},
		{"podcast only", QueueItem{PodcastTitle: "Go Time"}, "Go Time"},
		{"neither", QueueItem{}, "Untitled episode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.item.DisplayTitle(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFromStatusSummary(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:   true,
		LastError: "transcription failed",
		LastItem:  &queue.Item{ID: 9, EpisodeTitle: "Ep 9", Status: queue.StatusFailed},
		QueueStats: map[queue.Status]int{
			queue.StatusQueued:    3,
			queue.StatusCompleted: 5,
		},
		StageHealth: map[string]stage.Health{
			"transcriber": stage.Unhealthy("transcriber", "model missing"),
			"downloader":  stage.Healthy("downloader"),
		},
	}

	status := FromStatusSummary(summary)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.LastError != "transcription failed" {
		t.Fatalf("unexpected last error %q", status.LastError)
	}
	if status.LastItem == nil || status.LastItem.ID != 9 {
		t.Fatalf("last item not converted: %+v", status.LastItem)
	}
	if status.QueueStats["queued"] != 3 || status.QueueStats["completed"] != 5 {
		t.Fatalf("queue stats not merged: %+v", status.QueueStats)
	}
	if len(status.StageHealth) != 2 {
		t.Fatalf("expected 2 stage health entries, got %d", len(status.StageHealth))
	}
	if status.StageHealth[0].Name != "downloader" || status.StageHealth[1].Name != "transcriber" {
		t.Fatalf("stage health not sorted by name: %+v", status.StageHealth)
	}
	if status.StageHealth[1].Ready || status.StageHealth[1].Detail != "model missing" {
		t.Fatalf("unhealthy stage not mapped: %+v", status.StageHealth[1])
	}
}

func TestMergeQueueStats(t *testing.T) {
	merged := MergeQueueStats(map[queue.Status]int{
		queue.StatusDownloading: 1,
		queue.StatusFailed:      2,
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 entries, got %+v", merged)
	}
	if merged["downloading"] != 1 || merged["failed"] != 2 {
		t.Fatalf("counts lost in merge: %+v", merged)
	}
}

func TestFromDatabaseHealth(t *testing.T) {
	health := queue.DatabaseHealth{
		DBPath:           "/data/queue.db",
		DatabaseExists:   true,
		DatabaseReadable: true,
		SchemaVersion:    "current",
		TableExists:      true,
		ColumnsPresent:   []string{"id", "status"},
		IntegrityCheck:   true,
		TotalItems:       3,
	}

	converted := FromDatabaseHealth(health)
	if converted.DBPath != "/data/queue.db" || !converted.IntegrityCheck {
		t.Fatalf("diagnostics not mapped: %+v", converted)
	}
	if len(converted.ColumnsPresent) != 2 {
		t.Fatalf("columns not copied: %+v", converted.ColumnsPresent)
	}
	if converted.TotalItems != 3 {
		t.Fatalf("expected 3 items, got %d", converted.TotalItems)
	}

	health.ColumnsPresent[0] = "mutated"
	if converted.ColumnsPresent[0] != "id" {
		t.Fatalf("expected copied slice, got %+v", converted.ColumnsPresent)
	}
}

func TestFromDependencyStatuses(t *testing.T) {
	statuses := []deps.Status{
		{
			Name:        "whisper.cpp",
			Command:     "/usr/bin/whisper-cli",
			Description: "Required for transcription",
			Available:   true,
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Required for audio conversion",
			Detail:      `binary "ffmpeg" not found`,
		},
	}

	converted := FromDependencyStatuses(statuses)
	if len(converted) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(converted))
	}
	if !converted[0].Available || converted[0].Command != "/usr/bin/whisper-cli" {
		t.Fatalf("available dependency not mapped: %+v", converted[0])
	}
	if converted[1].Available || converted[1].Detail == "" {
		t.Fatalf("missing dependency not mapped: %+v", converted[1])
	}
}
