package api

import (
	"slices"
	"strings"

	"podscribe/internal/deps"
	"podscribe/internal/queue"
	"podscribe/internal/stage"
	"podscribe/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		PodcastTitle:   item.PodcastTitle,
		EpisodeTitle:   item.EpisodeTitle,
		FeedURL:        item.FeedURL,
		AudioURL:       item.AudioURL,
		AudioPath:      item.AudioPath,
		TranscriptPath: item.TranscriptPath,
		Status:         string(item.Status),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage: item.ErrorMessage,
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// DisplayTitle joins podcast and episode titles for human-facing output.
func (q QueueItem) DisplayTitle() string {
	podcast := strings.TrimSpace(q.PodcastTitle)
	episode := strings.TrimSpace(q.EpisodeTitle)
	switch {
	case podcast != "" && episode != "":
		return podcast + ": " + episode
	case episode != "":
		return episode
	case podcast != "":
		return podcast
	default:
		return "Untitled episode"
	}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{
			Name:   name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}
	return out
}

// FromDatabaseHealth converts store diagnostics into the API DTO.
func FromDatabaseHealth(health queue.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TableExists:      health.TableExists,
		ColumnsPresent:   append([]string(nil), health.ColumnsPresent...),
		MissingColumns:   append([]string(nil), health.MissingColumns...),
		IntegrityCheck:   health.IntegrityCheck,
		TotalItems:       health.TotalItems,
		Error:            health.Error,
	}
}

// FromDependencyStatuses converts dependency check results into API DTOs.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}
