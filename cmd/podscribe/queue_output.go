package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/internal/api"
)

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeQueueRetryResultJSON(cmd *cobra.Command, result queueRetryResult) error {
	type jsonItem struct {
		ID      int64  `json:"id"`
		Outcome string `json:"outcome"`
	}
	items := make([]jsonItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, jsonItem{ID: item.ID, Outcome: retryOutcomeString(item.Outcome)})
	}
	return writeJSON(cmd, map[string]any{"items": items, "updated": result.UpdatedCount})
}

func printQueueRetryResult(out io.Writer, result queueRetryResult) {
	for _, item := range result.Items {
		switch item.Outcome {
		case queueRetryOutcomeNotFound:
			fmt.Fprintf(out, "Item %d not found\n", item.ID)
		case queueRetryOutcomeNotFailed:
			fmt.Fprintf(out, "Item %d is not in failed state\n", item.ID)
		case queueRetryOutcomeUpdated:
			fmt.Fprintf(out, "Item %d reset for retry\n", item.ID)
		}
	}
}

func writeQueueRemoveResultJSON(cmd *cobra.Command, result queueRemoveResult) error {
	type jsonItem struct {
		ID      int64  `json:"id"`
		Outcome string `json:"outcome"`
	}
	items := make([]jsonItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, jsonItem{ID: item.ID, Outcome: removeOutcomeString(item.Outcome)})
	}
	return writeJSON(cmd, map[string]any{"items": items, "removed": result.RemovedCount})
}

func printQueueRemoveResult(out io.Writer, result queueRemoveResult) {
	for _, item := range result.Items {
		switch item.Outcome {
		case queueRemoveOutcomeNotFound:
			fmt.Fprintf(out, "Item %d not found\n", item.ID)
		case queueRemoveOutcomeRemoved:
			fmt.Fprintf(out, "Item %d removed\n", item.ID)
		}
	}
}

func printItemDetail(out io.Writer, item *api.QueueItem) {
	if item == nil {
		fmt.Fprintln(out, "Item not found")
		return
	}

	write := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "  %-12s %s\n", label+":", value)
	}

	fmt.Fprintf(out, "Item %d\n", item.ID)
	write("Podcast", item.PodcastTitle)
	write("Episode", item.EpisodeTitle)
	write("Status", formatStatusLabel(item.Status))
	write("Progress", formatProgress(item.Progress))
	write("Feed URL", item.FeedURL)
	write("Audio URL", item.AudioURL)
	write("Audio file", item.AudioPath)
	write("Transcript", item.TranscriptPath)
	write("Error", item.ErrorMessage)
	write("Created", formatDisplayTime(item.CreatedAt))
	write("Updated", formatDisplayTime(item.UpdatedAt))
}
