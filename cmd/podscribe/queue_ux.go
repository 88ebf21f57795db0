package main

import (
	"context"
	"strings"

	"podscribe/internal/queue"
	"podscribe/internal/queueaccess"
)

// retryIDs validates each ID and retries eligible items.
// Works identically for IPC and direct-store paths.
func retryIDs(ctx context.Context, access queueaccess.Access, ids []int64) (queueRetryResult, error) {
	result := queueRetryResult{
		Items: make([]queueRetryItemResult, 0, len(ids)),
	}

	for _, id := range ids {
		item, err := access.Describe(ctx, id)
		if err != nil {
			if isNotFoundErr(err) {
				result.Items = append(result.Items, queueRetryItemResult{ID: id, Outcome: queueRetryOutcomeNotFound})
				continue
			}
			return queueRetryResult{}, err
		}
		if item == nil || !statusIsRetryable(item.Status) {
			result.Items = append(result.Items, queueRetryItemResult{ID: id, Outcome: queueRetryOutcomeNotFailed})
			continue
		}

		updated, err := access.Retry(ctx, []int64{id})
		if err != nil {
			return queueRetryResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, queueRetryItemResult{ID: id, Outcome: queueRetryOutcomeUpdated})
			continue
		}

		result.Items = append(result.Items, queueRetryItemResult{ID: id, Outcome: queueRetryOutcomeNotFailed})
	}

	return result, nil
}

// removeIDs deletes items one at a time so each ID can report its own outcome.
func removeIDs(ctx context.Context, access queueaccess.Access, ids []int64) (queueRemoveResult, error) {
	result := queueRemoveResult{
		Items: make([]queueRemoveItemResult, 0, len(ids)),
	}

	for _, id := range ids {
		removed, err := access.Remove(ctx, []int64{id})
		if err != nil {
			return queueRemoveResult{}, err
		}
		if removed > 0 {
			result.RemovedCount += removed
			result.Items = append(result.Items, queueRemoveItemResult{ID: id, Outcome: queueRemoveOutcomeRemoved})
			continue
		}
		result.Items = append(result.Items, queueRemoveItemResult{ID: id, Outcome: queueRemoveOutcomeNotFound})
	}

	return result, nil
}

func statusIsRetryable(value string) bool {
	status, ok := queue.ParseStatus(value)
	return ok && status == queue.StatusFailed
}

// isNotFoundErr matches the not-found error both backends produce. IPC
// flattens errors to strings, so a sentinel comparison cannot work here.
func isNotFoundErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
