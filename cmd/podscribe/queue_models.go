package main

type queueRetryOutcome int

const (
	queueRetryOutcomeUpdated queueRetryOutcome = iota
	queueRetryOutcomeNotFound
	queueRetryOutcomeNotFailed
)

type queueRetryItemResult struct {
	ID      int64
	Outcome queueRetryOutcome
}

type queueRetryResult struct {
	UpdatedCount int64
	Items        []queueRetryItemResult
}

func retryOutcomeString(o queueRetryOutcome) string {
	switch o {
	case queueRetryOutcomeUpdated:
		return "retried"
	case queueRetryOutcomeNotFound:
		return "not_found"
	case queueRetryOutcomeNotFailed:
		return "not_failed"
	default:
		return "unknown"
	}
}

type queueRemoveOutcome int

const (
	queueRemoveOutcomeRemoved queueRemoveOutcome = iota
	queueRemoveOutcomeNotFound
)

type queueRemoveItemResult struct {
	ID      int64
	Outcome queueRemoveOutcome
}

type queueRemoveResult struct {
	RemovedCount int64
	Items        []queueRemoveItemResult
}

func removeOutcomeString(o queueRemoveOutcome) string {
	switch o {
	case queueRemoveOutcomeRemoved:
		return "removed"
	case queueRemoveOutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
