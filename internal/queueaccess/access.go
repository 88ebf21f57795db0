// Package queueaccess gives CLI commands one queue surface that works whether
// or not the daemon is running: IPC-backed when the socket answers, direct
// store access otherwise.
package queueaccess

import (
	"context"
	"fmt"

	"podscribe/internal/api"
	"podscribe/internal/config"
	"podscribe/internal/ipc"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
)

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	Enqueue(ctx context.Context, feedURL string, episodeIndex int, podcastTitle string) (*api.QueueItem, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	DatabaseHealth(ctx context.Context) (api.DatabaseHealth, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access. The config is
// needed for the enqueue path, which resolves feeds and publishes
// notifications without a daemon.
func NewStoreAccess(cfg *config.Config, store *queue.Store) Access {
	return &storeAccess{
		cfg:     cfg,
		store:   store,
		service: api.NewQueueService(store),
	}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Describe(_ context.Context, id int64) (*api.QueueItem, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

func (a *ipcAccess) Enqueue(_ context.Context, feedURL string, episodeIndex int, podcastTitle string) (*api.QueueItem, error) {
	resp, err := a.client.Enqueue(ipc.EnqueueRequest{
		FeedURL:      feedURL,
		EpisodeIndex: episodeIndex,
		PodcastTitle: podcastTitle,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

func (a *ipcAccess) ClearAll(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearCompleted(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearFailed(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ResetStuck(_ context.Context) (int64, error) {
	resp, err := a.client.QueueReset()
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) RetryAll(_ context.Context) (int64, error) {
	resp, err := a.client.QueueRetry(nil)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) DatabaseHealth(_ context.Context) (api.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return api.DatabaseHealth{}, err
	}
	return resp.Health, nil
}

type storeAccess struct {
	cfg     *config.Config
	store   *queue.Store
	service *api.QueueService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	item, err := a.service.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("queue item %d not found", id)
	}
	return item, nil
}

func (a *storeAccess) Enqueue(ctx context.Context, feedURL string, episodeIndex int, podcastTitle string) (*api.QueueItem, error) {
	var notifier notifications.Service
	if a.cfg != nil {
		notifier = notifications.NewService(a.cfg)
	}
	result, err := api.EnqueueEpisode(ctx, api.EnqueueRequest{
		Store:        a.store,
		Notifier:     notifier,
		Logger:       logging.NewNop(),
		FeedURL:      feedURL,
		EpisodeIndex: episodeIndex,
		PodcastTitle: podcastTitle,
	})
	if err != nil {
		return nil, err
	}
	item := api.FromQueueItem(result.Item)
	return &item, nil
}

func (a *storeAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *storeAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := a.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *storeAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *storeAccess) DatabaseHealth(ctx context.Context) (api.DatabaseHealth, error) {
	health, err := a.store.CheckHealth(ctx)
	if err != nil && health.Error == "" {
		return api.DatabaseHealth{}, err
	}
	return api.FromDatabaseHealth(health), nil
}
