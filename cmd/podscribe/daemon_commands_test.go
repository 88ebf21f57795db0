package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"podscribe/internal/queue"
	"podscribe/internal/testsupport"
)

func TestDaemonStartAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	// The stop command is not exercised here: the daemon shares the test
	// process and a real stop would terminate the test binary.

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status before start: %v", err)
	}
	requireContains(t, out, "Not running")

	out, _, err = runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon started")

	waitFor(t, 2*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, "Running (pid")
	})

	ctx := context.Background()
	testsupport.NewEpisode(t, env.store, "Go Time", "Episode One", "https://cdn.example.com/one.mp3")
	failed := testsupport.NewEpisode(t, env.store, "Go Time", "Episode Two", "https://cdn.example.com/two.mp3")
	failed.Status = queue.StatusFailed
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("update status: %v", err)
	}

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "Ready (command:")
	requireContains(t, out, "Queue Status")
	requireContains(t, out, "Queued")
	requireContains(t, out, "Failed")
}

func TestDaemonStartAlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon started")

	out, _, err = runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}
