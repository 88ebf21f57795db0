package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitCommand(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)
	requireContains(t, stdout, "PODCASTINDEX_API_KEY")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, section := range []string{"[podcastindex]", "[paths]", "[speech]"} {
		if !strings.Contains(string(data), section) {
			t.Fatalf("sample config missing section %s", section)
		}
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err == nil {
		t.Fatal("expected error when config already exists")
	}
	requireContains(t, err.Error(), "already exists")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"config", "show", "--path", env.configPath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "Config path: "+env.configPath)
	requireContains(t, stdout, "Download directory")
	requireContains(t, stdout, "Index credentials")
	requireContains(t, stdout, "set")
	requireContains(t, stdout, "Validation: OK")
}

func TestConfigShowMissingCredentials(t *testing.T) {
	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("PODCASTINDEX_API_KEY", "")
	t.Setenv("PODCASTINDEX_API_SECRET", "")

	stdout, _, err := runCLI(t, []string{"config", "show"}, "", "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "Config file does not exist")
	requireContains(t, stdout, "missing")
	if strings.Contains(stdout, "Validation: OK") {
		t.Fatalf("expected validation failure without credentials, got:\n%s", stdout)
	}
}
