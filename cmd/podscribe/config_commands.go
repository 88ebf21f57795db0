package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/internal/config"
	"podscribe/internal/language"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set podcastindex api_key and api_secret (or export PODCASTINDEX_API_KEY and PODCASTINDEX_API_SECRET) before running podscribe.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.LoadWithoutValidation(strings.TrimSpace(targetPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file does not exist; showing defaults (run `podscribe config init`)")
			}
			fmt.Fprintln(out)

			writeConfigValue(out, "Data directory", cfg.Paths.DataDir)
			writeConfigValue(out, "Download directory", cfg.Paths.DownloadDir)
			writeConfigValue(out, "Transcript directory", cfg.Paths.TranscriptDir)
			writeConfigValue(out, "Work directory", cfg.Paths.WorkDir)
			writeConfigValue(out, "Log directory", cfg.Paths.LogDir)
			writeConfigValue(out, "Model cache", cfg.Paths.ModelCacheDir)
			fmt.Fprintln(out)

			writeConfigValue(out, "Index base URL", cfg.PodcastIndex.BaseURL)
			writeConfigValue(out, "Index credentials", credentialState(cfg))
			fmt.Fprintln(out)

			model := cfg.Speech.Model
			if cfg.Speech.ModelPath != "" {
				model = cfg.Speech.ModelPath
			}
			writeConfigValue(out, "Whisper model", model)
			writeConfigValue(out, "Whisper binary", cfg.WhisperBinary())
			writeConfigValue(out, "FFmpeg binary", cfg.FFmpegBinary())
			if lang := language.Normalize(cfg.Speech.Language); lang != "" {
				writeConfigValue(out, "Language", fmt.Sprintf("%s (%s)", lang, language.DisplayName(lang)))
			}
			if cfg.Speech.Threads > 0 {
				writeConfigValue(out, "Threads", strconv.Itoa(cfg.Speech.Threads))
			}
			fmt.Fprintln(out)

			writeConfigValue(out, "Log format", cfg.Logging.Format)
			writeConfigValue(out, "Log level", cfg.Logging.Level)
			writeConfigValue(out, "Log retention", fmt.Sprintf("%d days", cfg.Logging.RetentionDays))
			if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
				writeConfigValue(out, "Ntfy topic", topic)
			}
			fmt.Fprintln(out)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "Validation: %v\n", err)
				return nil
			}
			fmt.Fprintln(out, "Validation: OK")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Configuration file to show (defaults to the resolved path)")
	return cmd
}

func writeConfigValue(out io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	fmt.Fprintf(out, "  %-20s %s\n", label, value)
}

// credentialState reports whether index credentials are configured without
// echoing the secrets themselves.
func credentialState(cfg *config.Config) string {
	if cfg.PodcastIndex.APIKey != "" && cfg.PodcastIndex.APISecret != "" {
		return "set"
	}
	if cfg.PodcastIndex.APIKey == "" && cfg.PodcastIndex.APISecret == "" {
		return "missing (set PODCASTINDEX_API_KEY and PODCASTINDEX_API_SECRET)"
	}
	return "incomplete (both api_key and api_secret are required)"
}
