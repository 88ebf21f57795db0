package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"podscribe/internal/transcribe"
)

func newModelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage whisper model files",
	}
	cmd.AddCommand(newModelListCommand(ctx))
	cmd.AddCommand(newModelDownloadCommand(ctx))
	return cmd
}

func newModelListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known whisper models and their install state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			cacheDir := ""
			if cfg != nil {
				cacheDir = cfg.Paths.ModelCacheDir
			}

			rows := make([][]string, 0, len(transcribe.Presets()))
			for _, preset := range transcribe.Presets() {
				rows = append(rows, []string{
					preset.Name,
					fmt.Sprintf("%d MB", preset.SizeMB),
					yesNo(modelInstalled(cacheDir, preset)),
				})
			}

			table := renderTable(
				[]string{"Name", "Size", "Downloaded"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Install one with `podscribe model download <name>`")
			return nil
		},
	}
}

func newModelDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <name>",
		Short: "Download a whisper model into the cache directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, ok := transcribe.LookupPreset(args[0])
			if !ok {
				return fmt.Errorf("unknown model %q; run `podscribe model list` to see available models", args[0])
			}

			cfg := ctx.configValue()
			if cfg == nil {
				return fmt.Errorf("configuration unavailable")
			}

			stdout := cmd.OutOrStdout()
			if modelInstalled(cfg.Paths.ModelCacheDir, preset) {
				fmt.Fprintf(stdout, "Model %s already installed\n", preset.Name)
				return nil
			}

			fmt.Fprintf(stdout, "Downloading %s (%d MB)...\n", preset.Name, preset.SizeMB)
			lastStep := -1
			progress := func(written, total int64) {
				if total <= 0 {
					return
				}
				step := int(written * 10 / total)
				if step > lastStep {
					lastStep = step
					fmt.Fprintf(stdout, "  %s%%\n", strconv.Itoa(step*10))
				}
			}

			path, err := transcribe.DownloadModel(commandCtx(cmd), nil, preset, cfg.Paths.ModelCacheDir, progress)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Model installed at %s\n", path)
			return nil
		},
	}
}

func modelInstalled(cacheDir string, preset transcribe.Preset) bool {
	if cacheDir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(cacheDir, preset.Filename))
	return err == nil && info.Size() > 0
}
