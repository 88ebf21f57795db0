package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/internal/queueaccess"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var episodeIndex int
	var podcastTitle string

	cmd := &cobra.Command{
		Use:   "enqueue <feed-url>",
		Short: "Queue a feed episode for download and transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedURL := strings.TrimSpace(args[0])
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Enqueue(commandCtx(cmd), feedURL, episodeIndex, podcastTitle)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("enqueue returned no item")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %q as item %d\n", item.DisplayTitle(), item.ID)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&episodeIndex, "episode", "e", 0, "Episode number from `podscribe episodes` (0 is the first listed)")
	cmd.Flags().StringVar(&podcastTitle, "podcast-title", "", "Override the podcast title stored with the item")
	return cmd
}
