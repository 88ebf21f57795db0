package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podscribe/internal/config"
	"podscribe/internal/feed"
	"podscribe/internal/podcastindex"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search podcastindex.org for podcasts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := buildIndexClient(cfg)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			feeds, err := client.Search(commandCtx(cmd), query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(feeds) == 0 {
				fmt.Fprintf(out, "No podcasts found for %q\n", query)
				return nil
			}

			rows := make([][]string, 0, len(feeds))
			for i, f := range feeds {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), f.Title, f.FeedURL})
			}
			table := renderTable(
				[]string{"#", "Title", "Feed URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			)
			fmt.Fprint(out, table)
			fmt.Fprintln(out, "\nList episodes with `podscribe episodes <feed-url>`")
			return nil
		},
	}
}

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <feed-url>",
		Short: "List the latest episodes of a podcast feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			resolver := feed.NewResolver()
			resolved, err := resolver.Resolve(commandCtx(cmd), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if title := strings.TrimSpace(resolved.Title); title != "" {
				fmt.Fprintln(out, title)
			}
			if len(resolved.Episodes) == 0 {
				fmt.Fprintln(out, "Feed lists no episodes")
				return nil
			}

			rows := make([][]string, 0, len(resolved.Episodes))
			for i, episode := range resolved.Episodes {
				title := strings.TrimSpace(episode.Title)
				if title == "" {
					title = "Untitled episode"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", i),
					title,
					yesNo(episode.HasAudio()),
				})
			}
			table := renderTable(
				[]string{"#", "Title", "Audio"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			)
			fmt.Fprint(out, table)
			fmt.Fprintln(out, "\nQueue one with `podscribe enqueue <feed-url> --episode <#>`")
			return nil
		},
	}
}

func buildIndexClient(cfg *config.Config) (*podcastindex.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration unavailable")
	}
	opts := []podcastindex.Option{
		podcastindex.WithBaseURL(cfg.PodcastIndex.BaseURL),
		podcastindex.WithUserAgent(cfg.PodcastIndex.UserAgent),
	}
	if cfg.PodcastIndex.RequestTimeout > 0 {
		opts = append(opts, podcastindex.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.PodcastIndex.RequestTimeout) * time.Second,
		}))
	}
	return podcastindex.New(cfg.PodcastIndex.APIKey, cfg.PodcastIndex.APISecret, opts...)
}
