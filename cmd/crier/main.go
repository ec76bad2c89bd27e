package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewjhunter/crier"
	"github.com/matthewjhunter/crier/internal/articles"
	"github.com/matthewjhunter/crier/internal/config"
	"github.com/matthewjhunter/crier/internal/output"
	"github.com/matthewjhunter/crier/internal/storage"
)

var (
	configPath   string
	cfg          *config.Config
	outputFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crier",
		Short: "News articles by publish date, fetched once and kept",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init-config" {
				return nil
			}
			var err error
			cfg, err = config.Load(configPath)
			return err
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "output format: json, text, human (default: json)")

	rootCmd.AddCommand(articlesCmd())
	rootCmd.AddCommand(articleCmd())
	rootCmd.AddCommand(labelCmd())
	rootCmd.AddCommand(labeledCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(datesCmd())
	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(initConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openEngine builds an engine from the loaded config. Backfill digests go
// to stderr so they never mix with formatted output on stdout.
func openEngine() (*crier.Engine, error) {
	return crier.NewEngine(cfg, crier.EngineOptions{Digest: os.Stderr})
}

func articlesCmd() *cobra.Command {
	var (
		body   bool
		userID string
	)
	cmd := &cobra.Command{
		Use:   "articles <date>",
		Short: "List the articles published on a date, fetching them if needed",
		Long: `List the articles published on a date (YYYY-MM-DD or "today").
The first request for a date fetches it from the configured provider and
stores it; later requests are served from storage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			date := args[0]
			if date == "today" {
				date = engine.Today()
			}
			date, err = articles.ParseDate(date)
			if err != nil {
				return err
			}

			list, err := engine.GetArticles(ctx, date, body)
			if err != nil {
				return err
			}

			var labels map[string]storage.Label
			if userID != "" {
				if labels, err = engine.Labels(ctx, userID); err != nil {
					return err
				}
			}
			return formatter.OutputArticleList(date, output.Annotate(list, labels))
		},
	}
	cmd.Flags().BoolVarP(&body, "body", "b", false, "include article bodies")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "annotate articles with this user's labels")
	return cmd
}

func articleCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "article [content-key]",
		Short: "Show one stored article with its body",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))
			if (len(args) == 0) == (title == "") {
				return fmt.Errorf("give either a content key or --title")
			}

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			var a *crier.Article
			if title != "" {
				a, err = engine.GetArticleByTitle(cmd.Context(), title)
			} else {
				a, err = engine.GetArticle(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return formatter.OutputArticle(a)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "look the article up by title")
	return cmd
}

func labelCmd() *cobra.Command {
	var userID, date, label string
	cmd := &cobra.Command{
		Use:   "label <title>",
		Short: "Record a like, dislike or uncertain label for an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.RecordPreference(cmd.Context(), userID, args[0], date, label); err != nil {
				return err
			}
			lbl, _ := storage.ParseLabel(label)
			canonical, _ := articles.ParseDate(date)
			return formatter.OutputPreferenceRecorded(userID, args[0], canonical, lbl)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "publish date of the article, YYYY-MM-DD (required)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "like, dislike or uncertain (required)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("label")
	return cmd
}

func labeledCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "labeled <like|dislike|uncertain>",
		Short: "List the articles a user gave a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			list, err := engine.GetLabeled(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			lbl, _ := storage.ParseLabel(args[0])
			return formatter.OutputLabeled(userID, lbl, list)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID (required)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func backfillCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fetch and store every date in a range",
		Long: `Load every date from --start to --end inclusive. Dates already stored
are skipped; dates the provider fails on are reported and the walk continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if end == "" {
				end = engine.Today()
			}
			result, err := engine.Backfill(cmd.Context(), start, end)
			if outErr := formatter.OutputBackfillResult(result); outErr != nil {
				formatter.Warning("output failed: %v", outErr)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&start, "start", "s", "", "first date, YYYY-MM-DD (required)")
	cmd.Flags().StringVarP(&end, "end", "e", "", "last date, YYYY-MM-DD (default: today)")
	cmd.MarkFlagRequired("start")
	return cmd
}

func datesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List the dates that have been fetched",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			dates, err := engine.ListDates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list dates: %w", err)
			}
			return formatter.OutputDates(dates)
		},
	}
}

func enrichCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Tag stored articles with sentiment and entities using Ollama",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Enrich(cmd.Context(), limit)
			if err != nil {
				formatter.Warning("enrichment stopped early: %v", err)
			}
			return formatter.OutputEnrichResult(result)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of articles to enrich (0 for all)")
	return cmd
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = config.DefaultPath
			}
			if err := config.Write(configPath, config.Default()); err != nil {
				return err
			}
			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}
