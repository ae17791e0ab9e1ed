package main

import (
	"context"
	"fmt"

	"github.com/example/hablo/internal/config"
	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/excel"
	"github.com/example/hablo/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	cfg := excel.DefaultImportConfig()

	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Import vocabulary from a spreadsheet or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FilePath = args[0]
			return withStorage(cmd.Context(), func(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
				im := excel.NewImporter(database.NewTopicRepository(db), database.NewWordRepository(db), log)
				res, err := im.ImportFile(ctx, cfg)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "sheet to read (defaults to the active sheet)")
	f.IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first data row (1-based)")
	f.StringVar(&cfg.DefaultTopic, "topic", cfg.DefaultTopic, "topic for rows without one")
	f.StringVar(&cfg.SpanishColumn, "spanish-col", cfg.SpanishColumn, "column holding the Spanish word")
	f.StringVar(&cfg.EnglishColumn, "english-col", cfg.EnglishColumn, "column holding the translation")
	f.StringVar(&cfg.TopicColumn, "topic-col", cfg.TopicColumn, "column holding the topic")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed the built-in vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
				log.Info("schema ready")
				if !seed {
					return nil
				}
				catalog, err := content.Load()
				if err != nil {
					return fmt.Errorf("failed to load content: %w", err)
				}
				im := excel.NewImporter(database.NewTopicRepository(db), database.NewWordRepository(db), log)
				res, err := im.ImportRows(ctx, excel.SeedRows(catalog.Vocabulary()))
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "seed vocabulary topics and words")
	return cmd
}

// withStorage opens the configured database, which also applies the schema
func withStorage(ctx context.Context, fn func(context.Context, *sqlx.DB, *logger.Logger) error) error {
	cfg, err := config.LoadStorage()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Mode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg.DBType, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db, log)
}

func printResult(cmd *cobra.Command, res *excel.ImportResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "processed: %d\ntopics created: %d\nwords created: %d\nwords updated: %d\nskipped: %d\n",
		res.TotalProcessed, res.TopicsCreated, res.Created, res.Updated, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintln(out, "  ", e)
	}
}
