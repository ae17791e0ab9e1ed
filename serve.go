package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/hablo/internal/auth"
	"github.com/example/hablo/internal/config"
	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/dictionary"
	"github.com/example/hablo/internal/flashcards"
	"github.com/example/hablo/internal/game"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/internal/notify"
	"github.com/example/hablo/internal/progress"
	"github.com/example/hablo/internal/scheduler"
	"github.com/example/hablo/internal/server"
	"github.com/example/hablo/internal/speech"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	progressWriteTimeout = 10 * time.Second
	shutdownTimeout      = 15 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
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
	log.Info("database ready", "driver", cfg.DBType)

	catalog, err := content.Load()
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	docs := database.NewDocumentRepository(db)
	persister := progress.NewPersister(progress.DocumentWriter{Docs: docs}, progressWriteTimeout, log)
	store := progress.NewStore(docs, persister, catalog.Successors, log)

	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if cfg.RedisAddr != "" {
		rd, err := auth.NewRedisDenylist(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rd.Close()
		denylist = rd
		log.Info("using redis token denylist", "addr", cfg.RedisAddr)
	}

	users := database.NewUserRepository(db)
	topics := database.NewTopicRepository(db)
	words := database.NewWordRepository(db)
	results := database.NewGameResultRepository(db)
	identity := auth.NewService(users, denylist, cfg.JWTSecret, cfg.TokenTTL, log)

	vocab := game.NewVocabularyBuilder(database.NewVocabularyStore(db), game.DefaultVocabularyConfig(),
		rand.New(rand.NewSource(time.Now().UnixNano())))
	games := game.NewManager(catalog, store, results, vocab, log)
	cards := flashcards.NewService(database.NewWordProgressRepository(db), words, topics, log)

	var recognizer speech.Recognizer = speech.Disabled{}
	if cfg.SpeechEnabled {
		gcfg := speech.DefaultGoogleConfig()
		gcfg.CredentialsFile = cfg.SpeechCredentialsFile
		recognizer, err = speech.NewGoogleRecognizer(ctx, gcfg, log)
		if err != nil {
			return err
		}
	}
	defer recognizer.Close()

	srv, err := server.New(server.Options{
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		Mode:        cfg.Mode,
		Version:     version,
	}, server.Deps{
		Identity:   identity,
		Progress:   store,
		Games:      games,
		Catalog:    catalog,
		Recognizer: recognizer,
		Dictionary: dictionary.New(cfg.DictionaryURL, log),
		Flashcards: cards,
		Topics:     topics,
		Words:      words,
		Users:      users,
		Statistics: database.NewStatisticsRepository(db),
		Results:    results,
	}, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var notifier notify.Notifier = notify.NewLog(log)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, log)
		if err != nil {
			return err
		}
		notifier = tg
		g.Go(func() error { return tg.Listen(gctx) })
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			NotificationStartHour: cfg.Scheduler.NotificationStartHour,
			NotificationEndHour:   cfg.Scheduler.NotificationEndHour,
			SessionIdleTimeout:    cfg.Scheduler.SessionIdleTimeout,
			StreakSweepAt:         cfg.Scheduler.StreakSweepAt,
		}, users, store, cards, games, notifier, log)
		if err := sched.Start(gctx); err != nil {
			return err
		}
	}

	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if sched != nil {
			sched.Stop()
		}
		games.Shutdown(shutdownCtx)
		if err := persister.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("flush progress: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}
