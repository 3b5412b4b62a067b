package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"twitch-chat-viewer/comments"
	"twitch-chat-viewer/config"
	"twitch-chat-viewer/render"
	"twitch-chat-viewer/service"
	"twitch-chat-viewer/storage"
	"twitch-chat-viewer/twitch"
)

func newWatchCmd() *cobra.Command {
	var noConsole bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join the configured channel and print the filtered chat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), !noConsole)
		},
	}
	cmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read commands from stdin")
	return cmd
}

func runWatch(ctx context.Context, console bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	rules := comments.NewRules(cfg.Filter)
	store := comments.NewStore(rules, comments.WithActiveWindow(cfg.Schedule.ActiveWindow))
	printer := render.NewPrinter(os.Stdout)
	handler := service.NewHandler(store, printer)

	deps := service.Deps{
		Client:   twitch.NewClient(cfg.Twitch, handler),
		Store:    store,
		Handler:  handler,
		Printer:  printer,
		Schedule: cfg.Schedule,
	}
	if console {
		deps.Input = os.Stdin
	}

	if cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("pgxpool.New: %w", err)
		}
		defer pool.Close()

		prefs := storage.NewPreferences(pool, cfg.Postgres.Timeout)
		if err := prefs.EnsureSchema(ctx); err != nil {
			return err
		}
		deps.Repo = prefs
		deps.Saver = storage.NewSaver(ctx, prefs, storage.SaverConfig{
			FlushEvery:   time.Second,
			FlushTimeout: cfg.Postgres.Timeout,
		})
	} else {
		log.Println("настройки: POSTGRES_HOST не задан, правила берутся из окружения")
	}

	if err := service.New(deps).Run(ctx); err != nil {
		return fmt.Errorf("service run failed: %w", err)
	}

	log.Println("shutting down...")
	return nil
}
