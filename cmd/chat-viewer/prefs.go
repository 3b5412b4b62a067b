package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"twitch-chat-viewer/comments"
	"twitch-chat-viewer/config"
	"twitch-chat-viewer/service"
	"twitch-chat-viewer/storage"
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or edit filter preferences stored in Postgres",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print stored filter preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPreferences(cmd.Context(), func(ctx context.Context, prefs *storage.Preferences) error {
				rs, found, err := prefs.Load(ctx)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(cmd.OutOrStdout(), "no preferences stored yet")
				}
				printRules(cmd, rs)
				return nil
			})
		},
	})

	for _, name := range []string{"mute-user", "unmute-user", "mute-word", "unmute-word"} {
		cmd.AddCommand(newEditCmd(name))
	}

	return cmd
}

// editCommands сопоставляет подкомандам команды пульта.
var editCommands = map[string]string{
	"mute-user":   "/mute",
	"unmute-user": "/unmute",
	"mute-word":   "/mute-word",
	"unmute-word": "/unmute-word",
}

func newEditCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <value>",
		Short: strings.ReplaceAll(name, "-", " ") + " in stored preferences",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.Join(args, " ")
			return withPreferences(cmd.Context(), func(ctx context.Context, prefs *storage.Preferences) error {
				rs, _, err := prefs.Load(ctx)
				if err != nil {
					return err
				}
				service.EditList(&rs, editCommands[name], value)
				if err := prefs.Save(ctx, rs); err != nil {
					return err
				}
				printRules(cmd, rs)
				return nil
			})
		},
	}
}

func withPreferences(ctx context.Context, fn func(context.Context, *storage.Preferences) error) error {
	pg, err := config.LoadPostgres()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, pg.DSN())
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	prefs := storage.NewPreferences(pool, pg.Timeout)
	if err := prefs.EnsureSchema(ctx); err != nil {
		return err
	}
	return fn(ctx, prefs)
}

func printRules(cmd *cobra.Command, rs comments.RuleSet) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mute users:       %v %v\n", rs.MuteUserIDsEnabled, rs.MutedUserIDs)
	fmt.Fprintf(out, "mute words:       %v %v\n", rs.MuteWordsEnabled, rs.MutedWords)
	fmt.Fprintf(out, "suppress emotion: %v\n", rs.SuppressEmotion)
	fmt.Fprintf(out, "show debug:       %v\n", rs.ShowDebug)
}
