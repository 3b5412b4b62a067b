package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:           "chat-viewer",
		Short:         "Watch a Twitch chat with mute filters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newWatchCmd(), newPrefsCmd())

	if err := root.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("chat-viewer: %v", err)
		os.Exit(1)
	}
}
