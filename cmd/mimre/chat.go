package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The TUI owns the terminal; log lines would tear the screen.
		if !verbose {
			logger = zap.NewNop()
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.Run(cmd.Context(), a.selector)
	},
}
