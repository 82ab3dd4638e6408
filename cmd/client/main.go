package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/client"
)

var cfg client.Config

var rootCmd = &cobra.Command{
	Use:   "wirechat-client",
	Short: "Interactive terminal client for wirechat-relay",
	Long: `wirechat-client connects to a relay, registers a nickname and then
forwards every typed line. Missing address or nickname are prompted for.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return client.Run(ctx, cfg, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfg.Addr, "addr", client.DefaultAddr, "server address (ip:port); empty prompts for it")
	rootCmd.Flags().StringVar(&cfg.Nick, "nick", "", "nickname to register")
	rootCmd.Flags().DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", 5*time.Second, "how long to wait for WELCOME")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
