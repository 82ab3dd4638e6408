package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/app"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	applog "github.com/vovakirdan/wirechat-relay/internal/log"
)

var (
	configPath string
	overrides  config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wirechat-relay",
	Short: "Line-oriented TCP chat relay",
	Long: `wirechat-relay accepts TCP clients that register with "NICK <name>" and
routes private messages and kick commands between them.

Configuration is read from config.yaml (created with defaults when missing),
then WIRECHAT_* environment variables, then the flags below.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config.yaml")
	flags.StringVar(&overrides.Addr, "addr", "", "TCP listen address for the line protocol")
	flags.StringVar(&overrides.HTTPAddr, "http-addr", "", "ops HTTP listen address (empty disables)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&overrides.AuditDBPath, "audit-db", "", "SQLite audit trail path (empty disables)")
	flags.DurationVar(&overrides.IdleTimeout, "idle-timeout", 0, "disconnect after this long without a line")
}

func runServer(cmd *cobra.Command, _ []string) error {
	bootLog := applog.New("info", "console", os.Stderr)

	cfg, path, err := config.Load(bootLog, configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(overrides)

	logger := applog.New(cfg.LogLevel, cfg.LogFormat, nil)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("config", path).
		Str("addr", cfg.Addr).
		Str("http_addr", cfg.HTTPAddr).
		Msg("starting wirechat relay")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
