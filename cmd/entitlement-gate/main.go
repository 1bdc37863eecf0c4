package main

import (
	"errors"
	"os"

	"github.com/brizzai/entitlement-gate/internal/auth"
	"github.com/brizzai/entitlement-gate/internal/auth/flow"
	"github.com/brizzai/entitlement-gate/internal/auth/policy"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/auth/session"
	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/brizzai/entitlement-gate/internal/logger"
	"github.com/brizzai/entitlement-gate/internal/metrics"
	"github.com/brizzai/entitlement-gate/internal/requester"
	"github.com/brizzai/entitlement-gate/internal/server"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "entitlement-gate",
	Short: "Whop OAuth login with a product entitlement check",
	Long: `entitlement-gate sends the browser through Whop OAuth, checks that the user owns
one of the paid products and hands the frontend a session marker cookie.`,
	SilenceUsage: true,
	RunE:         run,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.Flags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			pterm.Error.Println("Set WHOP_CLIENT_ID and WHOP_CLIENT_SECRET before starting the gate")
		}
		return err
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", config.GetVersionInfo()),
		zap.String("session_strategy", string(cfg.Session.Strategy)),
		zap.String("ticket_store", string(cfg.Session.TicketStore)),
		zap.String("frontend_url", cfg.Frontend.URL),
		zap.Bool("owner_bypass", cfg.Access.OwnerEmail != ""),
	)

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		fx.Supply(cfg),
		config.Module,
		requester.Module,
		providers.Module,
		policy.Module,
		session.Module,
		metrics.Module,
		flow.Module,
		auth.Module,
		server.Module,
	)
	app.Run()
	return app.Err()
}
