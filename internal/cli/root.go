package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"zerodha-allocator/internal/config"
	"zerodha-allocator/internal/logging"
	"zerodha-allocator/internal/planner"
	"zerodha-allocator/internal/prices"
	"zerodha-allocator/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-09-30"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Resolver prices.Resolver
	Store    store.PlanStore
}

// NewApp wires the price resolver and plan store from configuration.
// Failures are logged and leave the dependency nil; commands that need it
// report the problem when they run.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Prices.Source == config.PriceSourceKite {
		resolver, err := prices.NewKiteResolver(prices.KiteConfig{
			APIKey:      cfg.Credentials.Zerodha.APIKey,
			AccessToken: cfg.Credentials.Zerodha.AccessToken,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Kite price source unavailable, using file prices only")
		} else {
			app.Resolver = resolver
			logger.Debug().Msg("Kite price resolver initialized")
		}
	}

	planStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open plan store, saving is unavailable")
	} else {
		app.Store = planStore
		logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	}

	return app
}

// Close releases the plan store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Planner returns a planner over the configured resolver. Static prices, when
// given, take precedence over the configured source.
func (a *App) Planner(static map[string]float64) *planner.Planner {
	var resolvers []prices.Resolver
	if len(static) > 0 {
		resolvers = append(resolvers, prices.NewStaticResolver(static))
	}
	if a.Resolver != nil {
		resolvers = append(resolvers, a.Resolver)
	}

	var resolver prices.Resolver
	switch len(resolvers) {
	case 0:
	case 1:
		resolver = resolvers[0]
	default:
		resolver = prices.NewChainResolver(resolvers...)
	}

	return planner.New(resolver, a.Store, a.Logger)
}

// commandContext bounds a command's work and carries a logger tagged with
// the command path.
func (a *App) commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	logger := a.Logger.With().Str("command", cmd.CommandPath()).Logger()
	ctx := logging.WithLogger(context.Background(), logger)
	return context.WithTimeout(ctx, timeout)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "allocator",
		Short: "Split investable funds across NSE/BSE instruments",
		Long: `Allocator turns a list of instruments and a budget into whole-share
buy quantities.

Rows are driven by target weight, rupee amount or share count. Locked rows
keep their inputs while the normalize commands redistribute the rest.
Prices come from the drafts file, a prices file or Kite Connect.

Use 'allocator <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/zerodha-allocator)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAllocateCmd(app))
	rootCmd.AddCommand(newNormalizeCmd(app))
	rootCmd.AddCommand(newPlanCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Zerodha Allocator v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "credentials",
		Short: "Create a credentials.toml template for Kite Connect",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path, err := config.WriteCredentialsTemplate(app.Config.Dir)
			if err != nil {
				return fmt.Errorf("writing credentials template: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Success("✓ Credentials template: %s", path)
			output.Dim("Fill in api_key and access_token, then set prices.source = \"kite\".")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Allocation")
	output.Printf("  Default Mode:     %s\n", cfg.Allocation.DefaultMode)
	output.Printf("  Decimals:         %d\n", cfg.Allocation.Decimals)
	output.Printf("  Min Qty Per Row:  %d\n", cfg.Allocation.MinQtyPerRow)
	output.Printf("  Require 100%%:     %v\n", cfg.Allocation.RequireWeightsSumTo100)
	output.Printf("  Optimize:         %v\n", cfg.Allocation.OptimizeWithRemainingFunds)
	output.Println()

	output.Bold("Prices")
	output.Printf("  Source:           %s\n", cfg.Prices.Source)
	output.Printf("  Default Exchange: %s\n", cfg.Prices.DefaultExchange)
	output.Printf("  Kite Credentials: %v\n", cfg.HasKiteCredentials())
	output.Println()

	output.Bold("Storage")
	output.Printf("  Plans DB:         %s\n", cfg.Store.Path)
	output.Printf("  Log File:         %s\n", cfg.Logging.FilePath)
	output.Printf("  Log Level:        %s\n", cfg.Logging.Level)
}
