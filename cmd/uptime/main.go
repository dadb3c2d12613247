package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"uptime/internal/app"
	"uptime/pkg/config"
	"uptime/pkg/logger"
	"uptime/pkg/state/shutdown"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags config.Flags

	root := &cobra.Command{
		Use:   "uptime",
		Short: "JSON request dispatcher serving plain HTTP and HTTPS",
		Long: `uptime accepts requests on a plain and a TLS listener, routes them by
path to a built-in handler and answers with a JSON body.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eff, err := effectiveConfig(cmd, &flags)
			if err != nil {
				shutdown.Abort("failed to build effective config", err)
				return err
			}
			return serve(eff)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Config, "config", "c", "./config.yaml", "path to config file")
	pf.StringVar(&flags.Env, "env", "", "environment preset (staging or production)")
	root.Flags().IntVar(&flags.HTTPPort, "http-port", 0, "plain HTTP listen port")
	root.Flags().IntVar(&flags.HTTPSPort, "https-port", 0, "HTTPS listen port")
	root.Flags().StringVar(&flags.Engine, "engine", "", "server engine (nethttp or fasthttp)")

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eff, err := effectiveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			if err := config.ValidateConfig(eff); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok (source: %s, env: %s)\n", eff.Source, eff.Config.Env)
			return nil
		},
	})
	return root
}

// effectiveConfig merges file, env and flags. Flags changed on cmd or any
// of its parents count as set.
func effectiveConfig(cmd *cobra.Command, flags *config.Flags) (config.EffectiveConfigResult, error) {
	flags.Set = map[string]bool{}
	for _, name := range []string{"config", "env", "http-port", "https-port", "engine"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags.Set[name] = true
		}
	}

	fileCfg, path, found, err := config.ParseConfigFile(*flags)
	if err != nil {
		return config.EffectiveConfigResult{}, err
	}
	envCfg, envRes, err := config.ParseConfigEnvs()
	if err != nil {
		return config.EffectiveConfigResult{}, err
	}
	return config.LoadEffectiveConfig(*flags, fileCfg, path, found, envCfg, envRes)
}

func serve(eff config.EffectiveConfigResult) error {
	// validate config
	if err := config.ValidateConfig(eff); err != nil {
		shutdown.Abort("invalid configuration", err)
		return err
	}

	// initialize logger after config is fully loaded
	cfg := eff.Config
	logger.Init(cfg.Logging.Level, cfg.Logging.Sink)
	defer logger.Sync()

	logger.Info("effective_config_loaded", "source", eff.Source, "env", cfg.Env, "config_path", eff.ConfigPath)
	logger.LogConfigSummary("config_limits_summary", []string{
		"max_body_size: " + cfg.Server.MaxBodySize.String(),
		"reply_timeout: " + durationOrNone(cfg.Dispatch.ReplyTimeout),
		"rate_limit_rps: " + humanize.Ftoa(cfg.RateLimit.RPS),
		"routes: " + strings.Join(sortedRoutes(cfg.Routes), ", "),
	})

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("failed to initialize app", err)
		return err
	}

	// set up context and signal handling for graceful shutdown
	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("app run failed", err)
		return err
	}

	// shutdown the app with a bounded timeout so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	return a.Shutdown(shutdownCtx)
}
