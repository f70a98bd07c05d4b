package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alucardeht/jurismap/internal/config"
	"github.com/alucardeht/jurismap/internal/logger"
	"github.com/alucardeht/jurismap/internal/rpc"
)

type globalOptions struct {
	configPath string
	mapsDir    string
	dbPath     string
	socketPath string
	logLevel   string
	testMode   bool
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "jurismap",
		Short:         "Import jurisdiction and court maps into a local store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("JURISMAP_CONFIG"), "YAML config file")
	flags.StringVar(&opts.mapsDir, "maps-dir", "", "Directory holding the manifest and descriptors")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	flags.StringVar(&opts.socketPath, "socket", "", "Daemon control socket")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.testMode, "test-mode", false, "Read the test manifest instead of the regular one")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	cmd.AddCommand(newPopulateCmd(&opts))
	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newReinitCmd(&opts))
	cmd.AddCommand(newMapsCmd(&opts))
	cmd.AddCommand(newLookupCmd(&opts))
	cmd.AddCommand(newStatusCmd(&opts))
	return cmd
}

// load resolves the configuration and initializes logging. Flags win over
// the file and the environment.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, withCode(exitConfig, err)
	}

	if o.mapsDir != "" {
		cfg.MapsDir = o.mapsDir
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}
	if o.socketPath != "" {
		cfg.SocketPath = o.socketPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("test-mode") {
		cfg.TestMode = o.testMode
	}

	if err := cfg.Validate(); err != nil {
		return nil, withCode(exitConfig, err)
	}

	logger.Init(cfg.Logger())
	return cfg, nil
}

func dialDaemon(ctx context.Context, cfg *config.Config) (*rpc.Client, error) {
	client, err := rpc.Dial(ctx, cfg.SocketPath)
	if err != nil {
		return nil, withCode(exitNoDaemon, fmt.Errorf("daemon not reachable at %s: %w", cfg.SocketPath, err))
	}
	return client, nil
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
