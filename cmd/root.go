package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vibeify/config"
	"vibeify/logger"
)

// NewRootCommand builds the vibeify command tree. The root command serves
// the HTTP API; "scan" runs a single synchronizer pass.
func NewRootCommand() *cobra.Command {
	v := config.New()
	var configPath string

	root := &cobra.Command{
		Use:           "vibeify",
		Short:         "Media library backend: scan, sync and stream audio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := setup(ctx, v, configPath)
			if err != nil {
				return err
			}
			defer closeApp(app)
			return app.Serve(ctx)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a config file (yaml, json or toml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("force", false, "re-extract and rewrite every file in the catalog")
	flags.String("media-dir", "", "directory scanned for audio files")
	root.Flags().Int("port", 8000, "HTTP port")

	mustBind(v, root, "debug", "debug")
	mustBind(v, root, "force_resync", "force")
	mustBind(v, root, "media.dir", "media-dir")
	mustBind(v, root, "server.port", "port")

	root.AddCommand(newScanCommand(v, &configPath))
	return root
}

func newScanCommand(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one synchronizer pass and print its summary as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd.Context(), v, *configPath)
			if err != nil {
				return err
			}
			defer closeApp(app)

			summary, err := app.Scan(cmd.Context(), app.cfg.ForceResync)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}

func setup(ctx context.Context, v *viper.Viper, configPath string) (*App, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewApp(ctx, cfg, log, os.Stderr)
}

func closeApp(app *App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.Close(ctx)
}

// mustBind ties a flag of cmd to a config key; only an unknown flag can fail
func mustBind(v *viper.Viper, cmd *cobra.Command, key, name string) {
	flag := cmd.PersistentFlags().Lookup(name)
	if flag == nil {
		flag = cmd.Flags().Lookup(name)
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
