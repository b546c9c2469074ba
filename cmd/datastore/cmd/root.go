package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/busgps/datastore"
)

var rootCmd = &cobra.Command{
	Use:   "datastore",
	Short: "Chunked key/value store CLI",
	Long:  "CLI for inspecting and maintaining datastore namespaces on a Redis-protocol engine.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/datastore/config.yaml)")
	flags.String("addr", "", "engine host:port (default: localhost:6379)")
	flags.Int("db", 0, "engine database index")
	flags.String("store", "", "store namespace (default: default)")
	flags.Duration("ttl", 0, "sliding expiration of written and read keys (default: 1h)")
	flags.String("log-level", "", "log level: debug, info, warn, error (default: warn)")

	viper.BindPFlag("addr", flags.Lookup("addr"))
	viper.BindPFlag("db", flags.Lookup("db"))
	viper.BindPFlag("store", flags.Lookup("store"))
	viper.BindPFlag("ttl", flags.Lookup("ttl"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DATASTORE")
	viper.AutomaticEnv()
	viper.SetDefault("addr", "localhost:6379")
	viper.SetDefault("store", "default")
	viper.SetDefault("ttl", datastore.DefaultTTL)
	viper.SetDefault("log_level", "warn")

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "datastore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "datastore")
	}
	return ".datastore"
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the configured namespace. The returned close func
// releases the engine connections.
func openStore(ctx context.Context) (*datastore.Store, func() error, error) {
	reg := datastore.NewRegistry(
		datastore.WithAddr(viper.GetString("addr")),
		datastore.WithDB(viper.GetInt("db")),
		datastore.WithDefaultTTL(viper.GetDuration("ttl")),
		datastore.WithLogger(newLogger()),
	)

	s, err := reg.Open(ctx, viper.GetString("store"))
	if err != nil {
		reg.Close()
		return nil, nil, fmt.Errorf("open %s: %w", viper.GetString("store"), err)
	}
	return s, reg.Close, nil
}

// withStore runs fn against the configured store and closes it afterwards.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s *datastore.Store) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}
