package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/assetpipe"
)

// cli is the state shared by all subcommands.
type cli struct {
	configPath string
	logFile    string
	logLevel   string

	cfg    assetpipe.Config
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "assetpipe",
		Short:        "Content-addressed image payloads with exactly-once delivery",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.closer != nil {
				return c.closer.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&c.logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	flags.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newResolveCmd(c), newQueueCmd(c))
	return root
}

// setup loads the configuration and installs the logger.
func (c *cli) setup(stderr io.Writer) error {
	cfg := assetpipe.DefaultConfig()
	if c.configPath != "" {
		var err error
		if cfg, err = assetpipe.LoadConfig(c.configPath); err != nil {
			return err
		}
	}
	if c.logFile != "" {
		cfg.Log.File = c.logFile
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
		return fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
	}

	out := stderr
	if cfg.Log.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		}
		out, c.closer = lj, lj
	}
	assetpipe.SetLogger(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

// logger returns the logger installed by setup.
func (c *cli) logger() *slog.Logger {
	return assetpipe.Logger()
}
