package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

type rootOptions struct {
	configFile string
	driver     string
	path       string
	redisAddr  string
	verbose    bool
}

// NewRootCommand returns the gosession command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "gosession",
		Short: "Inspect and drive a persisted client session",
		Long: `gosession opens the session store named by the configuration and runs one
lifecycle operation against it: show status, log in as an admin or a user, extend,
log out, or clear everything. The watch command keeps the manager running and prints
every session event as JSON.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (YAML, TOML, or JSON)")
	flags.StringVar(&opts.driver, "driver", "", "storage driver: memory, file, redis, or sqlite")
	flags.StringVar(&opts.path, "path", "", "storage path for the file and sqlite drivers")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the redis driver")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newStatusCommand(opts),
		newLoginAdminCommand(opts),
		newLoginUserCommand(opts),
		newLogoutCommand(opts),
		newExtendCommand(opts),
		newClearAllCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) config(cmd *cobra.Command) (goSession.Config, error) {
	cfg, err := goSession.LoadConfig(o.configFile)
	if err != nil {
		return goSession.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Storage.Driver = o.driver
	}
	if flags.Changed("path") {
		cfg.Storage.Path = o.path
	}
	if flags.Changed("redis-addr") {
		cfg.Storage.RedisAddr = o.redisAddr
	}

	// One-shot commands finish before an async queue would drain.
	cfg.Events.Async = false

	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, err
	}
	return cfg, nil
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	var w io.Writer = io.Discard
	if o.verbose {
		w = cmd.ErrOrStderr()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// open builds a Manager and restores the persisted session. Callers must Close it.
func (o *rootOptions) open(cmd *cobra.Command, mutate func(*goSession.Config), sinks ...goSession.EventSink) (*goSession.Manager, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}

	b := goSession.New().WithConfig(cfg).WithLogger(o.logger(cmd))
	for _, sink := range sinks {
		b.WithEventSink(sink)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := b.BuildContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	if err := m.Initialize(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return m, nil
}

func writeln(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}
