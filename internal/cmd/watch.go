package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/storage"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the manager and print session events as JSON lines",
		Long: `Keep the session manager running until interrupted. The expiry watchdog
runs on its normal schedule, and with the file driver the store is watched so changes
made by other processes are picked up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			sink := goSession.NewJSONWriterSink(cmd.OutOrStdout())
			m, err := opts.open(cmd, func(c *goSession.Config) {
				c.Storage.WatchFile = c.Storage.Driver == storage.DriverFile
			}, sink)
			if err != nil {
				return err
			}
			defer m.Close()

			if rec, ok := m.Current(); ok {
				writeln(cmd, `{"type":"watch.started","session_id":%q}`, rec.SessionID)
			} else {
				writeln(cmd, `{"type":"watch.started"}`)
			}

			<-ctx.Done()
			return nil
		},
	}
}
