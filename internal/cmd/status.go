package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer m.Close()

			rec, ok := m.Current()
			if !ok {
				writeln(cmd, "No active session")
				return nil
			}

			writeln(cmd, "State: %s", m.State())
			writeln(cmd, "Session: %s", rec.SessionID)
			writeln(cmd, "Logged in: %s", rec.LoginAt().Format(timeLayout))
			writeln(cmd, "Expires: %s", rec.ExpiresAtTime().Format(timeLayout))
			writeln(cmd, "Remaining: %s", m.SessionTimeRemaining().Round(time.Second))

			if id, ok := m.Identity(); ok {
				if id.Subject != "" {
					writeln(cmd, "Subject: %s", id.Subject)
				}
				if id.Email != "" {
					writeln(cmd, "Email: %s", id.Email)
				}
				if id.Role != "" {
					writeln(cmd, "Role: %s", id.Role)
				}
			}
			return nil
		},
	}
}
