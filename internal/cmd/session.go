package cmd

import (
	"os"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the active session",
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

			if rec.Kind == session.KindAdmin {
				err = m.LogoutAdmin(cmd.Context(), reason)
			} else {
				err = m.LogoutUser(cmd.Context(), reason)
			}
			if err != nil {
				return err
			}
			writeln(cmd, "Logged out %s session %s", rec.Kind, rec.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", goSession.ReasonLogout, "reason recorded on the cleared event")
	return cmd
}

func newExtendCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extend",
		Short: "Renew the active session for its full lifetime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer m.Close()

			ok, err := m.ExtendSession(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return goSession.ErrNotAuthenticated
			}
			rec, _ := m.Current()
			writeln(cmd, "Session %s now expires %s", rec.SessionID, rec.ExpiresAtTime().Format(timeLayout))
			return nil
		},
	}
}

func newClearAllCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-all",
		Short: "Remove every persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.ClearAllSessions(cmd.Context()); err != nil {
				return err
			}
			writeln(cmd, "All sessions cleared")
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

