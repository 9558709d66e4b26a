package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goSession/session"
)

func newLoginAdminCommand(opts *rootOptions) *cobra.Command {
	var creds session.AdminCredentials

	cmd := &cobra.Command{
		Use:   "login-admin",
		Short: "Start an admin session from a token bundle",
		Long: `Start an admin session. Any user session is ended first. The access token
may also be given through GOSESSION_ACCESS_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.AccessToken == "" {
				creds.AccessToken = envOr("GOSESSION_ACCESS_TOKEN", "")
			}

			m, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer m.Close()

			rec, err := m.LoginAdmin(cmd.Context(), creds, nil)
			if err != nil {
				return loginError(err)
			}
			writeln(cmd, "Admin session %s expires %s", rec.SessionID, rec.ExpiresAtTime().Format(timeLayout))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&creds.AccessToken, "token", "", "access token")
	f.StringVar(&creds.RefreshToken, "refresh-token", "", "refresh token")
	f.StringVar(&creds.TokenType, "token-type", "", "authorization scheme (default from config)")
	return cmd
}

func newLoginUserCommand(opts *rootOptions) *cobra.Command {
	var (
		client session.Client
		email  string
	)

	cmd := &cobra.Command{
		Use:   "login-user",
		Short: "Start a user session for a client",
		Long:  `Start a user session. Any admin session is ended first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer m.Close()

			rec, err := m.LoginUser(cmd.Context(), client, email)
			if err != nil {
				return loginError(err)
			}
			writeln(cmd, "User session %s expires %s", rec.SessionID, rec.ExpiresAtTime().Format(timeLayout))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&client.ID, "client-id", "", "client id")
	f.StringVar(&client.Name, "client-name", "", "client display name")
	f.StringVar(&client.Email, "client-email", "", "client contact email")
	f.StringVar(&client.Company, "client-company", "", "client company")
	f.StringVar(&client.Phone, "client-phone", "", "client phone")
	f.StringVar(&email, "email", "", "email of the signed-in user")
	return cmd
}

func loginError(err error) error {
	if errors.Is(err, session.ErrMissingCredentials) {
		return errors.New("login rejected: required credential fields are missing")
	}
	return err
}
