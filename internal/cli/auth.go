package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"drivepower/console/internal/app"
)

// PasswordEnv supplies the login password non-interactively.
const PasswordEnv = "CSMS_PASSWORD"

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("email is required")
			}
			if password == "" {
				password = os.Getenv(PasswordEnv)
			}
			if password == "" {
				read, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = read
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if err := a.Manager().Login(ctx, email, password); err != nil {
					return err
				}
				user := a.Manager().Snapshot().Session.User
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), user)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.DisplayName(), user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or $"+PasswordEnv+", or stdin)")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.Manager().Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newRefreshCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if !a.Manager().RefreshToken(ctx) {
					return errors.New("token refresh failed")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Access token refreshed")
				return nil
			})
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app.App) error {
				snap := a.Manager().Snapshot()
				if !snap.IsAuthenticated {
					return errors.New("not logged in")
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), snap.Session.User)
				}
				u := snap.Session.User
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s id=%s\n", u.DisplayName(), u.Email, u.Role, u.ID)
				return nil
			})
		},
	}
}
