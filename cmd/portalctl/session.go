package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibolsen/campus-portal/internal/adapters/backend"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

func loginCmd(app *cliApp) *cobra.Command {
	var creds domainauth.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the bearer token",
		Long: `Exchange an email and password for a bearer token. The password is read
from stdin when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				pw, err := readLine(cmd, "Password: ")
				if err != nil {
					return err
				}
				creds.Password = pw
			}
			if !creds.Complete() {
				return errors.New("email and password are required")
			}

			authn, err := backend.NewAuthenticator(backend.Config{
				LoginURL:  app.cfg.Backend.LoginURL(),
				UserPath:  app.cfg.Backend.UserPath,
				TokenPath: app.cfg.Backend.TokenPath,
				Timeout:   app.cfg.Backend.Timeout,
				Logger:    app.logger,
			})
			if err != nil {
				return err
			}
			principal, ok := authn.Authenticate(cmd.Context(), creds)
			if !ok {
				return errors.New("invalid email or password")
			}
			if err := app.store.SetToken(principal.AccessToken, principal.Profile()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", displayName(principal.Profile()), principal.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Account password")
	return cmd
}

func logoutCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(app *cliApp) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, ok := app.store.Profile()
			if !ok {
				return errors.New("not signed in")
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(profile)
			}
			fmt.Fprintf(out, "%s\n  role:   %s\n  portal: %s%s\n", displayName(profile), profile.Role, app.cfg.Client.PortalURL, profile.Role.PortalPath())
			if profile.Email != "" {
				fmt.Fprintf(out, "  email:  %s\n", profile.Email)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")
	return cmd
}

func displayName(p domainauth.Profile) string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Email != "":
		return p.Email
	default:
		return p.ID
	}
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
