package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fendintridena/qiwigg-go/internal/clerk"
	"github.com/fendintridena/qiwigg-go/internal/config"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save credentials",
		Long: `Log in to qiwi.gg with the configured email and password and persist
the resulting session cookies. Credentials supplied via --email and
--password are saved to the config file unless --no-save is given.

Accounts whose sign-in flow this client cannot complete (e.g. with
two-factor authentication enabled) can instead supply --client-cookie
with the __client cookie value from a logged-in browser session.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().Bool("no-save", false, "don't save credentials to the config file")
	cmd.Flags().String("client-cookie", "", "bootstrap from a browser __client cookie instead of a password")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	noSave, _ := cmd.Flags().GetBool("no-save")
	clientCookie, _ := cmd.Flags().GetString("client-cookie")

	if flagEmail != "" && flagPassword != "" && !noSave {
		if err := saveCredentials(); err != nil {
			return err
		}
	}

	client := newServiceClient()

	if clientCookie != "" {
		if err := client.Auth().SetClientCookie(clientCookie); err != nil {
			return err
		}

		statusf("client cookie saved\n")

		return nil
	}

	if err := client.Auth().Login(cmd.Context()); err != nil {
		if errors.Is(err, clerk.ErrAuthentication) {
			return fmt.Errorf("%w (supply --email and --password or set them in the config file)", err)
		}

		return err
	}

	statusf("logged in as %s\n", resolvedCfg.Email)

	return nil
}

// saveCredentials persists the flag-supplied credentials, preserving any
// other settings already in the config file.
func saveCredentials() error {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}

	cfg.Email = flagEmail
	cfg.Password = flagPassword

	if err := config.Save(path, cfg); err != nil {
		return err
	}

	statusf("credentials saved to %s\n", path)

	return nil
}
