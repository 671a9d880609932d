package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fendintridena/qiwigg-go/internal/clerk"
	"github.com/fendintridena/qiwigg-go/internal/config"
	"github.com/fendintridena/qiwigg-go/internal/jarfile"
	"github.com/fendintridena/qiwigg-go/internal/qiwi"
)

// version is set at build time via ldflags.
var version = "dev"

var userAgent = "qiwigg-go/" + version + " (https://github.com/fendintridena/qiwigg-go)"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagEmail      string
	flagPassword   string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by
// PersistentPreRunE. It is available to all subcommands after the root
// pre-run phase completes.
var resolvedCfg *config.Resolved

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "qiwigg",
		Short:   "qiwi.gg file hosting client",
		Long:    "Upload, delete and move files on qiwi.gg; create and delete folders.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagEmail, "email", "", "account email")
	cmd.PersistentFlags().StringVar(&flagPassword, "password", "", "account password")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRmCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Email:      flagEmail,
		Password:   flagPassword,
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config
// and CLI flags. Config-file log level provides the baseline; --verbose
// and --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newServiceClient wires the cookie jar, auth client and API client
// together. The jar is shared so the bearer cookie minted during auth is
// sent on API calls. No global request timeout: chunk transfers of
// arbitrary size cannot have a fixed deadline.
func newServiceClient() *qiwi.Client {
	logger := buildLogger()

	jar := jarfile.Open(resolvedCfg.CookieJar, logger)
	httpClient := &http.Client{Jar: jar}

	auth := clerk.New(clerk.Options{
		Email:      resolvedCfg.Email,
		Password:   resolvedCfg.Password,
		HTTPClient: httpClient,
		Jar:        jar,
		UserAgent:  userAgent,
		Logger:     logger,
	})

	return qiwi.New(qiwi.Options{
		Auth:       auth,
		HTTPClient: httpClient,
		UserAgent:  userAgent,
		Logger:     logger,
	})
}

// destinationFolder maps the --to flag to a FolderID; empty means root.
func destinationFolder(to string) qiwi.FolderID {
	if to == "" {
		return nil
	}

	return qiwi.RawFolderID(to)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
