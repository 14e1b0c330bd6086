// Command escrowctl drives the SecureTransact API from a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/securetransact/escrow-api/internal/client"
	"github.com/securetransact/escrow-api/internal/pkg/config"
)

// --- Global flags ---
var (
	apiURL      string
	sessionPath string
	jsonOutput  bool

	rootCmd = &cobra.Command{
		Use:           "escrowctl",
		Short:         "Command line client for the SecureTransact escrow API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides ESCROW_API_URLS and the saved session)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "session file (overrides ESCROW_SESSION_FILE)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, profileCmd,
		statsCmd, conversationsCmd, healthCmd, txCmd, msgCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env bundles what every command needs: CLI config, the saved session and a
// client pointed at a reachable server.
type env struct {
	cfg     *config.Config
	session *session
	client  *client.Client
}

// connect loads config and session, then picks the API server: --api-url
// first, then the session's server, then the first ESCROW_API_URLS candidate
// that answers.
func connect(ctx context.Context, requireLogin bool) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sessionPath != "" {
		cfg.SessionFile = sessionPath
	}

	sess, err := loadSession(cfg.SessionFile)
	if err != nil {
		return nil, err
	}
	if requireLogin && sess.Token == "" {
		return nil, fmt.Errorf("not logged in; run `escrowctl login` first")
	}

	opts := []client.Option{client.WithToken(sess.Token)}
	var c *client.Client
	switch {
	case apiURL != "":
		c = client.New(apiURL, opts...)
	case sess.BaseURL != "":
		c = client.New(sess.BaseURL, opts...)
	default:
		c, err = client.Discover(ctx, cfg.APIURLs, cfg.ProbeTimeout, opts...)
		if err != nil {
			return nil, err
		}
	}
	return &env{cfg: cfg, session: sess, client: c}, nil
}
