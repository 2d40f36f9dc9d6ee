package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/slack2zaim/internal/zaim"
	"github.com/spf13/cobra"
)

func newAuthorizeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Obtain a Zaim access token pair through the OAuth out-of-band flow",
		Long: `authorize asks Zaim for a request token, prints the URL to approve it in a
browser and waits for the verifier code Zaim shows afterwards. The resulting
pair goes into OAUTH_TOKEN and OAUTH_TOKEN_SECRET.

Only CONSUMER_KEY and CONSUMER_SECRET need to be configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Zaim.ConsumerKey == "" || cfg.Zaim.ConsumerSecret == "" {
				return errors.New("CONSUMER_KEY and CONSUMER_SECRET are required")
			}

			auth := zaim.AuthConfig(cfg.Zaim.ConsumerKey, cfg.Zaim.ConsumerSecret)

			requestToken, requestSecret, err := auth.RequestToken()
			if err != nil {
				return fmt.Errorf("request token: %w", err)
			}

			authURL, err := auth.AuthorizationURL(requestToken)
			if err != nil {
				return fmt.Errorf("authorization url: %w", err)
			}
			q := authURL.Query()
			q.Set("perms", "delete")
			authURL.RawQuery = q.Encode()

			fmt.Fprintln(cmd.ErrOrStderr(), "Open this URL, approve access and paste the code shown:")
			fmt.Fprintln(cmd.ErrOrStderr(), authURL.String())
			fmt.Fprint(cmd.ErrOrStderr(), "Code: ")

			verifier, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && verifier == "" {
				return fmt.Errorf("read verifier: %w", err)
			}
			verifier = strings.TrimSpace(verifier)
			if verifier == "" {
				return errors.New("no verifier entered")
			}

			accessToken, accessSecret, err := auth.AccessToken(requestToken, requestSecret, verifier)
			if err != nil {
				return fmt.Errorf("access token: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OAUTH_TOKEN=%s\n", accessToken)
			fmt.Fprintf(cmd.OutOrStdout(), "OAUTH_TOKEN_SECRET=%s\n", accessSecret)
			return nil
		},
	}
}
