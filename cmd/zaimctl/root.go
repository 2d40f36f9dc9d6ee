package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/slack2zaim/internal/config"
	"github.com/dvloznov/slack2zaim/internal/gcs"
	"github.com/dvloznov/slack2zaim/internal/genre"
	"github.com/dvloznov/slack2zaim/internal/logger"
	"github.com/dvloznov/slack2zaim/internal/zaim"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "zaimctl",
		Short: "Operator tools for the Slack to Zaim relay",
		Long: `zaimctl prepares and checks the configuration of the Slack to Zaim relay.

Example Usage:
  zaimctl authorize                          # obtain OAUTH_TOKEN / OAUTH_TOKEN_SECRET
  zaimctl genres --out genre.json            # dump the table ZAIM_GENRE expects
  zaimctl genres --gcs-uri gs://b/genre.json # publish it for ZAIM_GENRE_URI
  zaimctl parse "2/14 食費 1200 ランチ"        # show how a message is read`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file (or set CONFIG_FILE env)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newGenresCmd(opts),
		newCategoriesCmd(opts),
		newAuthorizeCmd(opts),
		newParseCmd(opts),
	)
	return root
}

// setup loads the configuration and a stderr logger for a subcommand.
func (o *options) setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr()).Level(logger.ParseLevel(level))
	return cfg, log, nil
}

func newZaimClient(ctx context.Context, cfg *config.Config) (*zaim.Client, error) {
	if err := cfg.ValidateZaim(); err != nil {
		return nil, err
	}
	return zaim.NewClient(ctx, zaim.Credentials{
		ConsumerKey:       cfg.Zaim.ConsumerKey,
		ConsumerSecret:    cfg.Zaim.ConsumerSecret,
		AccessToken:       cfg.Zaim.OAuthToken,
		AccessTokenSecret: cfg.Zaim.OAuthTokenSecret,
	}, cfg.Zaim.APIURL)
}

// output writes data to stdout, to a local file and to Cloud Storage as requested.
func output(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, data []byte, outFile, gcsURI string) error {
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if outFile != "" {
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return err
		}
		log.Info().Str("path", outFile).Msg("Table written")
	}

	if gcsURI != "" {
		client, err := gcs.NewClient(cmd.Context(), cfg.CredentialsFile)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.UploadBytes(cmd.Context(), gcsURI, "application/json", data); err != nil {
			return err
		}
		log.Info().Str("gcs_uri", gcsURI).Msg("Table uploaded")
	}
	return nil
}

func loadTable(ctx context.Context, cfg *config.Config) (*genre.Table, error) {
	src := genre.Source{Inline: cfg.Zaim.Genre, URI: cfg.Zaim.GenreURI}

	var fetcher genre.ObjectFetcher
	if strings.TrimSpace(src.Inline) == "" && strings.HasPrefix(src.URI, "gs://") {
		client, err := gcs.NewClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		fetcher = client
	}
	return genre.Load(ctx, src, fetcher)
}
