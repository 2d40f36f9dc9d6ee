package main

import (
	"encoding/json"
	"fmt"

	"github.com/dvloznov/slack2zaim/internal/gcs"
	"github.com/dvloznov/slack2zaim/internal/zaim"
	"github.com/spf13/cobra"
)

type dumpFlags struct {
	out             string
	gcsURI          string
	includeInactive bool
}

func (f *dumpFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Also write the JSON to this file")
	cmd.Flags().StringVar(&f.gcsURI, "gcs-uri", "", "Also upload the JSON to this gs://bucket/object")
	cmd.Flags().BoolVar(&f.includeInactive, "include-inactive", false, "Keep entries Zaim marks as inactive")
}

func (f *dumpFlags) validate() error {
	if f.gcsURI == "" {
		return nil
	}
	if _, _, err := gcs.ParseURI(f.gcsURI); err != nil {
		return fmt.Errorf("--gcs-uri: %w", err)
	}
	return nil
}

func newGenresCmd(opts *options) *cobra.Command {
	flags := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "genres",
		Short: "Print the Zaim genre table in the ZAIM_GENRE format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			cfg, log, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := newZaimClient(ctx, cfg)
			if err != nil {
				return err
			}
			if _, err := client.Verify(ctx); err != nil {
				return err
			}

			genres, err := client.Genres(ctx)
			if err != nil {
				return err
			}
			table := zaim.GenreTable(genres, flags.includeInactive)
			log.Debug().Int("fetched", len(genres)).Int("kept", table.Len()).Msg("Genres fetched")

			data, err := json.Marshal(table)
			if err != nil {
				return err
			}
			return output(cmd, cfg, log, data, flags.out, flags.gcsURI)
		},
	}

	flags.register(cmd)
	return cmd
}

func newCategoriesCmd(opts *options) *cobra.Command {
	flags := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Print the Zaim categories as {name: id}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			cfg, log, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := newZaimClient(ctx, cfg)
			if err != nil {
				return err
			}
			if _, err := client.Verify(ctx); err != nil {
				return err
			}

			categories, err := client.Categories(ctx)
			if err != nil {
				return err
			}

			data, err := zaim.CategoryJSON(categories, flags.includeInactive)
			if err != nil {
				return err
			}
			return output(cmd, cfg, log, data, flags.out, flags.gcsURI)
		},
	}

	flags.register(cmd)
	return cmd
}
