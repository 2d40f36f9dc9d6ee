package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/slack2zaim/internal/parser"
	"github.com/dvloznov/slack2zaim/internal/relay"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <message>",
		Short: "Show how the relay reads a message without sending anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			switch relay.ParseCommand(text) {
			case relay.CommandGenres:
				fmt.Fprintf(cmd.OutOrStdout(), "command: genres\nreply: %s\n", relay.GenreList(table))
				return nil
			case relay.CommandFormat:
				fmt.Fprintf(cmd.OutOrStdout(), "command: format\nreply: %s\n", relay.UsageText)
				return nil
			}

			classifier := parser.NewClassifier(table, func() time.Time { return time.Now().In(loc) })
			for _, tok := range classifier.Tokens(text) {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", tok.Kind, tok.Text)
			}

			r := relay.New(classifier, table, nil, nil, zerolog.Nop())
			exp, err := r.Build(text)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "result: %s\n", relay.UserMessage(err))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "result: complete %s\n", exp)
			return nil
		},
	}
}
