package relay

import (
	"strings"

	"github.com/dvloznov/slack2zaim/internal/genre"
)

// Command is an auxiliary request answered without touching the ledger.
type Command int

const (
	CommandNone Command = iota
	CommandGenres
	CommandFormat
)

// UsageText is the reply to a format command.
const UsageText = "date (yyyy/mm/dd or mm/dd), genre name, amount, comment " +
	"(the four items may come in any order, separated by full-width or half-width spaces)"

const noGenresText = "no genres are configured."

var commands = map[string]Command{
	"ジャンル":   CommandGenres,
	"genres": CommandGenres,
	"書式":     CommandFormat,
	"フォーマット": CommandFormat,
	"format": CommandFormat,
	"help":   CommandFormat,
}

// ParseCommand matches the raw message text against the command keywords.
// The match is exact; surrounding text makes it an ordinary expense.
func ParseCommand(text string) Command {
	return commands[text]
}

// GenreList joins every configured category name for the genres command.
func GenreList(table *genre.Table) string {
	names := table.Names()
	if len(names) == 0 {
		return noGenresText
	}
	return strings.Join(names, ", ")
}
