// Package relay registers Slack messages as Zaim payments and reports the
// result back into the Slack thread.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/slack2zaim/internal/domain"
	"github.com/dvloznov/slack2zaim/internal/genre"
	"github.com/dvloznov/slack2zaim/internal/jobs"
	"github.com/dvloznov/slack2zaim/internal/logger"
	"github.com/dvloznov/slack2zaim/internal/parser"
	"github.com/dvloznov/slack2zaim/internal/slack"
	"github.com/dvloznov/slack2zaim/internal/zaim"
	"github.com/rs/zerolog"
)

// Ledger is the remote side a complete expense is written to.
// This interface enables mocking of the Zaim client in tests.
type Ledger interface {
	Verify(ctx context.Context) (*zaim.User, error)
	CreatePayment(ctx context.Context, exp domain.Expense) (*zaim.PaymentResult, error)
}

// Message is one inbound Slack message.
type Message struct {
	ChannelID string
	Timestamp string
	UserName  string
	Text      string
}

// Outcome is what the relay decided for a message and reported back.
// Reply is empty on success. Err is nil on success and for commands.
type Outcome struct {
	Command  Command
	Expense  domain.Expense
	Reaction string
	Reply    string
	Err      error
}

// Relay wires the parser, the ledger and the Slack notifier together.
type Relay struct {
	classifier *parser.Classifier
	table      *genre.Table
	ledger     Ledger
	notifier   slack.Notifier
	log        zerolog.Logger
}

// New creates a relay. The classifier must have been built from table.
func New(classifier *parser.Classifier, table *genre.Table, ledger Ledger, notifier slack.Notifier, log zerolog.Logger) *Relay {
	return &Relay{
		classifier: classifier,
		table:      table,
		ledger:     ledger,
		notifier:   notifier,
		log:        log,
	}
}

// Build parses text into a complete expense.
// It returns ErrEmptyInput, *IncompleteError, or a parser error.
func (r *Relay) Build(text string) (domain.Expense, error) {
	if text == "" {
		return domain.Expense{}, ErrEmptyInput
	}

	exp, complete, err := r.classifier.Classify(text)
	if err != nil {
		return exp, err
	}
	if !complete {
		return exp, &IncompleteError{Expense: exp}
	}
	return exp, nil
}

// Decide works out the outcome for msg without notifying Slack.
// For an expense this performs the single ledger write.
func (r *Relay) Decide(ctx context.Context, msg Message) Outcome {
	switch cmd := ParseCommand(msg.Text); cmd {
	case CommandGenres:
		return Outcome{Command: cmd, Reaction: slack.ReactionGenres, Reply: GenreList(r.table)}
	case CommandFormat:
		return Outcome{Command: cmd, Reaction: slack.ReactionFormat, Reply: UsageText}
	}

	exp, err := r.Build(msg.Text)
	if err != nil {
		return failure(exp, err)
	}

	if err := r.submit(ctx, exp); err != nil {
		return failure(exp, err)
	}

	return Outcome{Expense: exp, Reaction: slack.ReactionOK}
}

func (r *Relay) submit(ctx context.Context, exp domain.Expense) error {
	if _, err := r.ledger.Verify(ctx); err != nil {
		return err
	}
	if _, err := r.ledger.CreatePayment(ctx, exp); err != nil {
		return err
	}
	return nil
}

func failure(exp domain.Expense, err error) Outcome {
	return Outcome{
		Expense:  exp,
		Reaction: slack.ReactionNG,
		Reply:    UserMessage(err),
		Err:      err,
	}
}

// Handle decides the outcome for msg and reports it: one reaction, plus a
// threaded reply when the outcome carries text.
func (r *Relay) Handle(ctx context.Context, msg Message) Outcome {
	log := logger.FromContextOr(ctx, r.log).With().
		Str("channel_id", msg.ChannelID).
		Str("timestamp", msg.Timestamp).
		Logger()

	out := r.Decide(ctx, msg)

	switch {
	case out.Err != nil:
		log.Warn().Err(out.Err).Str("reply", out.Reply).Msg("Expense not registered")
	case out.Command != CommandNone:
		log.Info().Int("command", int(out.Command)).Msg("Answered command")
	default:
		log.Info().
			Str("date", out.Expense.Date.Format(domain.DateLayout)).
			Int64("amount", out.Expense.Amount).
			Str("genre_id", out.Expense.GenreID.String()).
			Msg("Expense registered")
	}

	if err := r.notifier.React(ctx, msg.ChannelID, msg.Timestamp, out.Reaction); err != nil {
		log.Error().Err(err).Str("reaction", out.Reaction).Msg("Failed to add reaction")
	}
	if out.Reply != "" {
		if err := r.notifier.Reply(ctx, msg.ChannelID, msg.Timestamp, out.Reply); err != nil {
			log.Error().Err(err).Msg("Failed to post thread reply")
		}
	}

	return out
}

// JobHandler adapts Handle to the job queue. The job fails with the text
// reported to the user when the message was not registered.
func (r *Relay) JobHandler() jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		expenseJob, ok := job.(*jobs.ExpenseJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		ctx = logger.WithContext(ctx, r.log.With().
			Str("job_id", expenseJob.JobID).
			Str("request_id", expenseJob.RequestID).
			Logger())

		out := r.Handle(ctx, Message{
			ChannelID: expenseJob.ChannelID,
			Timestamp: expenseJob.Timestamp,
			UserName:  expenseJob.UserName,
			Text:      expenseJob.Text,
		})
		if out.Err != nil {
			return errors.New(out.Reply)
		}
		return nil
	}
}
