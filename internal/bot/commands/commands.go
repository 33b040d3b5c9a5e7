package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/issue-triage-bot/internal/event"
	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
	"github.com/jensholdgaard/issue-triage-bot/internal/telemetry"
	"github.com/jensholdgaard/issue-triage-bot/internal/triage"
)

// Command names.
const (
	CmdReport      = "issue-report"
	CmdPriority    = "issue-priority"
	CmdList        = "issue-list"
	CmdClose       = "issue-close"
	CmdHistory     = "issue-history"
	CmdEscalations = "escalations"
)

const defaultEscalationLimit = 10

// Board is the part of triage.Board the commands drive.
type Board interface {
	Report(ctx context.Context, title, reporter string, severity issue.Severity) (triage.Snapshot, error)
	Get(ctx context.Context, id string) (triage.Snapshot, error)
	List(ctx context.Context) []triage.Snapshot
	Close(ctx context.Context, id, closedBy string) (triage.Snapshot, error)
	History(ctx context.Context, id string) ([]event.Event, error)
	RecentEscalations(ctx context.Context, limit int) ([]event.Event, error)
}

// Options maps option names to the values supplied with a command.
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

// Handlers process Discord interactions.
type Handlers struct {
	board  Board
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(board Board, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		board:  board,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/issue-triage-bot/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	idOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "Issue ID",
		Required:    true,
	}
	minLimit := 1.0

	return []*discordgo.ApplicationCommand{
		{
			Name:        CmdReport,
			Description: "Report a new issue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Short description of the issue",
					Required:    true,
					MaxLength:   200,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "severity",
					Description: "What kind of issue this is",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Feature request", Value: string(issue.Feature)},
						{Name: "Bug", Value: string(issue.Bug)},
						{Name: "Other (urgent)", Value: string(issue.Other)},
					},
				},
			},
		},
		{
			Name:        CmdPriority,
			Description: "Show the current priority of an issue",
			Options:     []*discordgo.ApplicationCommandOption{idOption},
		},
		{
			Name:        CmdList,
			Description: "List open issues, most urgent first",
		},
		{
			Name:        CmdClose,
			Description: "Close an issue",
			Options:     []*discordgo.ApplicationCommandOption{idOption},
		},
		{
			Name:        CmdHistory,
			Description: "Show the audit trail of an issue",
			Options:     []*discordgo.ApplicationCommandOption{idOption},
		},
		{
			Name:        CmdEscalations,
			Description: "Show recent escalations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: fmt.Sprintf("How many escalations to show (default: %d)", defaultEscalationLimit),
					Required:    false,
					MinValue:    &minLimit,
					MaxValue:    50,
				},
			},
		},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	opts := make(Options, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}

	respond(s, i, h.Dispatch(context.Background(), data.Name, invoker(i), opts))
}

// Dispatch runs the named command on behalf of user and returns the reply.
func (h *Handlers) Dispatch(ctx context.Context, name, user string, opts Options) string {
	ctx, span := h.tracer.Start(ctx, "InteractionCreate",
		trace.WithAttributes(
			attribute.String("command", name),
			attribute.String("user", user),
		),
	)
	defer span.End()

	var (
		reply string
		err   error
	)
	switch name {
	case CmdReport:
		reply, err = h.handleReport(ctx, user, opts)
	case CmdPriority:
		reply, err = h.handlePriority(ctx, opts)
	case CmdList:
		reply = FormatList(h.board.List(ctx))
	case CmdClose:
		reply, err = h.handleClose(ctx, user, opts)
	case CmdHistory:
		reply, err = h.handleHistory(ctx, opts)
	case CmdEscalations:
		reply, err = h.handleEscalations(ctx, opts)
	default:
		return "Unknown command"
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		telemetry.LogWithTrace(ctx, h.logger).WarnContext(ctx, "command failed",
			slog.String("command", name),
			slog.Any("error", err),
		)
		return errorReply(err)
	}
	return reply
}

func (h *Handlers) handleReport(ctx context.Context, user string, opts Options) (string, error) {
	sev, err := issue.ParseSeverity(stringOpt(opts, "severity"))
	if err != nil {
		return "", err
	}
	snap, err := h.board.Report(ctx, stringOpt(opts, "title"), user, sev)
	if err != nil {
		return "", err
	}
	return "Reported " + FormatSnapshot(snap), nil
}

func (h *Handlers) handlePriority(ctx context.Context, opts Options) (string, error) {
	snap, err := h.board.Get(ctx, stringOpt(opts, "id"))
	if err != nil {
		return "", err
	}
	return FormatSnapshot(snap), nil
}

func (h *Handlers) handleClose(ctx context.Context, user string, opts Options) (string, error) {
	snap, err := h.board.Close(ctx, stringOpt(opts, "id"), user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Closed `%s` **%s** after %s (was %s)", snap.ID, snap.Title, FormatAge(snap.Age), snap.Priority), nil
}

func (h *Handlers) handleHistory(ctx context.Context, opts Options) (string, error) {
	id := stringOpt(opts, "id")
	events, err := h.board.History(ctx, id)
	if err != nil {
		return "", err
	}
	return FormatHistory(id, events), nil
}

func (h *Handlers) handleEscalations(ctx context.Context, opts Options) (string, error) {
	limit := defaultEscalationLimit
	if opt, ok := opts["limit"]; ok {
		limit = int(opt.IntValue())
	}
	events, err := h.board.RecentEscalations(ctx, limit)
	if err != nil {
		return "", err
	}
	return FormatEscalationEvents(events), nil
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, triage.ErrNotFound):
		return "No such issue."
	case errors.Is(err, triage.ErrEmptyTitle):
		return "An issue needs a title."
	case errors.Is(err, issue.ErrEmptySeverity):
		return "An issue needs a severity."
	default:
		return "Something went wrong, please try again."
	}
}

func stringOpt(opts Options, name string) string {
	opt, ok := opts[name]
	if !ok {
		return ""
	}
	return opt.StringValue()
}

// invoker returns the Discord user ID behind an interaction. Guild
// interactions carry it on Member, direct messages on User.
func invoker(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			// Reporter mentions should not ping anyone.
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
}
