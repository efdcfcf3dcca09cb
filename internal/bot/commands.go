package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cupid-bot/internal/args"
	"github.com/xaenox/cupid-bot/internal/family"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/sentences"
	"github.com/xaenox/cupid-bot/internal/vocabulary"
	"go.uber.org/zap"
)

const description = "Cupid Bot is responsible for managing all your marriage and adoption needs."

type command struct {
	brief string
	run   func(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error
}

func (b *Bot) commandTable() map[string]command {
	leave := command{"Leave, cancel or reject a relationship", b.handleLeave}
	return map[string]command{
		"start":     {"Start the bot", b.handleHelp},
		"help":      {"Show this help message", b.handleHelp},
		"about":     {"About the bot", b.handleAbout},
		"profile":   {"View a profile, yours by default", b.handleProfile},
		"gender":    {"See or set your gender", b.handleGender},
		"propose":   {"Propose to someone", b.proposeHandler(models.Marriage)},
		"adopt":     {"Adopt someone", b.proposeHandler(models.Adoption)},
		"accept":    {"Accept a proposal", b.handleAccept},
		"leave":     leave,
		"cancel":    leave,
		"reject":    leave,
		"divorce":   leave,
		"disown":    leave,
		"proposals": {"See your proposals", b.handleProposals},
		"people":    {"List everyone, optionally matching a search", b.handlePeople},
		"tree":      {"Draw the family tree", b.handleTree},
	}
}

// usageError is a plain text explanation of how to use a command.
type usageError string

func (e usageError) Error() string { return string(e) }

var helpOrder = []string{
	"profile", "gender", "propose", "adopt", "accept", "leave", "proposals", "people", "tree", "about", "help",
}

func (b *Bot) handleHelp(_ context.Context, message *tgbotapi.Message, _ *models.Profile) error {
	var sb strings.Builder
	sb.WriteString(description + "\n\nAvailable commands:\n")
	for _, name := range helpOrder {
		sb.WriteString("/" + name + " - " + b.commands[name].brief + "\n")
	}
	sb.WriteString("\n/leave also works as /cancel, /reject, /divorce and /disown.\n")
	sb.WriteString("Point at someone by replying to their message, mentioning them, or giving their @username, name or ID.")
	b.sendMessage(message.Chat.ID, sb.String())
	return nil
}

func (b *Bot) handleAbout(_ context.Context, message *tgbotapi.Message, _ *models.Profile) error {
	embed := sentences.Embed{
		Title:       "About",
		Description: sentences.Escape(description),
		Footer:      "Use /help to see what I can do.",
	}
	return b.sendMarkdown(message.Chat.ID, embed.Render())
}

func (b *Bot) handleProfile(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error {
	profile := me
	if hasTarget(message) {
		var err error
		if profile, err = b.resolveTarget(ctx, message); err != nil {
			return err
		}
	}
	return b.sendMarkdown(message.Chat.ID, sentences.Profile(*profile).Render())
}

func (b *Bot) handleGender(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error {
	raw := strings.TrimSpace(message.CommandArguments())
	if raw == "" {
		text := "Your gender is " + sentences.GenderLine(me.User) + sentences.Escape(
			". Change it with /gender followed by non-binary, female or male.")
		return b.sendMarkdown(message.Chat.ID, text)
	}

	gender, err := vocabulary.ParseGender(raw)
	if err != nil {
		return err
	}
	updated, err := b.users.SetGender(ctx, me.ID, gender)
	if err != nil {
		return err
	}
	return b.sendMarkdown(message.Chat.ID, "Your gender is now "+sentences.GenderLine(*updated)+sentences.Escape("."))
}

func (b *Bot) proposeHandler(kind models.Kind) func(context.Context, *tgbotapi.Message, *models.Profile) error {
	return func(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error {
		other, err := b.resolveTarget(ctx, message)
		if err != nil {
			return err
		}
		proposal, err := b.relationships.Propose(ctx, me.User, other.User, kind)
		if err != nil {
			return err
		}
		return b.sendProposal(ctx, message.Chat.ID, *proposal)
	}
}

// sendProposal posts a proposal with its Accept and Reject buttons, and a
// GIF when one can be found.
func (b *Bot) sendProposal(ctx context.Context, chatID int64, proposal models.Relationship) error {
	id, markup, err := b.proposals.Bind(ctx, chatID, proposal)
	if err != nil {
		return err
	}

	text := sentences.ProposalMessage(proposal)
	var msg tgbotapi.Chattable
	if gif := b.proposalGIF(ctx, proposal.Kind); gif != "" {
		animation := tgbotapi.NewAnimation(chatID, tgbotapi.FileURL(gif))
		animation.Caption = text
		animation.ParseMode = tgbotapi.ModeMarkdownV2
		animation.ReplyMarkup = markup
		msg = animation
	} else {
		message := tgbotapi.NewMessage(chatID, text)
		message.ParseMode = tgbotapi.ModeMarkdownV2
		message.ReplyMarkup = markup
		msg = message
	}

	sent, err := b.sender.Send(msg)
	if err != nil {
		b.proposals.Release(ctx, id)
		return err
	}
	b.proposals.Sent(ctx, id, sent)
	return nil
}

func (b *Bot) proposalGIF(ctx context.Context, kind models.Kind) string {
	if b.gifs == nil || !b.gifs.Enabled() {
		return ""
	}
	gif, err := b.gifs.ProposalGIF(ctx, kind)
	if err != nil {
		b.logger.Warn("Sending proposal without a gif", zap.Error(err))
		return ""
	}
	return gif
}

func (b *Bot) handleAccept(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error {
	other, err := b.resolveTarget(ctx, message)
	if err != nil {
		return err
	}
	rel, err := b.relationships.Get(ctx, me.ID, other.ID)
	if err != nil {
		return err
	}
	accepted, err := b.relationships.Accept(ctx, me.ID, rel)
	if err != nil {
		return err
	}
	b.proposals.Settle(ctx, *rel)
	return b.sendMarkdown(message.Chat.ID, sentences.RelationshipAnnouncement(*accepted))
}

func (b *Bot) handleLeave(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error {
	other, err := b.resolveTarget(ctx, message)
	if err != nil {
		return err
	}
	rel, err := b.relationships.Get(ctx, me.ID, other.ID)
	if err != nil {
		return err
	}
	if err := b.relationships.Delete(ctx, me.ID, rel); err != nil {
		return err
	}
	if !rel.Accepted {
		b.proposals.Settle(ctx, *rel)
	}
	return b.sendMarkdown(message.Chat.ID, sentences.DeleteConfirmation(me.ID, *rel))
}

func (b *Bot) handleProposals(_ context.Context, message *tgbotapi.Message, me *models.Profile) error {
	return b.sendMarkdown(message.Chat.ID, sentences.Proposals(*me).Render())
}

func (b *Bot) handlePeople(ctx context.Context, message *tgbotapi.Message, me *models.Profile) error {
	search := strings.TrimSpace(message.CommandArguments())
	title := "People"
	if search != "" {
		title = fmt.Sprintf("People matching %q", search)
	}
	fetch := func(ctx context.Context, page int) ([]string, int, error) {
		result, err := b.cupid.ListUsers(ctx, search, page)
		if err != nil {
			return nil, 0, err
		}
		lines := make([]string, 0, len(result.Items))
		for _, u := range result.Items {
			lines = append(lines, sentences.UserLine(u))
		}
		return lines, result.TotalPages, nil
	}
	return b.paginator.Start(ctx, message.Chat.ID, me.ID, title, fetch)
}

func (b *Bot) handleTree(ctx context.Context, message *tgbotapi.Message, _ *models.Profile) error {
	graph, err := b.cupid.GetGraph(ctx)
	if err != nil {
		return err
	}
	if len(graph.Relationships) == 0 {
		b.sendMessage(message.Chat.ID, "Nobody is related to anybody yet.")
		return nil
	}

	png, err := b.renderer.Render(ctx, family.BuildDOT(*graph))
	if errors.Is(err, family.ErrUnavailable) {
		b.logger.Warn("Cannot draw family tree", zap.Error(err))
		b.sendMessage(message.Chat.ID, "Sorry, I can't draw the family tree right now.")
		return nil
	}
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(message.Chat.ID, tgbotapi.FileBytes{Name: "family-tree.png", Bytes: png})
	photo.Caption = "Family tree"
	_, err = b.sender.Send(photo)
	return err
}

// hasTarget reports whether a command names someone, either in its
// argument or by replying to their message.
func hasTarget(message *tgbotapi.Message) bool {
	return strings.TrimSpace(message.CommandArguments()) != "" || message.ReplyToMessage != nil
}

func (b *Bot) resolveTarget(ctx context.Context, message *tgbotapi.Message) (*models.Profile, error) {
	target, err := args.Parse(message)
	if errors.Is(err, args.ErrNoTarget) {
		return nil, usageError(fmt.Sprintf("Usage: /%s <user>\n%s", message.Command(), err.Error()))
	}
	if err != nil {
		return nil, err
	}
	return b.targets.Resolve(ctx, target)
}
