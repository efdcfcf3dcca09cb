package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cupid-bot/internal/args"
	"github.com/xaenox/cupid-bot/internal/family"
	"github.com/xaenox/cupid-bot/internal/interactions"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/relationships"
	"github.com/xaenox/cupid-bot/internal/storage"
	"github.com/xaenox/cupid-bot/internal/users"
	"go.uber.org/zap"
)

const wrongCommunity = "Sorry, I only work in my home group."

// Cupid is the remote relationship graph service.
type Cupid interface {
	users.API
	relationships.API
	args.Directory
	GetGraph(ctx context.Context) (*models.Graph, error)
}

// GIFs decorates proposals. A nil GIFs sends proposals as plain messages.
type GIFs interface {
	Enabled() bool
	ProposalGIF(ctx context.Context, kind models.Kind) (string, error)
}

// TreeRenderer turns DOT source into a PNG.
type TreeRenderer interface {
	Render(ctx context.Context, dot string) ([]byte, error)
}

type Options struct {
	// ChatID is the only chat the bot answers in.
	ChatID int64
	// Username is the bot's own username, used to ignore commands
	// addressed to other bots.
	Username string
	Sender   interactions.Sender
	Cupid    Cupid
	Storage  storage.Storage
	GIFs     GIFs
	Renderer TreeRenderer
}

type Bot struct {
	chatID   int64
	username string
	sender   interactions.Sender
	cupid    Cupid
	gifs     GIFs
	renderer TreeRenderer

	users         *users.Resolver
	targets       *args.Resolver
	relationships *relationships.Service
	registry      *interactions.Registry
	proposals     *interactions.ProposalController
	paginator     *interactions.Paginator
	commands      map[string]command

	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Bot {
	renderer := opts.Renderer
	if renderer == nil {
		renderer = family.NewRenderer("", logger)
	}

	resolver := users.NewResolver(opts.Cupid, logger)
	service := relationships.NewService(opts.Cupid, logger)
	registry := interactions.NewRegistry(opts.Sender, logger)

	b := &Bot{
		chatID:        opts.ChatID,
		username:      opts.Username,
		sender:        opts.Sender,
		cupid:         opts.Cupid,
		gifs:          opts.GIFs,
		renderer:      renderer,
		users:         resolver,
		targets:       args.NewResolver(resolver, opts.Cupid),
		relationships: service,
		registry:      registry,
		proposals:     interactions.NewProposalController(registry, service, opts.Storage, opts.Sender, logger),
		paginator:     interactions.NewPaginator(registry, opts.Sender, logger),
		logger:        logger,
	}
	b.commands = b.commandTable()
	return b
}

// Run handles updates until ctx is cancelled or updates is closed. Every
// update is handled in its own goroutine.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	b.logger.Info("Bot started", zap.String("username", b.username), zap.Int64("chat_id", b.chatID))
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while handling update",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID),
				zap.Stack("stack"))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil || q.Message.Chat.ID != b.chatID {
		b.registry.Alert(q.ID, wrongCommunity)
		return
	}
	b.registry.Dispatch(ctx, q)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() || message.From == nil || !b.addressedToMe(message) {
		return
	}

	cmd, ok := b.commands[strings.ToLower(message.Command())]
	if !ok {
		return
	}

	if message.Chat.ID != b.chatID {
		b.logger.Debug("Command from another chat",
			zap.Int64("chat_id", message.Chat.ID),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, wrongCommunity)
		return
	}

	me, err := b.users.Ensure(ctx, args.IdentityOf(message.From))
	if err != nil {
		b.renderError(message, err)
		return
	}
	if err := cmd.run(ctx, message, me); err != nil {
		b.renderError(message, err)
	}
}

// addressedToMe reports whether a command is for this bot. In groups
// commands may be suffixed with the name of the bot they are meant for.
func (b *Bot) addressedToMe(message *tgbotapi.Message) bool {
	_, target, found := strings.Cut(message.CommandWithAt(), "@")
	return !found || b.username == "" || strings.EqualFold(target, b.username)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.sender.Send(msg)
	return err
}
