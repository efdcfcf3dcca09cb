package interactions

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/sentences"
	"github.com/xaenox/cupid-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	proposalPrefix = "p"
	actionAccept   = "accept"
	actionReject   = "reject"
)

// Proposals is the state machine the controller drives.
type Proposals interface {
	Get(ctx context.Context, userID, otherID int64) (*models.Relationship, error)
	Accept(ctx context.Context, callerID int64, rel *models.Relationship) (*models.Relationship, error)
	Delete(ctx context.Context, callerID int64, rel *models.Relationship) error
}

// ProposalController attaches Accept and Reject buttons to proposal
// messages. Only the recipient may press them; once one succeeds the
// buttons are removed. Bindings are saved to storage so that buttons keep
// working across a restart when the storage is persistent.
type ProposalController struct {
	registry  *Registry
	proposals Proposals
	store     storage.Storage
	sender    Sender
	logger    *zap.Logger
}

func NewProposalController(registry *Registry, proposals Proposals, store storage.Storage, sender Sender, logger *zap.Logger) *ProposalController {
	c := &ProposalController{
		registry:  registry,
		proposals: proposals,
		store:     store,
		sender:    sender,
		logger:    logger,
	}
	registry.SetRestorer(proposalPrefix, c.restore)
	return c
}

// Bind registers the controls for proposal and returns the keyboard to send
// with the proposal message. Call Sent once the message exists.
func (c *ProposalController) Bind(ctx context.Context, chatID int64, proposal models.Relationship) (string, tgbotapi.InlineKeyboardMarkup, error) {
	id := uuid.New().String()
	binding := &models.Binding{
		ID:        id,
		ChatID:    chatID,
		Proposal:  proposal.Key(),
		CreatedAt: time.Now(),
	}
	if err := c.store.SaveBinding(ctx, binding); err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	c.registry.Register(id, c.handler(id, proposal))
	return id, proposalKeyboard(id), nil
}

// Sent records which message carries the controls for binding id.
func (c *ProposalController) Sent(ctx context.Context, id string, msg tgbotapi.Message) {
	binding, err := c.store.GetBinding(ctx, id)
	if err != nil {
		c.logger.Error("Failed to load binding", zap.Error(err), zap.String("binding_id", id))
		return
	}
	binding.MessageID = msg.MessageID
	if err := c.store.SaveBinding(ctx, binding); err != nil {
		c.logger.Error("Failed to save binding", zap.Error(err), zap.String("binding_id", id))
	}
}

// Release drops a binding whose message could not be sent.
func (c *ProposalController) Release(ctx context.Context, id string) {
	c.registry.Unregister(id)
	if err := c.store.DeleteBinding(ctx, id); err != nil {
		c.logger.Error("Failed to delete binding", zap.Error(err), zap.String("binding_id", id))
	}
}

func proposalKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("\U0001F495 Accept", CallbackData(proposalPrefix, id, actionAccept)),
		tgbotapi.NewInlineKeyboardButtonData("\U0001F494 Reject", CallbackData(proposalPrefix, id, actionReject)),
	))
}

// handler closes over the proposal as it was when the message was sent.
// settled only stops replays from this process; concurrent presses still
// reach the Cupid service, which decides which one wins.
func (c *ProposalController) handler(id string, proposal models.Relationship) Handler {
	var settled atomic.Bool

	return func(ctx context.Context, q *tgbotapi.CallbackQuery, action string) error {
		if settled.Load() || proposal.Accepted || q.From.ID != proposal.Other.ID {
			c.registry.Alert(q.ID, sentences.NotToYou)
			return nil
		}

		var (
			announcement string
			confirmation string
			err          error
		)
		switch action {
		case actionAccept:
			var accepted *models.Relationship
			accepted, err = c.proposals.Accept(ctx, q.From.ID, &proposal)
			if err == nil {
				announcement = sentences.RelationshipAnnouncement(*accepted)
			}
		case actionReject:
			err = c.proposals.Delete(ctx, q.From.ID, &proposal)
			confirmation = sentences.RejectionConfirmation(proposal)
			announcement = sentences.RejectionAnnouncement(proposal)
		default:
			c.registry.Alert(q.ID, expiredNotice)
			return nil
		}

		if err != nil {
			// The proposal may have changed under us; show why and keep
			// the buttons so the recipient can try again.
			var apiErr *cupid.APIError
			if errors.As(err, &apiErr) {
				c.registry.Alert(q.ID, apiErr.Error())
				return nil
			}
			return err
		}

		settled.Store(true)
		c.Release(ctx, id)
		c.clearControls(q)

		if confirmation != "" {
			c.registry.Alert(q.ID, confirmation)
		} else {
			c.registry.Acknowledge(q.ID)
		}
		c.announce(q, announcement)
		return nil
	}
}

// Settle retires the buttons of every message carrying proposal once it has
// been answered with a command instead.
func (c *ProposalController) Settle(ctx context.Context, proposal models.Relationship) {
	removed, err := c.store.DeleteBindingsFor(ctx, proposal.Key())
	if err != nil {
		c.logger.Error("Failed to delete bindings", zap.Error(err), zap.Stringer("proposal", proposal.Key()))
		return
	}
	for _, binding := range removed {
		c.registry.Unregister(binding.ID)
		if binding.MessageID != 0 {
			c.removeKeyboard(binding.ChatID, binding.MessageID)
		}
	}
}

func (c *ProposalController) clearControls(q *tgbotapi.CallbackQuery) {
	chatID, messageID, err := messageRef(q)
	if err != nil {
		c.logger.Warn("Cannot remove proposal buttons", zap.Error(err))
		return
	}
	c.removeKeyboard(chatID, messageID)
}

func (c *ProposalController) removeKeyboard(chatID int64, messageID int) {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if _, err := c.sender.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)); err != nil {
		c.logger.Error("Failed to remove proposal buttons",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID))
	}
}

func (c *ProposalController) announce(q *tgbotapi.CallbackQuery, text string) {
	chatID, _, err := messageRef(q)
	if err != nil {
		c.logger.Warn("Cannot announce relationship", zap.Error(err))
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := c.sender.Send(msg); err != nil {
		c.logger.Error("Failed to send announcement", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// refuse answers presses on controls whose proposal was already resolved,
// or which this process no longer knows about.
func (c *ProposalController) refuse(_ context.Context, q *tgbotapi.CallbackQuery, _ string) error {
	c.registry.Alert(q.ID, sentences.NotToYou)
	return nil
}

// restore rebuilds the handler for a saved binding from the relationship as
// it stands now. If the proposal is no longer pending as saved, the press is
// refused.
func (c *ProposalController) restore(ctx context.Context, id string) (Handler, error) {
	binding, err := c.store.GetBinding(ctx, id)
	if errors.Is(err, storage.ErrBindingNotFound) {
		return c.refuse, nil
	}
	if err != nil {
		return nil, err
	}

	key := binding.Proposal
	current, err := c.proposals.Get(ctx, key.OtherID, key.InitiatorID)
	if errors.Is(err, cupid.ErrNotFound) {
		return c.refuse, nil
	}
	if err != nil {
		return nil, err
	}
	if current.Key() != key || current.Accepted {
		return c.refuse, nil
	}

	h := c.handler(id, *current)
	c.registry.Register(id, h)
	c.logger.Info("Restored proposal binding", zap.String("binding_id", id), zap.String("proposal", key.String()))
	return h, nil
}
