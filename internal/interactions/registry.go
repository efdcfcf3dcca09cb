// Package interactions routes presses of inline keyboard buttons to the
// handler registered for the message they belong to.
package interactions

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	expiredNotice = "These buttons have expired."
	failedNotice  = "Something went wrong. Please try again."

	// Telegram limits alert text to 200 characters.
	maxAlertLength = 200
)

var interactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cupid_interactions_total",
	Help: "Button presses by control type, action and result",
}, []string{"prefix", "action", "result"})

// Sender is the part of the Telegram bot API used to reply to presses.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler handles one press of a control. action is the last part of the
// button's callback data.
type Handler func(ctx context.Context, q *tgbotapi.CallbackQuery, action string) error

// Restorer supplies a handler for a binding the registry does not hold,
// typically after a restart. The handler is used for the current press
// only; a restorer that wants to keep it registers it itself. A nil handler
// means the binding is unknown.
type Restorer func(ctx context.Context, id string) (Handler, error)

type Registry struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	restorers map[string]Restorer
	sender    Sender
	logger    *zap.Logger
}

func NewRegistry(sender Sender, logger *zap.Logger) *Registry {
	return &Registry{
		handlers:  make(map[string]Handler),
		restorers: make(map[string]Restorer),
		sender:    sender,
		logger:    logger,
	}
}

// CallbackData builds the data carried by a button.
func CallbackData(prefix, id, action string) string {
	return prefix + ":" + id + ":" + action
}

// ParseCallbackData splits data built by CallbackData.
func ParseCallbackData(data string) (prefix, id, action string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func (r *Registry) Register(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
}

// SetRestorer installs fn for bindings whose callback data uses prefix.
func (r *Registry) SetRestorer(prefix string, fn Restorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restorers[prefix] = fn
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

func (r *Registry) lookup(prefix, id string) (Handler, Restorer) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[id], r.restorers[prefix]
}

// Dispatch routes a callback query to its handler. Unknown or expired
// controls get a private notice. Handler errors are logged and the presser
// gets a generic private notice.
func (r *Registry) Dispatch(ctx context.Context, q *tgbotapi.CallbackQuery) {
	prefix, id, action, ok := ParseCallbackData(q.Data)
	if !ok {
		r.logger.Warn("Malformed callback data", zap.String("data", q.Data), zap.Int64("user_id", q.From.ID))
		r.Alert(q.ID, expiredNotice)
		return
	}

	handler, restore := r.lookup(prefix, id)
	if handler == nil && restore != nil {
		restored, err := restore(ctx, id)
		if err != nil {
			r.logger.Error("Failed to restore binding", zap.Error(err), zap.String("binding_id", id))
		}
		handler = restored
	}
	if handler == nil {
		interactionsTotal.WithLabelValues(prefix, action, "expired").Inc()
		r.Alert(q.ID, expiredNotice)
		return
	}

	if err := handler(ctx, q, action); err != nil {
		interactionsTotal.WithLabelValues(prefix, action, "error").Inc()
		r.logger.Error("Interaction failed",
			zap.Error(err),
			zap.String("binding_id", id),
			zap.String("action", action),
			zap.Int64("user_id", q.From.ID))
		r.Alert(q.ID, failedNotice)
		return
	}
	interactionsTotal.WithLabelValues(prefix, action, "ok").Inc()
}

// Alert answers a callback query with text only the presser sees.
func (r *Registry) Alert(queryID, text string) {
	if len([]rune(text)) > maxAlertLength {
		text = string([]rune(text)[:maxAlertLength-1]) + "…"
	}
	if _, err := r.sender.Request(tgbotapi.NewCallbackWithAlert(queryID, text)); err != nil {
		r.logger.Error("Failed to answer callback", zap.Error(err), zap.String("query_id", queryID))
	}
}

// Acknowledge answers a callback query without showing anything.
func (r *Registry) Acknowledge(queryID string) {
	if _, err := r.sender.Request(tgbotapi.NewCallback(queryID, "")); err != nil {
		r.logger.Error("Failed to answer callback", zap.Error(err), zap.String("query_id", queryID))
	}
}

func messageRef(q *tgbotapi.CallbackQuery) (chatID int64, messageID int, err error) {
	if q.Message == nil || q.Message.Chat == nil {
		return 0, 0, fmt.Errorf("callback query %s has no message", q.ID)
	}
	return q.Message.Chat.ID, q.Message.MessageID, nil
}
