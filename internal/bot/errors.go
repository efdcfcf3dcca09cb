package bot

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cupid-bot/internal/args"
	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/relationships"
	"github.com/xaenox/cupid-bot/internal/sentences"
	"github.com/xaenox/cupid-bot/internal/vocabulary"
	"go.uber.org/zap"
)

// renderError is the one place command errors become messages.
func (b *Bot) renderError(message *tgbotapi.Message, err error) {
	chatID := message.Chat.ID

	var (
		apiErr   *cupid.APIError
		argErr   *args.Error
		parseErr *vocabulary.ParseError
		usage    usageError
	)
	switch {
	case errors.As(err, &apiErr):
		text := "\u26a0\ufe0f " + sentences.Bold(apiErr.Description)
		if apiErr.Message != "" {
			text += "\n" + sentences.Escape(apiErr.Message)
		}
		b.sendErrorMarkdown(chatID, text)
	case errors.As(err, &argErr), errors.As(err, &parseErr), errors.As(err, &usage),
		errors.Is(err, relationships.ErrInvalidKind):
		b.sendMessage(chatID, err.Error())
	default:
		b.logger.Error("Command failed",
			zap.Error(err),
			zap.String("command", message.Command()),
			zap.Int64("user_id", message.From.ID),
			zap.Int64("chat_id", chatID))
		b.sendErrorMarkdown(chatID, sentences.Bold(errorTitle(err))+"\n"+sentences.Escape(err.Error()))
	}
}

func (b *Bot) sendErrorMarkdown(chatID int64, text string) {
	if err := b.sendMarkdown(chatID, text); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// errorTitle names an unexpected error after the first error type in its
// chain that is more specific than a plain wrapped message, e.g.
// "*net.OpError" becomes "Op error".
func errorTitle(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		t := reflect.TypeOf(e)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if pkg := t.PkgPath(); pkg == "errors" || pkg == "fmt" || t.Name() == "" {
			continue
		}
		words := strings.ToLower(camelBoundary.ReplaceAllString(t.Name(), "$1 $2"))
		return strings.ToUpper(words[:1]) + words[1:]
	}
	return "Unexpected error"
}
