// Package telegramtest records what the bot would send to Telegram.
package telegramtest

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Recorder implements the Send and Request methods of *tgbotapi.BotAPI.
type Recorder struct {
	mu            sync.Mutex
	nextMessageID int
	Sent          []tgbotapi.Chattable
	Requests      []tgbotapi.Chattable
	SendErr       error
}

func (r *Recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return tgbotapi.Message{}, r.SendErr
	}
	r.Sent = append(r.Sent, c)
	r.nextMessageID++

	msg := tgbotapi.Message{MessageID: r.nextMessageID}
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		msg.Chat = &tgbotapi.Chat{ID: m.ChatID}
		msg.Text = m.Text
	case tgbotapi.AnimationConfig:
		msg.Chat = &tgbotapi.Chat{ID: m.ChatID}
		msg.Caption = m.Caption
	case tgbotapi.PhotoConfig:
		msg.Chat = &tgbotapi.Chat{ID: m.ChatID}
		msg.Caption = m.Caption
	}
	return msg, nil
}

func (r *Recorder) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = append(r.Requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// Messages returns the text messages sent so far.
func (r *Recorder) Messages() []tgbotapi.MessageConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range r.Sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

// LastMessage returns the most recent text message, or false if none.
func (r *Recorder) LastMessage() (tgbotapi.MessageConfig, bool) {
	msgs := r.Messages()
	if len(msgs) == 0 {
		return tgbotapi.MessageConfig{}, false
	}
	return msgs[len(msgs)-1], true
}

// Callbacks returns the callback query answers sent so far.
func (r *Recorder) Callbacks() []tgbotapi.CallbackConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range r.Requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

// MarkupEdits returns the reply markup edits sent so far.
func (r *Recorder) MarkupEdits() []tgbotapi.EditMessageReplyMarkupConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range r.Requests {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

// TextEdits returns the message text edits sent so far.
func (r *Recorder) TextEdits() []tgbotapi.EditMessageTextConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range r.Requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

// Press builds a callback query as Telegram would deliver it.
func Press(userID int64, chatID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "q" + data,
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
		Data: data,
	}
}

// Animations returns the animations sent so far.
func (r *Recorder) Animations() []tgbotapi.AnimationConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.AnimationConfig
	for _, c := range r.Sent {
		if a, ok := c.(tgbotapi.AnimationConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

// Photos returns the photos sent so far.
func (r *Recorder) Photos() []tgbotapi.PhotoConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range r.Sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

// Command builds a command message such as "/propose @bob" sent by from in
// chatID.
func Command(from *tgbotapi.User, chatID int64, text string) *tgbotapi.Message {
	command, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 1,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}
}
