package interactions

import (
	"container/list"
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/xaenox/cupid-bot/internal/sentences"
	"go.uber.org/zap"
)

const (
	pagePrefix = "g"
	actionPrev = "prev"
	actionNext = "next"

	// defaultMaxLists is how many lists keep working buttons. Older lists
	// expire as new ones are sent.
	defaultMaxLists = 100
)

// PageFunc fetches one zero-indexed page of MarkdownV2 lines and reports how
// many pages there are.
type PageFunc func(ctx context.Context, page int) (lines []string, pageCount int, err error)

// Paginator sends lists with back and next buttons. Only the user who asked
// for the list can turn its pages.
type Paginator struct {
	registry *Registry
	sender   Sender
	logger   *zap.Logger

	mu       sync.Mutex
	open     *list.List // binding IDs, oldest first
	maxLists int
}

func NewPaginator(registry *Registry, sender Sender, logger *zap.Logger) *Paginator {
	return &Paginator{
		registry: registry,
		sender:   sender,
		logger:   logger,
		open:     list.New(),
		maxLists: defaultMaxLists,
	}
}

// Start sends the first page of a list to chatID.
func (p *Paginator) Start(ctx context.Context, chatID, ownerID int64, title string, fetch PageFunc) error {
	lines, pageCount, err := fetch(ctx, 0)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	msg := tgbotapi.NewMessage(chatID, sentences.Page(title, lines, 0, pageCount))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if markup, ok := pageKeyboard(id, 0, pageCount); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := p.sender.Send(msg); err != nil {
		return err
	}
	if pageCount > 1 {
		p.track(id, p.handler(ownerID, title, pageCount, fetch))
	}
	return nil
}

// track registers h and expires the oldest list once more than maxLists
// are open.
func (p *Paginator) track(id string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry.Register(id, h)
	p.open.PushBack(id)
	for p.open.Len() > p.maxLists {
		oldest := p.open.Remove(p.open.Front()).(string)
		p.registry.Unregister(oldest)
		p.logger.Debug("Expired list buttons", zap.String("binding_id", oldest))
	}
}

func (p *Paginator) handler(ownerID int64, title string, pageCount int, fetch PageFunc) Handler {
	var (
		mu   sync.Mutex
		page int
	)
	return func(ctx context.Context, q *tgbotapi.CallbackQuery, action string) error {
		if q.From.ID != ownerID {
			p.registry.Acknowledge(q.ID)
			return nil
		}

		mu.Lock()
		defer mu.Unlock()

		next := page
		switch action {
		case actionPrev:
			next--
		case actionNext:
			next++
		}
		next = clamp(next, pageCount)

		lines, count, err := fetch(ctx, next)
		if err != nil {
			return err
		}
		page, pageCount = clamp(next, count), count

		chatID, messageID, err := messageRef(q)
		if err != nil {
			return err
		}
		_, id, _, _ := ParseCallbackData(q.Data)
		edit := tgbotapi.NewEditMessageText(chatID, messageID, sentences.Page(title, lines, page, pageCount))
		edit.ParseMode = tgbotapi.ModeMarkdownV2
		if markup, ok := pageKeyboard(id, page, pageCount); ok {
			edit.ReplyMarkup = &markup
		}
		if _, err := p.sender.Request(edit); err != nil {
			return err
		}
		p.registry.Acknowledge(q.ID)
		return nil
	}
}

func clamp(page, pageCount int) int {
	if page >= pageCount {
		page = pageCount - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// pageKeyboard omits the buttons that would move past either end.
func pageKeyboard(id string, page, pageCount int) (tgbotapi.InlineKeyboardMarkup, bool) {
	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("\U0001F810", CallbackData(pagePrefix, id, actionPrev)))
	}
	if page < pageCount-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("\U0001F812", CallbackData(pagePrefix, id, actionNext)))
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}
