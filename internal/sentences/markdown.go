package sentences

import (
	"strconv"
	"strings"

	"github.com/xaenox/cupid-bot/internal/models"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// Escape escapes text for Telegram MarkdownV2.
func Escape(text string) string {
	return markdownEscaper.Replace(text)
}

// Bold escapes text and wraps it in bold markers.
func Bold(text string) string {
	return "*" + Escape(text) + "*"
}

// Italic escapes text and wraps it in italic markers.
func Italic(text string) string {
	return "_" + Escape(text) + "_"
}

// Mention links to a user so that Telegram notifies them.
func Mention(u models.User) string {
	name := u.Name
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return "[" + Escape(name) + "](tg://user?id=" + strconv.FormatInt(u.ID, 10) + ")"
}
