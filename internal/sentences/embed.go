package sentences

import (
	"strconv"
	"strings"

	"github.com/xaenox/cupid-bot/internal/models"
)

// Field is a titled section of an Embed. Name is plain text, Value MarkdownV2.
type Field struct {
	Name  string
	Value string
}

// Embed is a titled block of text. Author, Title and Footer are plain text;
// Description and field values are MarkdownV2.
type Embed struct {
	Author      string
	Title       string
	Description string
	Fields      []Field
	Footer      string
}

func (e Embed) AddField(name, value string) Embed {
	e.Fields = append(e.Fields, Field{Name: name, Value: value})
	return e
}

// Render formats the embed as a MarkdownV2 message body.
func (e Embed) Render() string {
	var b strings.Builder
	if e.Author != "" {
		b.WriteString(Italic(e.Author) + "\n")
	}
	if e.Title != "" {
		b.WriteString(Bold(e.Title) + "\n")
	}
	if e.Description != "" {
		b.WriteString(e.Description + "\n")
	}
	for _, f := range e.Fields {
		b.WriteString("\n" + Bold(f.Name) + "\n" + f.Value + "\n")
	}
	if e.Footer != "" {
		b.WriteString("\n" + Italic(e.Footer))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Profile summarises a user, their gender and accepted relationships.
func Profile(p models.Profile) Embed {
	lines := make([]string, 0, len(p.Relationships))
	for _, rel := range p.Relationships {
		lines = append(lines, RelationshipTo(p.User, rel))
	}
	relationships := Italic("No relationships.")
	if len(lines) > 0 {
		relationships = strings.Join(lines, "\n")
	}

	footer := "ID: " + strconv.FormatInt(p.ID, 10)
	if p.Discriminator != "" {
		footer = "@" + p.Discriminator + " · " + footer
	}
	return Embed{
		Title:       p.Name,
		Description: GenderLine(p.User),
		Footer:      footer,
	}.AddField("Relationships", relationships)
}

// Proposals lists a user's incoming and outgoing proposals.
func Proposals(p models.Profile) Embed {
	return Embed{Author: p.Name, Title: "Proposals"}.
		AddField("Incoming", IncomingProposals(p)).
		AddField("Outgoing", OutgoingProposals(p))
}

// Page renders one page of a paginated list.
func Page(title string, lines []string, page, pageCount int) string {
	content := strings.Join(lines, "\n")
	if content == "" {
		content = Italic("There's nothing here.")
	}
	if pageCount < 1 {
		pageCount = 1
	}
	footer := "Page " + strconv.Itoa(page+1) + " of " + strconv.Itoa(pageCount)
	return Bold(title) + "\n\n" + content + "\n\n" + Escape(footer)
}
