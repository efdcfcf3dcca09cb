// Package vocabulary maps a user's gender to the words used to talk about
// them.
package vocabulary

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xaenox/cupid-bot/internal/models"
)

var ErrUnknownGender = errors.New("unknown gender")

// Pronouns is the pronoun set for one gender.
type Pronouns struct {
	Subjective string
	Objective  string
	Possessive string
	Reflexive  string
}

// Entry holds the display vocabulary for one gender.
type Entry struct {
	Emoji    string
	Name     string
	Pronouns Pronouns
	Parent   string
	Child    string
	Partner  string
}

// Title returns the emoji followed by the capitalised gender name.
func (e Entry) Title() string {
	return e.Emoji + " " + Capitalise(e.Name)
}

const (
	baseEmoji = "\U0001F64B"
	joiner    = "\u200d"
	variation = "\ufe0f"
)

var entries = map[models.Gender]Entry{
	models.NonBinary: {
		Emoji:    baseEmoji,
		Name:     "non-binary",
		Pronouns: Pronouns{Subjective: "they", Objective: "them", Possessive: "their", Reflexive: "themself"},
		Parent:   "parent",
		Child:    "child",
		Partner:  "partner",
	},
	models.Female: {
		Emoji:    baseEmoji + joiner + "\u2640" + variation,
		Name:     "female",
		Pronouns: Pronouns{Subjective: "she", Objective: "her", Possessive: "her", Reflexive: "herself"},
		Parent:   "mother",
		Child:    "daughter",
		Partner:  "wife",
	},
	models.Male: {
		Emoji:    baseEmoji + joiner + "\u2642" + variation,
		Name:     "male",
		Pronouns: Pronouns{Subjective: "he", Objective: "him", Possessive: "his", Reflexive: "himself"},
		Parent:   "father",
		Child:    "son",
		Partner:  "husband",
	},
}

// Resolve returns the vocabulary for g.
func Resolve(g models.Gender) (Entry, error) {
	e, ok := entries[g]
	if !ok {
		return Entry{}, fmt.Errorf("%w %q", ErrUnknownGender, string(g))
	}
	return e, nil
}

// ResolveOrDefault is Resolve for genders that came back from the Cupid
// service, where narration must still render. It never fails: a gender the
// bot does not know falls back to the non-binary entry. Use Resolve to
// reject unknown genders.
func ResolveOrDefault(g models.Gender) Entry {
	if e, ok := entries[g]; ok {
		return e
	}
	return entries[models.NonBinary]
}

// ParseError is returned when gender text from a user is not recognised.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(`Unknown gender %q. Should be "non-binary", "female" or "male".`, e.Raw)
}

func (e *ParseError) Unwrap() error { return ErrUnknownGender }

var separators = regexp.MustCompile(`[_ -]`)

var aliases = map[string]models.Gender{
	"nb": models.NonBinary, "enby": models.NonBinary, "nonbinary": models.NonBinary,
	"neutral": models.NonBinary, "neither": models.NonBinary,
	"f": models.Female, "female": models.Female, "girl": models.Female,
	"woman": models.Female, "lady": models.Female,
	"m": models.Male, "male": models.Male, "boy": models.Male,
	"man": models.Male, "guy": models.Male,
}

// ParseGender converts free text typed by a user into a gender.
func ParseGender(raw string) (models.Gender, error) {
	key := separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")
	if g, ok := aliases[key]; ok {
		return g, nil
	}
	return "", &ParseError{Raw: raw}
}

// Capitalise upper-cases the first letter of s.
func Capitalise(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
