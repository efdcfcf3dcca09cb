// Package args turns the argument of a command into the Cupid user it
// refers to.
package args

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/users"
)

var (
	ErrNoTarget     = errors.New("no target")
	ErrUserNotFound = errors.New("user not found")
	ErrAmbiguous    = errors.New("ambiguous target")
)

// Error is a target that could not be parsed or resolved. Its message is
// meant for the user who sent the command.
type Error struct {
	Err   error
	Query string
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrUserNotFound):
		return fmt.Sprintf("No user found matching %q.", e.Query)
	case errors.Is(e.Err, ErrAmbiguous):
		return fmt.Sprintf("More than one user matches %q. Try their @username instead.", e.Query)
	}
	return "Mention someone, reply to one of their messages, or give their name or ID."
}

func (e *Error) Unwrap() error { return e.Err }

type Kind int

const (
	ByReply Kind = iota + 1
	ByTextMention
	ByUsername
	ByID
	BySearch
)

func (k Kind) String() string {
	switch k {
	case ByReply:
		return "reply"
	case ByTextMention:
		return "text_mention"
	case ByUsername:
		return "username"
	case ByID:
		return "id"
	case BySearch:
		return "search"
	}
	return "unknown"
}

// Target is the user a command refers to, in whichever form it was given.
// Identity is set for ByReply and ByTextMention, ID for ByID, and Query for
// ByUsername (without the @) and BySearch.
type Target struct {
	Kind     Kind
	Identity users.Identity
	ID       int64
	Query    string
}

// Parse reads the target of a command message. An explicit argument wins
// over the message being a reply.
func Parse(msg *tgbotapi.Message) (Target, error) {
	for _, entity := range msg.Entities {
		if entity.Type == "text_mention" && entity.User != nil {
			return Target{Kind: ByTextMention, Identity: IdentityOf(entity.User)}, nil
		}
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	switch {
	case strings.HasPrefix(arg, "@"):
		if len(arg) > 1 {
			return Target{Kind: ByUsername, Query: arg[1:]}, nil
		}
	case arg != "":
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
			return Target{Kind: ByID, ID: id}, nil
		}
		return Target{Kind: BySearch, Query: arg}, nil
	}

	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		return Target{Kind: ByReply, Identity: IdentityOf(reply.From)}, nil
	}
	return Target{}, &Error{Err: ErrNoTarget}
}

// IdentityOf describes a Telegram user the way Cupid stores them.
func IdentityOf(u *tgbotapi.User) users.Identity {
	id := users.Identity{
		ID:            u.ID,
		Name:          strings.TrimSpace(u.FirstName + " " + u.LastName),
		Discriminator: u.UserName,
	}
	if u.UserName != "" {
		id.AvatarURL = "https://t.me/i/userpic/320/" + u.UserName + ".jpg"
	}
	return id
}

// Users registers and looks up Cupid users.
type Users interface {
	Ensure(ctx context.Context, id users.Identity) (*models.Profile, error)
	Lookup(ctx context.Context, id int64) (*models.Profile, error)
}

// Directory searches Cupid users.
type Directory interface {
	ListUsers(ctx context.Context, search string, page int) (*models.UserPage, error)
}

type Resolver struct {
	users     Users
	directory Directory
}

func NewResolver(users Users, directory Directory) *Resolver {
	return &Resolver{users: users, directory: directory}
}

// Resolve fetches the profile of the user t refers to. Users met through a
// reply or mention are registered if needed; the others must already be
// known to Cupid.
func (r *Resolver) Resolve(ctx context.Context, t Target) (*models.Profile, error) {
	switch t.Kind {
	case ByReply, ByTextMention:
		return r.users.Ensure(ctx, t.Identity)
	case ByID:
		profile, err := r.users.Lookup(ctx, t.ID)
		if errors.Is(err, cupid.ErrNotFound) {
			return nil, &Error{Err: ErrUserNotFound, Query: strconv.FormatInt(t.ID, 10)}
		}
		return profile, err
	case ByUsername, BySearch:
		user, err := r.search(ctx, t)
		if err != nil {
			return nil, err
		}
		return r.users.Lookup(ctx, user.ID)
	}
	return nil, &Error{Err: ErrNoTarget}
}

// search finds the single user matching t. An exact match on the username,
// or for free text searches on the name, beats partial matches.
func (r *Resolver) search(ctx context.Context, t Target) (*models.User, error) {
	page, err := r.directory.ListUsers(ctx, t.Query, 0)
	if err != nil {
		return nil, err
	}

	var exact []models.User
	for _, u := range page.Items {
		if strings.EqualFold(u.Discriminator, t.Query) ||
			(t.Kind == BySearch && strings.EqualFold(u.Name, t.Query)) {
			exact = append(exact, u)
		}
	}

	candidates := exact
	if t.Kind == BySearch && len(exact) == 0 {
		candidates = page.Items
	}
	switch {
	case len(candidates) == 0:
		return nil, &Error{Err: ErrUserNotFound, Query: t.Query}
	case len(candidates) > 1 || page.TotalPages > 1 && len(exact) == 0:
		return nil, &Error{Err: ErrAmbiguous, Query: t.Query}
	}
	return &candidates[0], nil
}
