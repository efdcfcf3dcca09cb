package args

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cupid-bot/internal/cupid/cupidtest"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/telegramtest"
	"github.com/xaenox/cupid-bot/internal/users"
	"go.uber.org/zap"
)

var sender = &tgbotapi.User{ID: 1, FirstName: "Alice", UserName: "alice"}

func TestParse(t *testing.T) {
	dana := &tgbotapi.User{ID: 4, FirstName: "Dana", LastName: "Scully"}

	tests := []struct {
		name string
		msg  func() *tgbotapi.Message
		want Target
	}{
		{
			name: "username",
			msg:  func() *tgbotapi.Message { return telegramtest.Command(sender, 1, "/propose @bobby") },
			want: Target{Kind: ByUsername, Query: "bobby"},
		},
		{
			name: "id",
			msg:  func() *tgbotapi.Message { return telegramtest.Command(sender, 1, "/propose 42") },
			want: Target{Kind: ByID, ID: 42},
		},
		{
			name: "search",
			msg:  func() *tgbotapi.Message { return telegramtest.Command(sender, 1, "/propose  Bob Smith ") },
			want: Target{Kind: BySearch, Query: "Bob Smith"},
		},
		{
			name: "negative number is a search",
			msg:  func() *tgbotapi.Message { return telegramtest.Command(sender, 1, "/propose -3") },
			want: Target{Kind: BySearch, Query: "-3"},
		},
		{
			name: "text mention",
			msg: func() *tgbotapi.Message {
				m := telegramtest.Command(sender, 1, "/adopt Dana")
				m.Entities = append(m.Entities, tgbotapi.MessageEntity{Type: "text_mention", Offset: 7, Length: 4, User: dana})
				return m
			},
			want: Target{Kind: ByTextMention, Identity: users.Identity{ID: 4, Name: "Dana Scully"}},
		},
		{
			name: "reply",
			msg: func() *tgbotapi.Message {
				m := telegramtest.Command(sender, 1, "/adopt")
				m.ReplyToMessage = &tgbotapi.Message{From: dana}
				return m
			},
			want: Target{Kind: ByReply, Identity: users.Identity{ID: 4, Name: "Dana Scully"}},
		},
		{
			name: "argument beats reply",
			msg: func() *tgbotapi.Message {
				m := telegramtest.Command(sender, 1, "/adopt @bobby")
				m.ReplyToMessage = &tgbotapi.Message{From: dana}
				return m
			},
			want: Target{Kind: ByUsername, Query: "bobby"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.msg())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNoTarget(t *testing.T) {
	for _, text := range []string{"/propose", "/propose @", "/propose   "} {
		_, err := Parse(telegramtest.Command(sender, 1, text))
		assert.ErrorIs(t, err, ErrNoTarget, text)
	}
}

func TestIdentityOf(t *testing.T) {
	id := IdentityOf(&tgbotapi.User{ID: 7, FirstName: "Bob", UserName: "bobby"})
	assert.Equal(t, users.Identity{
		ID:            7,
		Name:          "Bob",
		Discriminator: "bobby",
		AvatarURL:     "https://t.me/i/userpic/320/bobby.jpg",
	}, id)
}

func newResolver(t *testing.T) (*Resolver, *cupidtest.Backend) {
	t.Helper()
	backend := cupidtest.NewBackend()
	backend.AddUser(models.User{ID: 1, Name: "Alice", Discriminator: "alice"})
	backend.AddUser(models.User{ID: 2, Name: "Bob", Discriminator: "bobby"})
	backend.AddUser(models.User{ID: 3, Name: "Bob Smith", Discriminator: "bsmith"})
	backend.AddUser(models.User{ID: 5, Name: "Carol", Discriminator: "carol"})
	backend.AddUser(models.User{ID: 6, Name: "Caroline", Discriminator: "caro"})
	return NewResolver(users.NewResolver(backend, zap.NewNop()), backend), backend
}

func TestResolve(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		target Target
		wantID int64
	}{
		{"id", Target{Kind: ByID, ID: 5}, 5},
		{"username is case insensitive", Target{Kind: ByUsername, Query: "BSmith"}, 3},
		{"exact name beats partial", Target{Kind: BySearch, Query: "bob"}, 2},
		{"single partial match", Target{Kind: BySearch, Query: "lic"}, 1},
		{"exact username in search", Target{Kind: BySearch, Query: "caro"}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := r.Resolve(ctx, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, profile.ID)
		})
	}
}

func TestResolveFailures(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, Target{Kind: ByID, ID: 99})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.EqualError(t, err, `No user found matching "99".`)

	_, err = r.Resolve(ctx, Target{Kind: BySearch, Query: "zed"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = r.Resolve(ctx, Target{Kind: ByUsername, Query: "bob"})
	assert.ErrorIs(t, err, ErrUserNotFound, "usernames only match exactly")

	_, err = r.Resolve(ctx, Target{Kind: BySearch, Query: "o"})
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = r.Resolve(ctx, Target{})
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestResolveRegistersMentionedUsers(t *testing.T) {
	r, backend := newResolver(t)

	profile, err := r.Resolve(context.Background(), Target{
		Kind:     ByReply,
		Identity: users.Identity{ID: 8, Name: "Dana"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", profile.Name)
	assert.Equal(t, models.NonBinary, profile.Gender)
	assert.Equal(t, 1, backend.Calls("create_user"))
}
