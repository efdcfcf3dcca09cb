package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/cupid/cupidtest"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/vocabulary"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEnsureRegistersNewUser(t *testing.T) {
	backend := cupidtest.NewBackend()
	r := NewResolver(backend, zap.NewNop())

	profile, err := r.Ensure(context.Background(), Identity{
		ID: 7, Name: "Alice", Discriminator: "alice", AvatarURL: "https://cdn/a.jpg?size=320",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), profile.ID)
	assert.Equal(t, models.NonBinary, profile.Gender)
	assert.Equal(t, "https://cdn/a.jpg", profile.AvatarURL)
	assert.Equal(t, 1, backend.Calls("create_user"))
	// Read back after creating rather than trusting the create response.
	assert.Equal(t, 2, backend.Calls("get_user"))
}

func TestEnsureIsIdempotent(t *testing.T) {
	backend := cupidtest.NewBackend()
	r := NewResolver(backend, zap.NewNop())
	id := Identity{ID: 7, Name: "Alice", AvatarURL: "https://cdn/a.jpg?v=1"}

	_, err := r.Ensure(context.Background(), id)
	require.NoError(t, err)

	id.AvatarURL = "https://cdn/a.jpg?v=2"
	_, err = r.Ensure(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.Calls("create_user"))
	assert.Equal(t, 0, backend.Calls("edit_user"), "a new cache buster is not a new avatar")
}

func TestEnsureUpdatesChangedFields(t *testing.T) {
	backend := cupidtest.NewBackend()
	backend.AddUser(models.User{ID: 7, Name: "Alice", Discriminator: "alice", Gender: models.Female})
	backend.AddRelationship(7, 8, models.Marriage, true)
	backend.AddUser(models.User{ID: 8, Name: "Bob"})
	r := NewResolver(backend, zap.NewNop())

	profile, err := r.Ensure(context.Background(), Identity{ID: 7, Name: "Alicia", Discriminator: "alice"})
	require.NoError(t, err)

	assert.Equal(t, "Alicia", profile.Name)
	assert.Equal(t, models.Female, profile.Gender)
	assert.Len(t, profile.Relationships, 1)
	assert.Equal(t, 1, backend.Calls("edit_user"))

	stored, _ := backend.User(7)
	assert.Equal(t, "Alicia", stored.Name)
}

func TestEnsureConcurrentCallsRegisterOnce(t *testing.T) {
	backend := cupidtest.NewBackend()
	r := NewResolver(backend, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Ensure(context.Background(), Identity{ID: 9, Name: "Eve"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, ok := backend.User(9)
	assert.True(t, ok)
}

type failingAPI struct {
	cupidtest.Backend
	err error
}

func (f *failingAPI) GetUser(context.Context, int64) (*models.Profile, error) {
	return nil, f.err
}

func TestEnsurePropagatesErrors(t *testing.T) {
	apiErr := cupid.NewAPIError(503, "maintenance")
	r := NewResolver(&failingAPI{err: apiErr}, zap.NewNop())

	_, err := r.Ensure(context.Background(), Identity{ID: 1})
	assert.Same(t, apiErr, err)
}

// lateAPI lets another registration land between the lookup and the create.
type lateAPI struct {
	*cupidtest.Backend
}

func (l lateAPI) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	l.AddUser(models.User{ID: user.ID, Name: "Registered elsewhere"})
	return l.Backend.CreateUser(ctx, user)
}

func TestEnsureLosesRegistrationRace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(lateAPI{cupidtest.NewBackend()}, zap.New(core))

	profile, err := r.Ensure(context.Background(), Identity{ID: 7, Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Registered elsewhere", profile.Name)

	assert.Zero(t, logs.FilterMessage("Registered user").Len())
	entries := logs.FilterMessage("User already registered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestSetGender(t *testing.T) {
	backend := cupidtest.NewBackend()
	backend.AddUser(models.User{ID: 7, Name: "Alice"})
	r := NewResolver(backend, zap.NewNop())

	user, err := r.SetGender(context.Background(), 7, models.Female)
	require.NoError(t, err)
	assert.Equal(t, models.Female, user.Gender)

	_, err = r.SetGender(context.Background(), 7, "robot")
	assert.True(t, errors.Is(err, vocabulary.ErrUnknownGender))
	assert.Equal(t, 1, backend.Calls("edit_user"))

	_, err = r.SetGender(context.Background(), 99, models.Male)
	assert.ErrorIs(t, err, cupid.ErrNotFound)
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://cdn/a.png", StripQuery("https://cdn/a.png?size=1024"))
	assert.Equal(t, "https://cdn/a.png", StripQuery("https://cdn/a.png"))
	assert.Equal(t, "", StripQuery(""))
}
