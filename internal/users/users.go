// Package users keeps Cupid user records in step with the chat platform.
package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/vocabulary"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// API is the part of the Cupid service the resolver needs.
type API interface {
	GetUser(ctx context.Context, id int64) (*models.Profile, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	EditUser(ctx context.Context, id int64, edit cupid.UserEdit) (*models.User, error)
}

// Identity is what the chat platform currently reports about a user.
type Identity struct {
	ID            int64
	Name          string
	Discriminator string
	AvatarURL     string
}

type Resolver struct {
	api    API
	group  singleflight.Group
	logger *zap.Logger
}

func NewResolver(api API, logger *zap.Logger) *Resolver {
	return &Resolver{api: api, logger: logger}
}

// Ensure returns the Cupid profile for id, registering the user if they are
// new and updating their name, tag and avatar if those changed. Concurrent
// calls for the same user share one round of requests.
func (r *Resolver) Ensure(ctx context.Context, id Identity) (*models.Profile, error) {
	v, err, _ := r.group.Do(strconv.FormatInt(id.ID, 10), func() (any, error) {
		return r.ensure(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Profile), nil
}

func (r *Resolver) ensure(ctx context.Context, id Identity) (*models.Profile, error) {
	profile, err := r.api.GetUser(ctx, id.ID)
	if errors.Is(err, cupid.ErrNotFound) {
		return r.register(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	edit := changes(profile.User, id)
	if edit.Empty() {
		return profile, nil
	}
	updated, err := r.api.EditUser(ctx, id.ID, edit)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Updated user", zap.Int64("user_id", id.ID))
	profile.User = *updated
	return profile, nil
}

func (r *Resolver) register(ctx context.Context, id Identity) (*models.Profile, error) {
	_, err := r.api.CreateUser(ctx, models.User{
		ID:            id.ID,
		Name:          id.Name,
		Discriminator: id.Discriminator,
		AvatarURL:     StripQuery(id.AvatarURL),
		Gender:        models.NonBinary,
	})
	switch {
	case errors.Is(err, cupid.ErrConflict):
		// Someone else registered them first; the fetch below picks that up.
		r.logger.Debug("User already registered", zap.Int64("user_id", id.ID))
	case err != nil:
		return nil, err
	default:
		r.logger.Info("Registered user", zap.Int64("user_id", id.ID), zap.String("name", id.Name))
	}

	// The service fills in fields of its own, so read the record back.
	return r.api.GetUser(ctx, id.ID)
}

// Lookup fetches an existing user without registering them.
func (r *Resolver) Lookup(ctx context.Context, id int64) (*models.Profile, error) {
	return r.api.GetUser(ctx, id)
}

// SetGender changes the gender on a user's profile.
func (r *Resolver) SetGender(ctx context.Context, id int64, gender models.Gender) (*models.User, error) {
	if _, err := vocabulary.Resolve(gender); err != nil {
		return nil, err
	}
	return r.api.EditUser(ctx, id, cupid.UserEdit{Gender: &gender})
}

func changes(stored models.User, id Identity) cupid.UserEdit {
	var edit cupid.UserEdit
	if stored.Name != id.Name {
		edit.Name = &id.Name
	}
	if stored.Discriminator != id.Discriminator {
		edit.Discriminator = &id.Discriminator
	}
	avatar := StripQuery(id.AvatarURL)
	if StripQuery(stored.AvatarURL) != avatar {
		edit.AvatarURL = &avatar
	}
	return edit
}

// StripQuery drops the query string from an avatar URL. Avatar URLs carry
// cache busting parameters that change without the image changing.
func StripQuery(raw string) string {
	base, _, _ := strings.Cut(raw, "?")
	return base
}
