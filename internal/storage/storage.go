package storage

import (
	"context"
	"errors"

	"github.com/xaenox/cupid-bot/internal/models"
)

var ErrBindingNotFound = errors.New("binding not found")

// Storage keeps the bindings between sent proposal messages and the
// proposals their buttons act on.
type Storage interface {
	SaveBinding(ctx context.Context, binding *models.Binding) error
	GetBinding(ctx context.Context, id string) (*models.Binding, error)
	DeleteBinding(ctx context.Context, id string) error
	// DeleteBindingsFor removes every binding for the proposal identified
	// by key and returns what was removed.
	DeleteBindingsFor(ctx context.Context, key models.Key) ([]models.Binding, error)
	Close() error
}
