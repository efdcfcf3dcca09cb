package relationships

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/cupid/cupidtest"
	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
)

var (
	alice = models.User{ID: 1, Name: "Alice", Gender: models.Female}
	bob   = models.User{ID: 2, Name: "Bob", Gender: models.Male}
	carol = models.User{ID: 3, Name: "Carol", Gender: models.Female}
)

func setup(t *testing.T) (*Service, *cupidtest.Backend) {
	t.Helper()
	backend := cupidtest.NewBackend()
	for _, u := range []models.User{alice, bob, carol} {
		backend.AddUser(u)
	}
	return NewService(backend, zap.NewNop()), backend
}

func TestProposeThenAccept(t *testing.T) {
	for _, kind := range []models.Kind{models.Marriage, models.Adoption} {
		t.Run(string(kind), func(t *testing.T) {
			svc, _ := setup(t)
			ctx := context.Background()

			proposal, err := svc.Propose(ctx, alice, bob, kind)
			require.NoError(t, err)
			assert.Equal(t, Pending, StateOf(proposal))
			assert.Equal(t, alice.ID, proposal.Initiator.ID)
			assert.Equal(t, bob.ID, proposal.Other.ID)

			accepted, err := svc.Accept(ctx, bob.ID, proposal)
			require.NoError(t, err)
			assert.Equal(t, Accepted, StateOf(accepted))
			assert.Equal(t, alice.ID, accepted.Initiator.ID)
			assert.Equal(t, bob.ID, accepted.Other.ID)
			assert.Equal(t, kind, accepted.Kind)
			assert.False(t, proposal.Accepted, "the pending copy is not modified")

			stored, err := svc.Get(ctx, alice.ID, bob.ID)
			require.NoError(t, err)
			assert.True(t, stored.Accepted)
		})
	}
}

func TestProposeRejectedByService(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Propose(ctx, alice, alice, models.Marriage)
	assert.ErrorIs(t, err, cupid.ErrBadRequest)

	_, err = svc.Propose(ctx, alice, bob, models.Marriage)
	require.NoError(t, err)
	_, err = svc.Propose(ctx, bob, alice, models.Adoption)
	assert.ErrorIs(t, err, cupid.ErrConflict)

	_, err = svc.Propose(ctx, alice, carol, "friendship")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestOnlyRecipientMayAccept(t *testing.T) {
	svc, backend := setup(t)
	ctx := context.Background()

	proposal, err := svc.Propose(ctx, alice, bob, models.Marriage)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, alice.ID, proposal)
	assert.ErrorIs(t, err, cupid.ErrForbidden)

	_, err = svc.Accept(ctx, carol.ID, proposal)
	assert.Error(t, err)

	stored, err := svc.Get(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, stored.Accepted)
	assert.Equal(t, 2, backend.Calls("accept_relationship"))
}

func TestAcceptTwiceSurfacesServiceError(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	proposal, err := svc.Propose(ctx, alice, bob, models.Marriage)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, bob.ID, proposal)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, bob.ID, proposal)
	var apiErr *cupid.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "This relationship has already been accepted.", apiErr.Message)
}

func TestDeleteByEitherParty(t *testing.T) {
	tests := []struct {
		name     string
		caller   models.User
		accepted bool
	}{
		{"cancel by initiator", alice, false},
		{"reject by recipient", bob, false},
		{"divorce by initiator", alice, true},
		{"divorce by recipient", bob, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, backend := setup(t)
			ctx := context.Background()
			backend.AddRelationship(alice.ID, bob.ID, models.Marriage, tt.accepted)

			rel, err := svc.Get(ctx, tt.caller.ID, alice.ID+bob.ID-tt.caller.ID)
			require.NoError(t, err)
			require.NoError(t, svc.Delete(ctx, tt.caller.ID, rel))

			_, err = svc.Get(ctx, alice.ID, bob.ID)
			assert.ErrorIs(t, err, cupid.ErrNotFound)
		})
	}
}

func TestDeleteStaleStateConflicts(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	proposal, err := svc.Propose(ctx, alice, bob, models.Marriage)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, bob.ID, proposal)
	require.NoError(t, err)

	// Rejecting the pending copy must not divorce them.
	err = svc.Delete(ctx, bob.ID, proposal)
	assert.ErrorIs(t, err, cupid.ErrConflict)

	stored, err := svc.Get(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	proposal, err := svc.Propose(ctx, alice, bob, models.Marriage)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Accept(ctx, bob.ID, proposal)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, failed int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			failed++
			assert.ErrorIs(t, err, cupid.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
}

func TestAcceptAndRejectRace(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	proposal, err := svc.Propose(ctx, alice, bob, models.Adoption)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var acceptErr, deleteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = svc.Accept(ctx, bob.ID, proposal)
	}()
	go func() {
		defer wg.Done()
		deleteErr = svc.Delete(ctx, bob.ID, proposal)
	}()
	wg.Wait()

	// Whatever the interleaving, the store ends up consistent with the
	// operations that succeeded.
	stored, getErr := svc.Get(ctx, alice.ID, bob.ID)
	switch {
	case deleteErr == nil:
		assert.ErrorIs(t, getErr, cupid.ErrNotFound)
	default:
		require.NoError(t, acceptErr)
		require.NoError(t, getErr)
		assert.True(t, stored.Accepted)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "none", StateOf(nil).String())
	assert.Equal(t, "pending", StateOf(&models.Relationship{}).String())
	assert.Equal(t, "accepted", StateOf(&models.Relationship{Accepted: true}).String())
}
