// Package relationships drives the proposal lifecycle: a proposal is created
// pending and is then either accepted or deleted. The Cupid service owns the
// state and arbitrates races; this package issues the transitions and
// reports the service's verdict unchanged.
package relationships

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
)

var ErrInvalidKind = errors.New("invalid relationship kind")

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cupid_relationship_transitions_total",
	Help: "Relationship transitions by kind, transition and result",
}, []string{"kind", "transition", "result"})

// API is the part of the Cupid service the state machine needs.
type API interface {
	GetRelationship(ctx context.Context, userID, otherID int64) (*models.Relationship, error)
	CreateProposal(ctx context.Context, initiatorID, otherID int64, kind models.Kind) error
	AcceptRelationship(ctx context.Context, userID, otherID int64) error
	DeleteRelationship(ctx context.Context, userID, otherID int64, accepted bool) error
}

type State int

const (
	None State = iota
	Pending
	Accepted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	}
	return "none"
}

// StateOf returns the lifecycle state of rel. A nil relationship is None.
func StateOf(rel *models.Relationship) State {
	switch {
	case rel == nil:
		return None
	case rel.Accepted:
		return Accepted
	}
	return Pending
}

type Service struct {
	api    API
	logger *zap.Logger
}

func NewService(api API, logger *zap.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Propose creates a pending relationship from initiator to other and returns
// it as the recipient sees it.
func (s *Service) Propose(ctx context.Context, initiator, other models.User, kind models.Kind) (*models.Relationship, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
	}
	if err := s.api.CreateProposal(ctx, initiator.ID, other.ID, kind); err != nil {
		record(kind, "propose", err)
		return nil, err
	}
	record(kind, "propose", nil)
	s.logger.Info("Proposal created",
		zap.Int64("initiator_id", initiator.ID),
		zap.Int64("other_id", other.ID),
		zap.String("kind", string(kind)))

	// The create call only acknowledges; fetch the full relationship.
	return s.api.GetRelationship(ctx, other.ID, initiator.ID)
}

// Get returns the relationship between userID and otherID.
func (s *Service) Get(ctx context.Context, userID, otherID int64) (*models.Relationship, error) {
	return s.api.GetRelationship(ctx, userID, otherID)
}

// Accept accepts rel on behalf of callerID and returns the accepted
// relationship. Only the recipient may accept; the service rejects anyone
// else, and rejects a second accept.
func (s *Service) Accept(ctx context.Context, callerID int64, rel *models.Relationship) (*models.Relationship, error) {
	if err := s.api.AcceptRelationship(ctx, callerID, rel.Opposite(callerID).ID); err != nil {
		record(rel.Kind, "accept", err)
		return nil, err
	}
	record(rel.Kind, "accept", nil)
	s.logger.Info("Proposal accepted",
		zap.Int64("initiator_id", rel.Initiator.ID),
		zap.Int64("other_id", rel.Other.ID),
		zap.String("kind", string(rel.Kind)))

	accepted := *rel
	accepted.Accepted = true
	return &accepted, nil
}

// Delete removes rel on behalf of callerID. Depending on the state and which
// side the caller is on this cancels, rejects, divorces, disowns or leaves.
// The service refuses if rel is no longer in the state it was seen in, so a
// reject racing an accept cannot also delete the accepted relationship.
func (s *Service) Delete(ctx context.Context, callerID int64, rel *models.Relationship) error {
	transition := "delete_" + StateOf(rel).String()
	if err := s.api.DeleteRelationship(ctx, callerID, rel.Opposite(callerID).ID, rel.Accepted); err != nil {
		record(rel.Kind, transition, err)
		return err
	}
	record(rel.Kind, transition, nil)
	s.logger.Info("Relationship deleted",
		zap.Int64("caller_id", callerID),
		zap.Int64("initiator_id", rel.Initiator.ID),
		zap.Int64("other_id", rel.Other.ID),
		zap.Bool("accepted", rel.Accepted))
	return nil
}

func record(kind models.Kind, transition string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	transitionsTotal.WithLabelValues(string(kind), transition, result).Inc()
}
