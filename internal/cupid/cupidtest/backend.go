// Package cupidtest provides an in-memory Cupid service for tests.
package cupidtest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/models"
)

const DefaultPageSize = 10

type edge struct {
	initiator int64
	other     int64
	kind      models.Kind
	accepted  bool
}

func (e *edge) joins(a, b int64) bool {
	return (e.initiator == a && e.other == b) || (e.initiator == b && e.other == a)
}

// Backend holds users and relationships in memory and enforces the rules
// the real service enforces: no self proposals, one relationship per pair
// of users, only the recipient may accept, accepting twice conflicts, and a
// delete only applies to the state the caller expected.
type Backend struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	edges    []*edge
	calls    map[string]int
	PageSize int
	Token    string
}

func NewBackend() *Backend {
	return &Backend{
		users:    make(map[int64]*models.User),
		calls:    make(map[string]int),
		PageSize: DefaultPageSize,
	}
}

// Calls returns how many times op has been invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// AddUser stores u directly, bypassing the API.
func (b *Backend) AddUser(u models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.Gender == "" {
		u.Gender = models.NonBinary
	}
	b.users[u.ID] = &u
}

// AddRelationship stores a relationship directly, bypassing the API.
func (b *Backend) AddRelationship(initiatorID, otherID int64, kind models.Kind, accepted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edges = append(b.edges, &edge{initiator: initiatorID, other: otherID, kind: kind, accepted: accepted})
}

// RemoveRelationship deletes the edge between a and b, bypassing the API.
func (b *Backend) RemoveRelationship(a, c int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.find(a, c); i >= 0 {
		b.edges = append(b.edges[:i], b.edges[i+1:]...)
	}
}

// User returns the stored copy of a user.
func (b *Backend) User(id int64) (models.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

func (b *Backend) GetUser(_ context.Context, id int64) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["get_user"]++

	u, ok := b.users[id]
	if !ok {
		return nil, cupid.NewAPIError(http.StatusNotFound, fmt.Sprintf("User %d is not registered.", id))
	}

	profile := &models.Profile{User: *u}
	for _, e := range b.edges {
		if e.initiator != id && e.other != id {
			continue
		}
		rel := b.relationship(e)
		switch {
		case e.accepted:
			profile.Relationships = append(profile.Relationships, rel)
		case e.other == id:
			profile.IncomingProposals = append(profile.IncomingProposals, rel)
		default:
			profile.OutgoingProposals = append(profile.OutgoingProposals, rel)
		}
	}
	return profile, nil
}

func (b *Backend) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["create_user"]++

	if _, ok := b.users[user.ID]; ok {
		return nil, cupid.NewAPIError(http.StatusConflict, "User already exists.")
	}
	if user.Gender == "" {
		user.Gender = models.NonBinary
	}
	if !user.Gender.Valid() {
		return nil, cupid.NewAPIError(http.StatusBadRequest, "Invalid gender.")
	}
	b.users[user.ID] = &user
	created := user
	return &created, nil
}

func (b *Backend) EditUser(_ context.Context, id int64, edit cupid.UserEdit) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["edit_user"]++

	u, ok := b.users[id]
	if !ok {
		return nil, cupid.NewAPIError(http.StatusNotFound, fmt.Sprintf("User %d is not registered.", id))
	}
	if edit.Gender != nil && !edit.Gender.Valid() {
		return nil, cupid.NewAPIError(http.StatusBadRequest, "Invalid gender.")
	}
	if edit.Name != nil {
		u.Name = *edit.Name
	}
	if edit.Discriminator != nil {
		u.Discriminator = *edit.Discriminator
	}
	if edit.AvatarURL != nil {
		u.AvatarURL = *edit.AvatarURL
	}
	if edit.Gender != nil {
		u.Gender = *edit.Gender
	}
	updated := *u
	return &updated, nil
}

func (b *Backend) GetRelationship(_ context.Context, userID, otherID int64) (*models.Relationship, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["get_relationship"]++

	i := b.find(userID, otherID)
	if i < 0 {
		return nil, notRelated()
	}
	rel := b.relationship(b.edges[i])
	return &rel, nil
}

func (b *Backend) CreateProposal(_ context.Context, initiatorID, otherID int64, kind models.Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["create_proposal"]++

	if !kind.Valid() {
		return cupid.NewAPIError(http.StatusBadRequest, "Invalid relationship kind.")
	}
	if initiatorID == otherID {
		return cupid.NewAPIError(http.StatusBadRequest, "You can't propose to yourself.")
	}
	for _, id := range []int64{initiatorID, otherID} {
		if _, ok := b.users[id]; !ok {
			return cupid.NewAPIError(http.StatusNotFound, fmt.Sprintf("User %d is not registered.", id))
		}
	}
	if b.find(initiatorID, otherID) >= 0 {
		return cupid.NewAPIError(http.StatusConflict, "You already have a relationship or proposal with this user.")
	}
	b.edges = append(b.edges, &edge{initiator: initiatorID, other: otherID, kind: kind})
	return nil
}

func (b *Backend) AcceptRelationship(_ context.Context, userID, otherID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["accept_relationship"]++

	i := b.find(userID, otherID)
	if i < 0 {
		return notRelated()
	}
	e := b.edges[i]
	if e.accepted {
		return cupid.NewAPIError(http.StatusConflict, "This relationship has already been accepted.")
	}
	if e.other != userID {
		return cupid.NewAPIError(http.StatusForbidden, "Only the recipient of a proposal can accept it.")
	}
	e.accepted = true
	return nil
}

func (b *Backend) DeleteRelationship(_ context.Context, userID, otherID int64, accepted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["delete_relationship"]++

	i := b.find(userID, otherID)
	if i < 0 {
		return notRelated()
	}
	if b.edges[i].accepted != accepted {
		return cupid.NewAPIError(http.StatusConflict, "This relationship has changed since you last saw it.")
	}
	b.edges = append(b.edges[:i], b.edges[i+1:]...)
	return nil
}

func (b *Backend) ListUsers(_ context.Context, search string, page int) (*models.UserPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["list_users"]++

	if page < 0 {
		return nil, cupid.NewAPIError(http.StatusBadRequest, "Page must not be negative.")
	}

	needle := strings.ToLower(search)
	var matched []models.User
	for _, u := range b.users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.Name), needle) ||
			strings.Contains(strings.ToLower(u.Discriminator), needle) {
			matched = append(matched, *u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	size := b.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	result := &models.UserPage{Page: page, TotalPages: (len(matched) + size - 1) / size}
	start := page * size
	if start < len(matched) {
		end := start + size
		if end > len(matched) {
			end = len(matched)
		}
		result.Items = matched[start:end]
	}
	return result, nil
}

func (b *Backend) GetGraph(_ context.Context) (*models.Graph, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["get_graph"]++

	graph := &models.Graph{}
	seen := make(map[int64]bool)
	for _, e := range b.edges {
		if !e.accepted {
			continue
		}
		graph.Relationships = append(graph.Relationships, b.relationship(e))
		seen[e.initiator] = true
		seen[e.other] = true
	}
	for id := range seen {
		graph.Users = append(graph.Users, *b.users[id])
	}
	sort.Slice(graph.Users, func(i, j int) bool { return graph.Users[i].ID < graph.Users[j].ID })
	return graph, nil
}

func (b *Backend) find(a, c int64) int {
	for i, e := range b.edges {
		if e.joins(a, c) {
			return i
		}
	}
	return -1
}

func (b *Backend) relationship(e *edge) models.Relationship {
	rel := models.Relationship{Kind: e.kind, Accepted: e.accepted}
	if u, ok := b.users[e.initiator]; ok {
		rel.Initiator = *u
	} else {
		rel.Initiator = models.User{ID: e.initiator, Gender: models.NonBinary}
	}
	if u, ok := b.users[e.other]; ok {
		rel.Other = *u
	} else {
		rel.Other = models.User{ID: e.other, Gender: models.NonBinary}
	}
	return rel
}

func notRelated() *cupid.APIError {
	return cupid.NewAPIError(http.StatusNotFound, "You don't have a relationship or proposal with this user.")
}
