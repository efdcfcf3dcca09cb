package models

import "fmt"

// Gender is the gender recorded on a user's profile.
type Gender string

const (
	NonBinary Gender = "non_binary"
	Female    Gender = "female"
	Male      Gender = "male"
)

func (g Gender) Valid() bool {
	switch g {
	case NonBinary, Female, Male:
		return true
	}
	return false
}

// Kind is the kind of a relationship.
type Kind string

const (
	Marriage Kind = "marriage"
	Adoption Kind = "adoption"
)

func (k Kind) Valid() bool {
	return k == Marriage || k == Adoption
}

// User represents a user record held by the Cupid service
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
	AvatarURL     string `json:"avatar_url"`
	Gender        Gender `json:"gender"`
}

// Relationship is an edge between two users. For adoptions the initiator is
// the parent and the other user is the child.
type Relationship struct {
	Initiator User `json:"initiator"`
	Other     User `json:"other"`
	Kind      Kind `json:"kind"`
	Accepted  bool `json:"accepted"`
}

// Key identifies a relationship independent of its state.
type Key struct {
	InitiatorID int64 `json:"initiator_id"`
	OtherID     int64 `json:"other_id"`
	Kind        Kind  `json:"kind"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d->%d", k.Kind, k.InitiatorID, k.OtherID)
}

func (r *Relationship) Key() Key {
	return Key{InitiatorID: r.Initiator.ID, OtherID: r.Other.ID, Kind: r.Kind}
}

// IsInitiator reports whether userID started the relationship.
func (r *Relationship) IsInitiator(userID int64) bool {
	return r.Initiator.ID == userID
}

// Involves reports whether userID is either side of the relationship.
func (r *Relationship) Involves(userID int64) bool {
	return r.Initiator.ID == userID || r.Other.ID == userID
}

// Opposite returns the user on the other side from userID.
func (r *Relationship) Opposite(userID int64) User {
	if r.Initiator.ID == userID {
		return r.Other
	}
	return r.Initiator
}
