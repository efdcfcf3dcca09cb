package models

// Profile is a user together with every relationship they are part of
type Profile struct {
	User
	Relationships     []Relationship `json:"relationships"`
	IncomingProposals []Relationship `json:"incoming_proposals"`
	OutgoingProposals []Relationship `json:"outgoing_proposals"`
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items      []User `json:"items"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
}

// Graph is every user and accepted relationship known to the service.
type Graph struct {
	Users         []User         `json:"users"`
	Relationships []Relationship `json:"relationships"`
}
