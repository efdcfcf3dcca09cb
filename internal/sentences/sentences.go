// Package sentences turns users and relationships into the text the bot
// sends. Functions return Telegram MarkdownV2 unless documented as plain.
package sentences

import (
	"strconv"
	"strings"

	"github.com/xaenox/cupid-bot/internal/models"
	"github.com/xaenox/cupid-bot/internal/vocabulary"
)

// NotToYou is the plain text refusal shown to anyone pressing a proposal
// control they may not use, including after the proposal was resolved.
const NotToYou = "This proposal is not to you."

// GenderLine shows a user's gender with its emoji.
func GenderLine(u models.User) string {
	g := vocabulary.ResolveOrDefault(u.Gender)
	return Escape(g.Emoji) + " " + Bold(vocabulary.Capitalise(g.Name))
}

// RelationshipTo is a bullet describing what u is to the other person in
// rel, using u's own gender.
func RelationshipTo(u models.User, rel models.Relationship) string {
	g := vocabulary.ResolveOrDefault(u.Gender)
	var noun string
	switch {
	case rel.Kind == models.Adoption && rel.IsInitiator(u.ID):
		noun = g.Parent
	case rel.Kind == models.Adoption:
		noun = g.Child
	default:
		noun = g.Partner
	}
	opposite := rel.Opposite(u.ID)
	return Escape(" - ") + Bold(vocabulary.Capitalise(noun)) + " of " + Bold(opposite.Name)
}

// RelationshipAnnouncement announces an accepted relationship.
func RelationshipAnnouncement(rel models.Relationship) string {
	verb := "is married to"
	if rel.Kind == models.Adoption {
		verb = "has adopted"
	}
	return Mention(rel.Initiator) + " " + verb + " " + Mention(rel.Other) + Escape("!!!")
}

// ProposalAnnouncement announces a new proposal. Plain text.
func ProposalAnnouncement(rel models.Relationship) string {
	action := "proposes to"
	if rel.Kind == models.Adoption {
		action = "wants to adopt"
	}
	return rel.Initiator.Name + " " + action + " " + rel.Other.Name + "! \U0001F970"
}

// ProposalMessage is the body of the message carrying a proposal's controls.
// It pings the recipient and says how to answer without the buttons.
func ProposalMessage(rel models.Relationship) string {
	ref := strconv.FormatInt(rel.Initiator.ID, 10)
	if rel.Initiator.Discriminator != "" {
		ref = "@" + rel.Initiator.Discriminator
	}
	hint := "If the buttons stop working, use /accept " + ref + " or /reject " + ref + "."
	return Mention(rel.Other) + "\n" + Bold(ProposalAnnouncement(rel)) + "\n\n" + Italic(hint)
}

// RejectionConfirmation confirms to the recipient that they rejected a
// proposal. Plain text.
func RejectionConfirmation(rel models.Relationship) string {
	return "You rejected " + rel.Initiator.Name + "'s " + string(rel.Kind) + " proposal."
}

// RejectionAnnouncement tells the chat that a proposal was turned down.
func RejectionAnnouncement(rel models.Relationship) string {
	return Mention(rel.Other) + " rejected " + Mention(rel.Initiator) + Escape("'s "+string(rel.Kind)+" proposal.")
}

// DeleteConfirmation confirms to callerID that rel was deleted. The wording
// depends on the kind, whether it had been accepted, and which side the
// caller is on.
func DeleteConfirmation(callerID int64, rel models.Relationship) string {
	if rel.Accepted {
		return acceptedDeleteConfirmation(callerID, rel)
	}
	return proposalDeleteConfirmation(callerID, rel)
}

func proposalDeleteConfirmation(callerID int64, rel models.Relationship) string {
	kind := "marrying"
	if rel.Kind == models.Adoption {
		kind = "adopting"
	}
	if rel.IsInitiator(callerID) {
		return "You cancelled your proposal of " + kind + " " + Mention(rel.Other) + Escape(".")
	}
	return "You rejected " + Mention(rel.Initiator) + "'s proposal of " + kind + " you" + Escape(".")
}

func acceptedDeleteConfirmation(callerID int64, rel models.Relationship) string {
	opposite := rel.Opposite(callerID)
	g := vocabulary.ResolveOrDefault(opposite.Gender)

	var action, noun string
	switch {
	case rel.Kind == models.Marriage:
		action, noun = "divorced", g.Partner
	case rel.IsInitiator(callerID):
		action, noun = "disowned", g.Child
	default:
		action, noun = "left", g.Parent
	}
	return "You " + action + " your " + noun + ", " + Mention(opposite) + Escape(".")
}

// IncomingProposals lists the proposals other people have sent p.
func IncomingProposals(p models.Profile) string {
	if len(p.IncomingProposals) == 0 {
		return Italic("No proposals.")
	}
	lines := make([]string, 0, len(p.IncomingProposals))
	for _, proposal := range p.IncomingProposals {
		action := "Marriage with"
		if proposal.Kind == models.Adoption {
			action = "Adoption by"
		}
		lines = append(lines, proposalLine(action, proposal.Initiator))
	}
	return strings.Join(lines, "\n")
}

// OutgoingProposals lists the proposals p has sent.
func OutgoingProposals(p models.Profile) string {
	if len(p.OutgoingProposals) == 0 {
		return Italic("No proposals.")
	}
	lines := make([]string, 0, len(p.OutgoingProposals))
	for _, proposal := range p.OutgoingProposals {
		action := "Marriage with"
		if proposal.Kind == models.Adoption {
			action = "Adoption of"
		}
		lines = append(lines, proposalLine(action, proposal.Other))
	}
	return strings.Join(lines, "\n")
}

func proposalLine(action string, other models.User) string {
	return action + " " + Mention(other) + " " + Escape("("+other.Name+").")
}

// UserLine is one entry in the list of people.
func UserLine(u models.User) string {
	line := Escape(vocabulary.ResolveOrDefault(u.Gender).Emoji) + " " + Mention(u)
	if u.Discriminator != "" {
		line += " " + Escape("(@"+u.Discriminator+")")
	}
	return line
}
