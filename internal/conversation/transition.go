package conversation

import (
	"wedding-rsvp/internal/classifier"
	"wedding-rsvp/internal/models"
)

// State is the dialogue position of one guest.
type State int

const (
	Idle State = iota
	AwaitingCount
	Responded
)

func (s State) String() string {
	switch s {
	case AwaitingCount:
		return "awaiting_count"
	case Responded:
		return "responded"
	default:
		return "idle"
	}
}

// ReplyKind selects the outbound text for a transition.
type ReplyKind int

const (
	ReplyInvite ReplyKind = iota
	ReplyAlreadyResponded
	ReplyAskCount
	ReplyDeclined
	ReplyMaybe
	ReplyMenu
	ReplyConfirmed
	ReplyInvalidRange
	ReplyNotANumber
	ReplySaveFailed
)

// MutationKind is the store write a transition requires.
type MutationKind int

const (
	MutationNone MutationKind = iota
	MutationSetAwaiting
	MutationRecordRSVP
	MutationResetDialogue
)

// Transition is the outcome of applying one intent to one state.
type Transition struct {
	Next      State
	Reply     ReplyKind
	Mutation  MutationKind
	Status    models.RSVPStatus
	Attendees int
}

// Decide is the RSVP state machine. It has no side effects.
// In Idle, menu digits are read as Yes/No/Maybe; in AwaitingCount they are attendee counts.
func Decide(state State, intent classifier.Intent, maxAttendees int) Transition {
	if intent.Kind == classifier.Reset {
		return Transition{Next: Idle, Reply: ReplyInvite, Mutation: MutationResetDialogue}
	}

	switch state {
	case Responded:
		return Transition{Next: Responded, Reply: ReplyAlreadyResponded}

	case AwaitingCount:
		if intent.Kind != classifier.Digit {
			return Transition{Next: AwaitingCount, Reply: ReplyNotANumber}
		}
		if intent.N < 1 || intent.N > maxAttendees {
			return Transition{Next: AwaitingCount, Reply: ReplyInvalidRange}
		}
		return Transition{
			Next:      Responded,
			Reply:     ReplyConfirmed,
			Mutation:  MutationRecordRSVP,
			Status:    models.RSVPYes,
			Attendees: intent.N,
		}
	}

	switch intent.MenuChoice().Kind {
	case classifier.Yes:
		return Transition{Next: AwaitingCount, Reply: ReplyAskCount, Mutation: MutationSetAwaiting}
	case classifier.No:
		return Transition{Next: Responded, Reply: ReplyDeclined, Mutation: MutationRecordRSVP, Status: models.RSVPNo}
	case classifier.Maybe:
		return Transition{Next: Responded, Reply: ReplyMaybe, Mutation: MutationRecordRSVP, Status: models.RSVPMaybe}
	}
	return Transition{Next: Idle, Reply: ReplyMenu}
}
