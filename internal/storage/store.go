package storage

import (
	"context"
	"errors"

	"wedding-rsvp/internal/models"
)

var (
	ErrGuestNotFound    = errors.New("guest not found")
	ErrInvalidPhone     = errors.New("invalid phone number")
	ErrInvalidAttendees = errors.New("invalid attendee count")
	ErrInvalidStatus    = errors.New("invalid rsvp status")
)

// Store is the guest persistence contract shared by the bot, the dispatcher,
// the importer and the dashboard. Phone numbers are expected to be normalized.
type Store interface {
	GetGuest(ctx context.Context, phone string) (*models.Guest, error)
	// GetGuestName returns "" when the guest is unknown.
	GetGuestName(ctx context.Context, phone string) (string, error)
	// GetCategory returns "" when the guest is unknown.
	GetCategory(ctx context.Context, phone string) (string, error)
	// GetPendingGuests returns phones of guests still expected to answer, ordered by phone.
	GetPendingGuests(ctx context.Context) ([]string, error)
	ListGuests(ctx context.Context) ([]models.Guest, error)

	// UpdateRSVP records a final answer. It inserts the guest when absent,
	// forces attendees to 0 unless status is yes, clears the awaiting flag
	// and sets the responded lock.
	UpdateRSVP(ctx context.Context, phone string, status models.RSVPStatus, attendees int) error
	SetAwaitingCount(ctx context.Context, phone string, awaiting bool) error
	// ResetDialogue clears both the awaiting flag and the responded lock.
	ResetDialogue(ctx context.Context, phone string) error

	// UpsertGuest is used by the importer: match by phone, else by name
	// (updating the phone), else insert as not_responded.
	UpsertGuest(ctx context.Context, guest models.Guest) error

	// LogUndelivered is first-write-wins per phone.
	LogUndelivered(ctx context.Context, phone, name, category string) error
	ListUndelivered(ctx context.Context) ([]models.UndeliveredMessage, error)

	Close() error
}

// validateRSVP applies the attendee invariant and returns the attendee count to persist.
func validateRSVP(phone string, status models.RSVPStatus, attendees int) (int, error) {
	if phone == "" {
		return 0, ErrInvalidPhone
	}
	if !status.Valid() {
		return 0, ErrInvalidStatus
	}
	if status != models.RSVPYes {
		return 0, nil
	}
	if attendees < 1 {
		return 0, ErrInvalidAttendees
	}
	return attendees, nil
}
