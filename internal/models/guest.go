package models

import "time"

// Guest represents a wedding guest
type Guest struct {
	PhoneNumber   string     `json:"phone"`
	Name          string     `json:"guestname"`
	Category      string     `json:"category"`
	RSVPStatus    RSVPStatus `json:"status"`
	Attendees     int        `json:"attendees"`
	InvitedCount  int        `json:"invited"`
	AwaitingCount bool       `json:"waiting_for_people"`
	Responded     bool       `json:"responded"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

// RSVPStatus represents the attendance confirmation status
type RSVPStatus string

const (
	RSVPYes          RSVPStatus = "yes"
	RSVPNo           RSVPStatus = "no"
	RSVPMaybe        RSVPStatus = "maybe"
	RSVPNotResponded RSVPStatus = "not_responded"
)

// Statuses lists every status in dashboard order.
var Statuses = []RSVPStatus{RSVPYes, RSVPNo, RSVPMaybe, RSVPNotResponded}

// Valid reports whether s is one of the known statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPYes, RSVPNo, RSVPMaybe, RSVPNotResponded:
		return true
	}
	return false
}

// Pending reports whether a guest in this status should still receive invitations.
func (s RSVPStatus) Pending() bool {
	return s == RSVPNotResponded || s == RSVPMaybe || s == ""
}

// UndeliveredMessage records an invitation that could not be delivered.
type UndeliveredMessage struct {
	PhoneNumber string    `json:"phone"`
	Name        string    `json:"guestname"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatusGroup is one bucket of the dashboard summary.
type StatusGroup struct {
	Guests []Guest `json:"guests"`
	Total  int     `json:"total"`
}

// RSVPSummary groups guests by status, keyed by the status string.
type RSVPSummary map[RSVPStatus]*StatusGroup

// Summarize groups guests by status. Unknown statuses fold into not_responded.
// Totals count confirmed attendees for "yes" and the invited party size otherwise.
func Summarize(guests []Guest) RSVPSummary {
	summary := make(RSVPSummary, len(Statuses))
	for _, s := range Statuses {
		summary[s] = &StatusGroup{Guests: []Guest{}}
	}

	for _, g := range guests {
		status := g.RSVPStatus
		if !status.Valid() {
			status = RSVPNotResponded
		}
		group := summary[status]
		group.Guests = append(group.Guests, g)
		if status == RSVPYes {
			group.Total += g.Attendees
		} else {
			group.Total += g.InvitedCount
		}
	}
	return summary
}
