package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-rsvp/internal/conversation"
	"wedding-rsvp/internal/dispatcher"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/phone"
)

// Sender delivers a reply to a guest.
type Sender interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// GuestWriter adds guests invited by hand from the CLI.
type GuestWriter interface {
	UpsertGuest(ctx context.Context, guest models.Guest) error
}

type RSVPHandler struct {
	sender      Sender
	engine      *conversation.Engine
	guests      GuestWriter
	dispatcher  *dispatcher.Dispatcher
	countryCode string
	log         zerolog.Logger
}

// NewRSVPHandler creates a new RSVP handler
func NewRSVPHandler(sender Sender, engine *conversation.Engine, guests GuestWriter, d *dispatcher.Dispatcher, countryCode string, log zerolog.Logger) *RSVPHandler {
	return &RSVPHandler{
		sender:      sender,
		engine:      engine,
		guests:      guests,
		dispatcher:  d,
		countryCode: countryCode,
		log:         log.With().Str("component", "RSVPHandler").Logger(),
	}
}

// HandleMessage runs an incoming WhatsApp message through the RSVP conversation
// and sends the reply back to the guest.
func (h *RSVPHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil || msg.Info.IsFromMe || msg.Info.IsGroup {
		return nil
	}

	text := messageText(msg)
	if text == "" {
		return nil
	}

	p := phone.Normalize(senderUser(msg.Info), h.countryCode)
	if p == "" {
		h.log.Debug().Str("sender", msg.Info.Sender.String()).Msg("Ignoring message without a phone sender")
		return nil
	}

	ctx := context.Background()
	reply := h.engine.Handle(ctx, p, text)

	if err := h.sender.SendMessage(ctx, p, reply.Text); err != nil {
		return fmt.Errorf("failed to send reply to %s: %w", p, err)
	}
	return nil
}

// SendInvitation adds or updates a guest and sends them the invitation.
func (h *RSVPHandler) SendInvitation(ctx context.Context, phoneNumber, name string) error {
	p := phone.Normalize(phoneNumber, h.countryCode)
	if p == "" {
		return fmt.Errorf("invalid phone number %q", phoneNumber)
	}

	if err := h.guests.UpsertGuest(ctx, models.Guest{PhoneNumber: p, Name: name}); err != nil {
		return fmt.Errorf("failed to add guest: %w", err)
	}

	report := h.dispatcher.Run(ctx, []string{p})
	if len(report.Delivered) == 0 {
		return fmt.Errorf("failed to send invitation to %s", p)
	}
	return nil
}

func messageText(msg *events.Message) string {
	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	return strings.TrimSpace(text)
}

// senderUser returns the phone part of the sender, preferring the phone
// number JID when WhatsApp addresses the sender by LID.
func senderUser(info types.MessageInfo) string {
	jid := info.Sender
	if jid.Server == types.HiddenUserServer && !info.SenderAlt.IsEmpty() {
		jid = info.SenderAlt
	}
	if jid.Server != types.DefaultUserServer {
		return ""
	}
	return jid.User
}
