// Package conversation drives each guest through the RSVP dialogue.
package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/classifier"
	"wedding-rsvp/internal/messages"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/storage"
)

// Store is the subset of the guest store the engine needs.
type Store interface {
	GetGuest(ctx context.Context, phone string) (*models.Guest, error)
	GetGuestName(ctx context.Context, phone string) (string, error)
	UpdateRSVP(ctx context.Context, phone string, status models.RSVPStatus, attendees int) error
	SetAwaitingCount(ctx context.Context, phone string, awaiting bool) error
	ResetDialogue(ctx context.Context, phone string) error
}

// Reply is what the engine wants sent back to the guest.
type Reply struct {
	Text   string
	State  State
	Intent classifier.Kind
	// Saved is false when the transition needed a store write that failed.
	Saved bool
}

// Engine holds the per-guest dialogue sessions. Messages of one guest are
// handled one at a time; different guests proceed independently.
type Engine struct {
	store        Store
	classifier   *classifier.Classifier
	templates    *messages.Templates
	maxAttendees int
	log          zerolog.Logger

	mu sync.Mutex
	// sessions keeps one entry per phone that ever wrote in, strangers
	// included. It is bounded by the size of the guest list in practice.
	sessions map[string]State
	// locks only holds phones with a message in progress.
	locks map[string]*phoneLock
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine creates a conversation engine.
func NewEngine(store Store, c *classifier.Classifier, templates *messages.Templates, maxAttendees int, log zerolog.Logger) *Engine {
	return &Engine{
		store:        store,
		classifier:   c,
		templates:    templates,
		maxAttendees: maxAttendees,
		log:          log.With().Str("component", "Conversation").Logger(),
		sessions:     make(map[string]State),
		locks:        make(map[string]*phoneLock),
	}
}

func (e *Engine) lock(phone string) func() {
	e.mu.Lock()
	l, ok := e.locks[phone]
	if !ok {
		l = &phoneLock{}
		e.locks[phone] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, phone)
		}
		e.mu.Unlock()
	}
}

// State returns the in-memory state of phone and whether a session exists.
func (e *Engine) State(phone string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[phone]
	return s, ok
}

func (e *Engine) setState(phone string, s State) {
	e.mu.Lock()
	e.sessions[phone] = s
	e.mu.Unlock()
}

// restore loads the dialogue state persisted for phone. Unknown guests start Idle.
func (e *Engine) restore(ctx context.Context, phone string) State {
	if s, ok := e.State(phone); ok {
		return s
	}

	g, err := e.store.GetGuest(ctx, phone)
	switch {
	case errors.Is(err, storage.ErrGuestNotFound):
		return Idle
	case err != nil:
		e.log.Warn().Err(err).Str("phone", phone).Msg("Could not restore dialogue state, starting idle")
		return Idle
	case g.AwaitingCount:
		return AwaitingCount
	case g.Responded:
		return Responded
	}
	return Idle
}

// Handle processes one inbound message from phone and returns the reply to send.
// It never fails: store errors are logged and turned into a SaveFailed reply.
func (e *Engine) Handle(ctx context.Context, phone, text string) Reply {
	unlock := e.lock(phone)
	defer unlock()

	state := e.restore(ctx, phone)

	var intent classifier.Intent
	if state == Idle {
		intent = e.classifier.Classify(ctx, text)
	} else {
		intent = e.classifier.Exact(text)
	}

	t := Decide(state, intent, e.maxAttendees)

	log := e.log.With().
		Str("phone", phone).
		Str("from", state.String()).
		Str("intent", intent.Kind.String()).
		Logger()

	if err := e.apply(ctx, phone, t); err != nil {
		if t.Mutation != MutationResetDialogue {
			log.Error().Err(err).Msg("Failed to persist transition")
			e.setState(phone, state)
			return Reply{Text: e.templates.SaveFailed(), State: state, Intent: intent.Kind}
		}
		// The in-memory reset still applies, but a restart would bring back
		// the old state, so the guest is told the reset was not saved.
		log.Warn().Err(err).Msg("Failed to persist dialogue reset")
		e.setState(phone, t.Next)
		return Reply{
			Text:   e.render(ctx, phone, t) + "\n\n" + e.templates.SaveFailed(),
			State:  t.Next,
			Intent: intent.Kind,
		}
	}

	e.setState(phone, t.Next)
	log.Info().Str("to", t.Next.String()).Msg("Transition")

	return Reply{
		Text:   e.render(ctx, phone, t),
		State:  t.Next,
		Intent: intent.Kind,
		Saved:  true,
	}
}

// Reopen drops any session for phone and clears its persisted dialogue flags,
// so a re-invited guest can answer again.
func (e *Engine) Reopen(ctx context.Context, phone string) error {
	unlock := e.lock(phone)
	defer unlock()

	e.setState(phone, Idle)
	return e.store.ResetDialogue(ctx, phone)
}

func (e *Engine) apply(ctx context.Context, phone string, t Transition) error {
	switch t.Mutation {
	case MutationSetAwaiting:
		return e.store.SetAwaitingCount(ctx, phone, true)
	case MutationRecordRSVP:
		return e.store.UpdateRSVP(ctx, phone, t.Status, t.Attendees)
	case MutationResetDialogue:
		return e.store.ResetDialogue(ctx, phone)
	}
	return nil
}

func (e *Engine) render(ctx context.Context, phone string, t Transition) string {
	switch t.Reply {
	case ReplyInvite:
		name, err := e.store.GetGuestName(ctx, phone)
		if err != nil {
			e.log.Warn().Err(err).Str("phone", phone).Msg("Could not load guest name")
		}
		return e.templates.Invite(name)
	case ReplyAlreadyResponded:
		return e.templates.AlreadyResponded()
	case ReplyAskCount:
		return e.templates.AskCount()
	case ReplyDeclined:
		return e.templates.Declined()
	case ReplyMaybe:
		return e.templates.Maybe()
	case ReplyConfirmed:
		return e.templates.Confirmed(t.Attendees)
	case ReplyInvalidRange:
		return e.templates.InvalidRange()
	case ReplyNotANumber:
		return e.templates.NotANumber()
	case ReplySaveFailed:
		return e.templates.SaveFailed()
	}
	return e.templates.Menu()
}
