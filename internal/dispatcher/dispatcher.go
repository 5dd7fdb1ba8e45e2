// Package dispatcher broadcasts the invitation to a guest list, one recipient at a time.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/logging"
	"wedding-rsvp/internal/messages"
	"wedding-rsvp/internal/phone"
)

// MinDelay is the shortest pause between two sends.
const MinDelay = 3 * time.Second

// ErrNotRegistered is returned when the transport reports the recipient has no chat account.
var ErrNotRegistered = errors.New("recipient is not registered")

// Sender delivers the invitation text to one phone.
type Sender interface {
	SendInvitation(ctx context.Context, phone, text string) error
}

// RegistrationChecker is implemented by transports that can tell whether a phone has an account.
type RegistrationChecker interface {
	IsRegistered(ctx context.Context, phone string) (bool, error)
}

// Store is the subset of the guest store the dispatcher needs.
type Store interface {
	GetGuestName(ctx context.Context, phone string) (string, error)
	GetCategory(ctx context.Context, phone string) (string, error)
	GetPendingGuests(ctx context.Context) ([]string, error)
	LogUndelivered(ctx context.Context, phone, name, category string) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config configures a Dispatcher.
type Config struct {
	Delay       time.Duration
	CountryCode string
	// Sleep defaults to a timer based wait.
	Sleep SleepFunc
	// OnDelivered runs after each successful send.
	OnDelivered func(ctx context.Context, phone string)
}

// Report summarizes one run.
type Report struct {
	Attempted   int
	Delivered   []string
	Undelivered []string
}

// Dispatcher sends invitations one at a time. Concurrent runs queue behind
// each other so at most one send is in flight.
type Dispatcher struct {
	runMu sync.Mutex

	store       Store
	sender      Sender
	templates   *messages.Templates
	delay       time.Duration
	countryCode string
	sleep       SleepFunc
	onDelivered func(ctx context.Context, phone string)
	log         zerolog.Logger

	// lastSend is guarded by runMu.
	lastSend time.Time
}

// New creates a dispatcher. Delays below MinDelay are raised to MinDelay.
func New(store Store, sender Sender, templates *messages.Templates, cfg Config, log zerolog.Logger) *Dispatcher {
	if cfg.Delay < MinDelay {
		cfg.Delay = MinDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Dispatcher{
		store:       store,
		sender:      sender,
		templates:   templates,
		delay:       cfg.Delay,
		countryCode: cfg.CountryCode,
		sleep:       cfg.Sleep,
		onDelivered: cfg.OnDelivered,
		log:         logging.Component(log, "Dispatcher"),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunPending sends the invitation to every guest that has not answered yet.
func (d *Dispatcher) RunPending(ctx context.Context) (Report, error) {
	phones, err := d.store.GetPendingGuests(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load pending guests: %w", err)
	}
	d.log.Info().Int("guests", len(phones)).Msg("Dispatching invitations to pending guests")
	return d.Run(ctx, phones), nil
}

// Run sends the invitation to each phone in order, pausing between sends.
// A failed recipient is logged as undelivered and the batch continues.
// Cancelling ctx stops the run between recipients.
func (d *Dispatcher) Run(ctx context.Context, phones []string) Report {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	var report Report

	for i, raw := range phones {
		if err := d.wait(ctx, i); err != nil {
			d.log.Warn().Err(err).Int("remaining", len(phones)-i).Msg("Dispatch interrupted")
			break
		}

		p := phone.Normalize(raw, d.countryCode)
		if p == "" {
			d.log.Warn().Str("raw", raw).Msg("Skipping recipient without a phone number")
			continue
		}
		report.Attempted++

		err := d.deliver(ctx, p)
		d.lastSend = time.Now()
		if err != nil {
			report.Undelivered = append(report.Undelivered, p)
			continue
		}
		report.Delivered = append(report.Delivered, p)
		if d.onDelivered != nil {
			d.onDelivered(ctx, p)
		}
	}

	d.log.Info().
		Int("attempted", report.Attempted).
		Int("delivered", len(report.Delivered)).
		Int("undelivered", len(report.Undelivered)).
		Msg("Dispatch finished")
	return report
}

// wait pauses before the i-th recipient. The first recipient of a run only
// waits for what is left of the delay since the previous run's last send.
func (d *Dispatcher) wait(ctx context.Context, i int) error {
	if i > 0 {
		return d.sleep(ctx, d.delay)
	}
	if d.lastSend.IsZero() {
		return nil
	}
	if left := d.delay - time.Since(d.lastSend); left > 0 {
		return d.sleep(ctx, left)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, p string) error {
	log := d.log.With().Str("phone", p).Logger()

	name, err := d.store.GetGuestName(ctx, p)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load guest name")
	}
	category, err := d.store.GetCategory(ctx, p)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load guest category")
	}

	sendErr := d.send(ctx, p, name)
	if sendErr == nil {
		log.Info().Msg("Sent RSVP invitation")
		return nil
	}

	log.Error().Err(sendErr).Msg("Failed to send invitation")
	if err := d.store.LogUndelivered(ctx, p, name, category); err != nil {
		log.Error().Err(err).Msg("Failed to log undelivered message")
	}
	return sendErr
}

func (d *Dispatcher) send(ctx context.Context, p, name string) error {
	if checker, ok := d.sender.(RegistrationChecker); ok {
		registered, err := checker.IsRegistered(ctx, p)
		if err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if !registered {
			return ErrNotRegistered
		}
	}
	return d.sender.SendInvitation(ctx, p, d.templates.Invite(name))
}
