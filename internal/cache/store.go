package cache

import (
	"context"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/logging"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/storage"
)

// InvalidatingStore drops the cached summary after every successful guest mutation.
// Cache errors are logged and never fail the write.
type InvalidatingStore struct {
	storage.Store
	cache SummaryCache
	log   zerolog.Logger
}

func NewInvalidatingStore(store storage.Store, cache SummaryCache, log zerolog.Logger) *InvalidatingStore {
	return &InvalidatingStore{
		Store: store,
		cache: cache,
		log:   logging.Component(log, "SummaryCache"),
	}
}

func (s *InvalidatingStore) UpdateRSVP(ctx context.Context, phone string, status models.RSVPStatus, attendees int) error {
	return s.after(ctx, s.Store.UpdateRSVP(ctx, phone, status, attendees))
}

func (s *InvalidatingStore) SetAwaitingCount(ctx context.Context, phone string, awaiting bool) error {
	return s.after(ctx, s.Store.SetAwaitingCount(ctx, phone, awaiting))
}

func (s *InvalidatingStore) ResetDialogue(ctx context.Context, phone string) error {
	return s.after(ctx, s.Store.ResetDialogue(ctx, phone))
}

func (s *InvalidatingStore) UpsertGuest(ctx context.Context, guest models.Guest) error {
	return s.after(ctx, s.Store.UpsertGuest(ctx, guest))
}

func (s *InvalidatingStore) after(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if cerr := s.cache.Invalidate(ctx); cerr != nil {
		s.log.Warn().Err(cerr).Msg("Failed to invalidate summary cache")
	}
	return nil
}
