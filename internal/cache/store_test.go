package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/storage"
)

type fakeCache struct {
	summary       models.RSVPSummary
	invalidations int
	failure       error
}

func (f *fakeCache) Get(ctx context.Context) (models.RSVPSummary, bool, error) {
	return f.summary, f.summary != nil, nil
}

func (f *fakeCache) Set(ctx context.Context, summary models.RSVPSummary) error {
	f.summary = summary
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context) error {
	f.invalidations++
	f.summary = nil
	return f.failure
}

func newStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.NewFileStore(filepath.Join(t.TempDir(), "guests.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestInvalidatingStoreDropsSummaryOnWrites(t *testing.T) {
	ctx := context.Background()
	c := &fakeCache{}
	s := NewInvalidatingStore(newStore(t), c, zerolog.Nop())

	writes := []func() error{
		func() error { return s.UpsertGuest(ctx, models.Guest{PhoneNumber: "972500000001", Name: "Dana"}) },
		func() error { return s.SetAwaitingCount(ctx, "972500000001", true) },
		func() error { return s.UpdateRSVP(ctx, "972500000001", models.RSVPYes, 2) },
		func() error { return s.ResetDialogue(ctx, "972500000001") },
	}
	for i, write := range writes {
		c.summary = models.Summarize(nil)
		if err := write(); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if c.summary != nil {
			t.Fatalf("write %d left the summary cached", i)
		}
	}
	if c.invalidations != len(writes) {
		t.Fatalf("invalidations: got=%d want=%d", c.invalidations, len(writes))
	}
}

func TestInvalidatingStoreKeepsCacheOnFailedWrite(t *testing.T) {
	c := &fakeCache{}
	s := NewInvalidatingStore(newStore(t), c, zerolog.Nop())

	err := s.UpdateRSVP(context.Background(), "972500000001", models.RSVPYes, 0)
	if !errors.Is(err, storage.ErrInvalidAttendees) {
		t.Fatalf("expected ErrInvalidAttendees, got %v", err)
	}
	if c.invalidations != 0 {
		t.Fatalf("invalidated on failed write")
	}
}

func TestInvalidatingStoreIgnoresCacheErrors(t *testing.T) {
	c := &fakeCache{failure: errors.New("redis down")}
	s := NewInvalidatingStore(newStore(t), c, zerolog.Nop())

	if err := s.UpdateRSVP(context.Background(), "972500000001", models.RSVPNo, 0); err != nil {
		t.Fatalf("UpdateRSVP: %v", err)
	}
}
