package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"wedding-rsvp/internal/models"
)

// Runs against a real Redis when TEST_REDIS_ADDR is set.
func TestRedisSummaryCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	c := NewSummaryCache(client, time.Minute)
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, err := c.Get(ctx); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	want := models.Summarize([]models.Guest{{PhoneNumber: "972500000001", RSVPStatus: models.RSVPYes, Attendees: 2}})
	if err := c.Set(ctx, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got[models.RSVPYes].Total != 2 || len(got[models.RSVPYes].Guests) != 1 {
		t.Fatalf("yes group: %+v", got[models.RSVPYes])
	}
}

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "", 0); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
