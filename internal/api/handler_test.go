package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGuests struct {
	guests      []models.Guest
	undelivered []models.UndeliveredMessage
	err         error
	listCalls   int
}

func (f *fakeGuests) ListGuests(ctx context.Context) ([]models.Guest, error) {
	f.listCalls++
	return f.guests, f.err
}

func (f *fakeGuests) ListUndelivered(ctx context.Context) ([]models.UndeliveredMessage, error) {
	return f.undelivered, f.err
}

type memoryCache struct {
	summary models.RSVPSummary
}

func (m *memoryCache) Get(ctx context.Context) (models.RSVPSummary, bool, error) {
	return m.summary, m.summary != nil, nil
}

func (m *memoryCache) Set(ctx context.Context, summary models.RSVPSummary) error {
	m.summary = summary
	return nil
}

func (m *memoryCache) Invalidate(ctx context.Context) error {
	m.summary = nil
	return nil
}

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(h, []string{"*"}, zerolog.Nop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRSVPSummary(t *testing.T) {
	guests := &fakeGuests{guests: []models.Guest{
		{PhoneNumber: "972500000001", RSVPStatus: models.RSVPYes, Attendees: 3, InvitedCount: 2},
		{PhoneNumber: "972500000002", RSVPStatus: models.RSVPNo, InvitedCount: 2},
		{PhoneNumber: "972500000003", RSVPStatus: "weird", InvitedCount: 4},
		{PhoneNumber: "972500000004", RSVPStatus: models.RSVPNotResponded, InvitedCount: 1},
	}}
	rec := serve(t, NewHandler(guests, nil, zerolog.Nop()), "/rsvp")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var body map[string]struct {
		Guests []models.Guest `json:"guests"`
		Total  int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["yes"].Total != 3 || len(body["yes"].Guests) != 1 {
		t.Fatalf("yes: %+v", body["yes"])
	}
	if body["not_responded"].Total != 5 || len(body["not_responded"].Guests) != 2 {
		t.Fatalf("not_responded: %+v", body["not_responded"])
	}
	if _, ok := body["maybe"]; !ok {
		t.Fatalf("maybe group missing: %s", rec.Body.String())
	}
}

func TestRSVPSummaryEmptyIsNotFound(t *testing.T) {
	rec := serve(t, NewHandler(&fakeGuests{}, nil, zerolog.Nop()), "/rsvp")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got=%d", rec.Code)
	}
}

func TestRSVPSummaryStoreError(t *testing.T) {
	rec := serve(t, NewHandler(&fakeGuests{err: errors.New("db down")}, nil, zerolog.Nop()), "/rsvp")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got=%d", rec.Code)
	}
}

func TestRSVPSummaryUsesCache(t *testing.T) {
	guests := &fakeGuests{guests: []models.Guest{{PhoneNumber: "972500000001", RSVPStatus: models.RSVPNo}}}
	c := &memoryCache{}
	h := NewHandler(guests, c, zerolog.Nop())

	serve(t, h, "/rsvp")
	serve(t, h, "/rsvp")
	if guests.listCalls != 1 {
		t.Fatalf("store reads: got=%d want=1", guests.listCalls)
	}

	c.Invalidate(context.Background())
	serve(t, h, "/rsvp")
	if guests.listCalls != 2 {
		t.Fatalf("store reads after invalidate: got=%d want=2", guests.listCalls)
	}
}

func TestUndeliveredList(t *testing.T) {
	rec := serve(t, NewHandler(&fakeGuests{}, nil, zerolog.Nop()), "/messagesStatus")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("empty: code=%d body=%s", rec.Code, rec.Body.String())
	}

	guests := &fakeGuests{undelivered: []models.UndeliveredMessage{{PhoneNumber: "972500000001", Name: "Dana", Category: "family"}}}
	rec = serve(t, NewHandler(guests, nil, zerolog.Nop()), "/messagesStatus")
	var body []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 || body[0]["guestname"] != "Dana" || body[0]["phone"] != "972500000001" {
		t.Fatalf("body: %v", body)
	}
}

func TestCORSHeaders(t *testing.T) {
	router := NewRouter(NewHandler(&fakeGuests{}, nil, zerolog.Nop()), []string{"*"}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin: got=%q", got)
	}
}
