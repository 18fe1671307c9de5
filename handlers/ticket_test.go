package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"campustix-backend/ticket"
)

type nullLinker struct{}

func (nullLinker) AttachToken(ctx context.Context, bookingID, token string) error {
	return nil
}

type downStore struct{}

func (downStore) Get(ctx context.Context, token string) (*ticket.Record, error) {
	return nil, &ticket.StoreUnavailableError{Op: "get", Err: errors.New("connection refused")}
}

func (downStore) SetWithExpiry(ctx context.Context, token string, rec *ticket.Record, ttl time.Duration) error {
	return &ticket.StoreUnavailableError{Op: "set", Err: errors.New("connection refused")}
}

func (downStore) RemainingTTL(ctx context.Context, token string) (time.Duration, error) {
	return 0, &ticket.StoreUnavailableError{Op: "ttl", Err: errors.New("connection refused")}
}

func (downStore) MarkScanned(ctx context.Context, token, scannedBy string, at time.Time) (*ticket.Record, bool, error) {
	return nil, false, &ticket.StoreUnavailableError{Op: "mark_scanned", Err: errors.New("connection refused")}
}

func (downStore) Delete(ctx context.Context, token string) error {
	return &ticket.StoreUnavailableError{Op: "delete", Err: errors.New("connection refused")}
}

func newTicketRouter(store ticket.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewTicketHandler(ticket.NewVerifier(store))

	router := gin.New()
	router.POST("/api/v1/tickets/verify", handler.VerifyTicket)
	router.GET("/api/v1/tickets/:token", handler.TicketStatus)
	return router
}

func issueTestToken(t *testing.T, store ticket.Store) string {
	t.Helper()
	issuer := ticket.NewIssuer(store, nullLinker{})
	token, err := issuer.Issue(context.Background(), ticket.IssueInput{
		BookingID:   "booking-1",
		UserID:      "user-1",
		UserEmail:   "ada@campus.edu",
		UserName:    "Ada Lovelace",
		EventID:     42,
		EventName:   "Spring Hackathon",
		EventDate:   time.Date(2026, 4, 18, 9, 0, 0, 0, time.UTC),
		EventVenue:  "Main Auditorium",
		BookingDate: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return token
}

func postVerify(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyEndpointAdmitsThenFlagsDuplicate(t *testing.T) {
	store := ticket.NewMemoryStore()
	router := newTicketRouter(store)
	token := issueTestToken(t, store)

	w := postVerify(t, router, `{"token":"`+token+`","scanned_by":"gate-a"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var first ticket.Result
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !first.Admitted || first.AlreadyScanned {
		t.Fatalf("expected fresh admission, got %+v", first)
	}
	if first.Record.EventName != "Spring Hackathon" {
		t.Fatalf("expected event snapshot in response, got %+v", first.Record)
	}

	w = postVerify(t, router, `{"token":"`+token+`","scanned_by":"gate-b"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", w.Code)
	}

	var second ticket.Result
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !second.Admitted || !second.AlreadyScanned {
		t.Fatalf("expected duplicate flag, got %+v", second)
	}
	if *second.Record.ScannedBy != "gate-a" {
		t.Fatalf("duplicate response must carry original operator, got %s", *second.Record.ScannedBy)
	}
}

func TestVerifyEndpointRejectsUnknownToken(t *testing.T) {
	router := newTicketRouter(ticket.NewMemoryStore())

	w := postVerify(t, router, `{"token":"deadbeefdeadbeefdeadbeefdeadbeef"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var result ticket.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if result.Admitted || result.Rejected != ticket.RejectedInvalid {
		t.Fatalf("expected rejection, got %+v", result)
	}
}

func TestVerifyEndpointRejectsMissingToken(t *testing.T) {
	router := newTicketRouter(ticket.NewMemoryStore())

	for _, body := range []string{`{}`, `{"token":"   "}`, `not json`} {
		w := postVerify(t, router, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, w.Code)
		}
	}
}

func TestVerifyEndpointFailsClosedWhenStoreDown(t *testing.T) {
	router := newTicketRouter(downStore{})

	w := postVerify(t, router, `{"token":"sometoken"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	// Venue staff must see the same rejected vocabulary, never a raw error.
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body["admitted"] != false || body["rejected"] != ticket.RejectedInvalid {
		t.Fatalf("expected fail-closed rejection shape, got %v", body)
	}
}

func TestStatusEndpointReadsWithoutScanning(t *testing.T) {
	store := ticket.NewMemoryStore()
	router := newTicketRouter(store)
	token := issueTestToken(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/"+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Admitted bool `json:"admitted"`
		Scanned  bool `json:"scanned"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !body.Admitted || body.Scanned {
		t.Fatalf("expected unscanned status, got %+v", body)
	}

	// Polling the status endpoint must not consume the ticket.
	w = postVerify(t, router, `{"token":"`+token+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result ticket.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if result.AlreadyScanned {
		t.Fatalf("status polling consumed the ticket")
	}
}

func TestStatusEndpointUnknownToken(t *testing.T) {
	router := newTicketRouter(ticket.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
