package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"timeslot-service/internal/availability"
	"timeslot-service/internal/booking"
	"timeslot-service/internal/catalog"
	"timeslot-service/internal/slot"
	"timeslot-service/internal/store"
	"timeslot-service/internal/timezone"
)

const (
	adminToken = "admin-static-token"
	jwtSecret  = "test-secret"
)

// Monday 2026-06-01 09:00 in Jerusalem.
var testNow = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	slots    map[string]slot.TimeWindow
	bookings []booking.Booking
	events   map[string]string
}

func newFakeStore(slots ...slot.TimeWindow) *fakeStore {
	s := &fakeStore{slots: make(map[string]slot.TimeWindow), events: make(map[string]string)}
	for _, w := range slots {
		s.slots[w.ID] = w
	}
	return s
}

func (s *fakeStore) UpsertSlots(_ context.Context, slots []slot.TimeWindow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range slots {
		s.slots[w.ID] = w
	}
	return len(slots), nil
}

func (s *fakeStore) ListSlots(_ context.Context, from, to time.Time) ([]slot.TimeWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []slot.TimeWindow
	for _, w := range s.slots {
		if w.Start.Before(to) && w.End.After(from) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *fakeStore) GetSlot(_ context.Context, id string) (slot.TimeWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.slots[id]
	if !ok {
		return slot.TimeWindow{}, store.ErrSlotNotFound
	}
	return w, nil
}

func (s *fakeStore) CreateBooking(_ context.Context, b booking.Booking) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookings {
		if existing.SlotID == b.SlotID && existing.Start.Before(b.End) && existing.End.After(b.Start) {
			return booking.Booking{}, store.ErrSlotTaken
		}
	}
	b.ID = fmt.Sprintf("bk-%d", len(s.bookings)+1)
	b.CreatedAt = testNow
	s.bookings = append(s.bookings, b)
	return b, nil
}

func (s *fakeStore) SetCalendarEvent(_ context.Context, bookingID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[bookingID] = eventID
	return nil
}

func (s *fakeStore) ListBookings(_ context.Context, from, to time.Time, _ int) ([]booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []booking.Booking
	for _, b := range s.bookings {
		if !b.Start.Before(from) && b.Start.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeCalendar struct {
	slots    []slot.TimeWindow
	inserted []booking.Booking
	failNext bool
}

func (f *fakeCalendar) FetchSlots(context.Context, time.Time, time.Time) ([]slot.TimeWindow, error) {
	return f.slots, nil
}

func (f *fakeCalendar) InsertBooking(_ context.Context, b booking.Booking, _ slot.TimeWindow) (string, error) {
	if f.failNext {
		f.failNext = false
		return "", errors.New("calendar down")
	}
	f.inserted = append(f.inserted, b)
	return "evt-" + b.ID, nil
}

type fakePublisher struct {
	published []booking.Booking
}

func (p *fakePublisher) BookingCreated(_ context.Context, b booking.Booking) error {
	p.published = append(p.published, b)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type switchSource struct {
	set catalog.RuleSet
	err error
}

func (s *switchSource) FetchRules(context.Context) (catalog.RuleSet, error)   { return s.set, s.err }
func (s *switchSource) RefreshRules(context.Context) (catalog.RuleSet, error) { return s.set, s.err }

type harness struct {
	router   *gin.Engine
	store    *fakeStore
	calendar *fakeCalendar
	events   *fakePublisher
	source   *switchSource
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 6, day, hour, minute, 0, 0, time.UTC)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	norm, err := timezone.New("Asia/Jerusalem", timezone.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	one, two := 1, 2
	source := &switchSource{set: catalog.RuleSet{
		Rules: []catalog.ClientRule{
			{ID: &one, Type: "new_customer", DisplayName: "New customer", Durations: map[string]int{"phone": 15, "video": 30}},
			{ID: &two, Type: "returning", Durations: map[string]int{"video": 45, "phone": 0}},
		},
		MeetingTypes: []catalog.MeetingTypeDefinition{{Name: "in_person", Minutes: 60}},
	}}
	cat := catalog.New(source)
	if err := cat.Load(context.Background()); err != nil {
		t.Fatalf("load rules: %v", err)
	}

	st := newFakeStore(
		// Tuesday 10:00-11:30 local
		slot.TimeWindow{ID: "tue", Start: at(2, 7, 0), End: at(2, 8, 30), ClientType: "new_customer", MeetingTypes: "phone,video", Available: true},
		// Wednesday, returning clients only
		slot.TimeWindow{ID: "wed", Start: at(3, 7, 0), End: at(3, 8, 0), ClientType: "returning", Available: true},
		// Saturday, unavailable in the calendar but on the override day
		slot.TimeWindow{ID: "sat", Start: at(6, 7, 0), End: at(6, 8, 0), ClientType: "returning", Available: false},
		// Sunday morning, already over
		slot.TimeWindow{ID: "past", Start: time.Date(2026, 5, 31, 5, 0, 0, 0, time.UTC), End: time.Date(2026, 5, 31, 6, 0, 0, 0, time.UTC), Available: true},
	)
	cal := &fakeCalendar{}
	pub := &fakePublisher{}

	a := New(App{
		Store:    st,
		Catalog:  cat,
		Norm:     norm,
		Filter:   availability.NewFilter(norm, availability.WithAlwaysAvailableDay(availability.WeekdayPolicy(time.Saturday))),
		Events:   pub,
		Calendar: cal,
	})
	router := gin.New()
	a.Routes(router, RouterOptions{JWTSecret: jwtSecret, AdminTokens: []string{adminToken}, MaxRequestsPerMin: 1000})
	return &harness{router: router, store: st, calendar: cal, events: pub, source: source}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func slotIDs(resp SlotsResponse) map[string]int {
	ids := make(map[string]int)
	for _, d := range resp.Days {
		for _, s := range d.Slots {
			ids[s.ID]++
		}
	}
	return ids
}

func TestListSlotsForClient(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/slots?view=week&date=2026-06-01&client_type=new_customer", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SlotsResponse
	decode(t, rec, &resp)

	if resp.From != "2026-05-31" || resp.To != "2026-06-06" {
		t.Errorf("expected Sunday-Saturday week, got %s..%s", resp.From, resp.To)
	}
	ids := slotIDs(resp)
	if len(ids) != 2 || ids["tue"] != 1 || ids["sat"] != 1 {
		t.Fatalf("expected tue and sat, got %v", ids)
	}
	for _, d := range resp.Days {
		for _, s := range d.Slots {
			if s.ID == "sat" && !s.Available {
				t.Error("expected override-day slot to be reported available")
			}
		}
	}
	if h.store.slots["sat"].Available {
		t.Error("expected stored slot to stay unavailable")
	}
}

func TestListSlotsByIDAndLegacyToken(t *testing.T) {
	h := newHarness(t)
	for _, token := range []string{"1", "n"} {
		rec := h.do(t, http.MethodGet, "/api/slots?date=2026-06-01&client_type="+token, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("token %q: expected 200, got %d", token, rec.Code)
		}
		var resp SlotsResponse
		decode(t, rec, &resp)
		if ids := slotIDs(resp); ids["tue"] != 1 {
			t.Fatalf("token %q: expected tue visible, got %v", token, ids)
		}
	}
}

func TestListSlotsAdminOverrides(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, http.MethodGet, "/api/slots?date=2026-06-01&client_type=all", nil, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for public wildcard, got %d", rec.Code)
	}

	rec := h.do(t, http.MethodGet, "/api/slots?date=2026-06-01&client_type=all", nil, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SlotsResponse
	decode(t, rec, &resp)
	if ids := slotIDs(resp); len(ids) != 3 || ids["past"] != 0 {
		t.Fatalf("expected tue, wed and sat, got %v", ids)
	}

	rec = h.do(t, http.MethodGet, "/api/slots?date=2026-06-01&client_types=new_customer,returning", nil, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decode(t, rec, &resp)
	if resp.Count != 3 {
		t.Fatalf("expected 3 slots for both types, got %d", resp.Count)
	}
}

func TestListSlotsErrors(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		path string
		code int
	}{
		{"/api/slots?date=2026-06-01", http.StatusBadRequest},
		{"/api/slots?date=2026-06-01&client_type=ghost", http.StatusNotFound},
		{"/api/slots?date=June&client_type=new_customer", http.StatusBadRequest},
		{"/api/slots?view=year&client_type=new_customer", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := h.do(t, http.MethodGet, tc.path, nil, ""); rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.code, rec.Code)
		}
	}
}

func TestSlotMeetingTypes(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/slots/tue/meeting-types?client_type=new_customer", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		MeetingTypes []MeetingType `json:"meeting_types"`
	}
	decode(t, rec, &resp)
	if len(resp.MeetingTypes) != 2 || resp.MeetingTypes[0].Name != "phone" || resp.MeetingTypes[1].Minutes != 30 {
		t.Fatalf("unexpected meeting types: %+v", resp.MeetingTypes)
	}

	if rec := h.do(t, http.MethodGet, "/api/slots/wed/meeting-types?client_type=new_customer", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a slot the client cannot see, got %d", rec.Code)
	}
}

func TestSlotSegments(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/slots/tue/segments?client_type=new_customer&meeting_type=video", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SegmentsResponse
	decode(t, rec, &resp)
	if len(resp.Starts) != 3 || resp.DurationMinutes != 30 || resp.Atomic {
		t.Fatalf("expected three 30 minute segments, got %+v", resp)
	}
	if resp.Default == nil || !resp.Default.Equal(at(2, 7, 0)) {
		t.Errorf("expected default at slot start, got %v", resp.Default)
	}

	// returning has phone at 0 minutes: not offered.
	rec = h.do(t, http.MethodGet, "/api/slots/wed/segments?client_type=returning&meeting_type=phone", nil, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSlotSegmentsMatchAdmission(t *testing.T) {
	h := newHarness(t)
	if _, err := h.store.UpsertSlots(context.Background(), []slot.TimeWindow{
		// Thursday, no meeting-type restriction on the slot
		{ID: "open", Start: at(4, 7, 0), End: at(4, 9, 0), ClientType: "new_customer", Available: true},
		// Thursday, shorter than one 45 minute video meeting
		{ID: "short", Start: at(4, 10, 0), End: at(4, 10, 20), ClientType: "returning", MeetingTypes: "video", Available: true},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// in_person has a global duration but new_customer does not offer it.
	rec := h.do(t, http.MethodGet, "/api/slots/open/segments?client_type=new_customer&meeting_type=in_person", nil, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var rej map[string]string
	decode(t, rec, &rej)
	if rej["reason"] != "meeting_type_not_allowed" {
		t.Fatalf("expected meeting_type_not_allowed, got %v", rej)
	}

	rec = h.do(t, http.MethodGet, "/api/slots/short/segments?client_type=returning&meeting_type=video", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var raw map[string]json.RawMessage
	decode(t, rec, &raw)
	if _, ok := raw["default"]; ok {
		t.Fatalf("expected no default for a slot without starts, got %s", raw["default"])
	}
	if string(raw["starts"]) != "[]" {
		t.Fatalf("expected empty starts, got %s", raw["starts"])
	}
}

func bookingBody(slotID, meetingType, start, clientType string) map[string]interface{} {
	return map[string]interface{}{
		"slot_id":      slotID,
		"client_type":  clientType,
		"meeting_type": meetingType,
		"start":        start,
		"contact":      map[string]string{"name": "Dana", "email": "dana@example.com"},
	}
}

func TestCreateBooking(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/bookings", bookingBody("tue", "video", "2026-06-02T10:30:00+03:00", "new_customer"), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var b booking.Booking
	decode(t, rec, &b)
	if b.ID != "bk-1" || b.ClientType != "new_customer" || !b.End.Equal(at(2, 8, 0)) {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if b.CalendarEventID != "evt-bk-1" || h.store.events["bk-1"] != "evt-bk-1" {
		t.Errorf("expected calendar event recorded, got %q / %q", b.CalendarEventID, h.store.events["bk-1"])
	}
	if len(h.events.published) != 1 {
		t.Errorf("expected one booking event, got %d", len(h.events.published))
	}

	// Same start again: the store reports the conflict.
	rec = h.do(t, http.MethodPost, "/api/bookings", bookingBody("tue", "video", "2026-06-02T10:30:00+03:00", "new_customer"), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBookingKeepsBookingWhenCalendarFails(t *testing.T) {
	h := newHarness(t)
	h.calendar.failNext = true
	rec := h.do(t, http.MethodPost, "/api/bookings", bookingBody("tue", "phone", "2026-06-02T10:15:00+03:00", "new_customer"), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(h.store.bookings) != 1 || len(h.store.events) != 0 {
		t.Fatalf("expected stored booking without calendar event, got %d / %v", len(h.store.bookings), h.store.events)
	}
}

func TestCreateBookingRejections(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name   string
		body   map[string]interface{}
		code   int
		reason string
	}{
		{"off-grid start", bookingBody("tue", "video", "2026-06-02T10:10:00+03:00", "new_customer"), http.StatusUnprocessableEntity, "segment_not_offered"},
		{"type not on slot", bookingBody("tue", "in_person", "2026-06-02T10:00:00+03:00", "new_customer"), http.StatusUnprocessableEntity, "meeting_type_not_allowed"},
		{"slot hidden from client", bookingBody("wed", "video", "2026-06-03T10:00:00+03:00", "new_customer"), http.StatusNotFound, ""},
		{"unknown slot", bookingBody("nope", "video", "2026-06-02T10:00:00+03:00", "new_customer"), http.StatusNotFound, ""},
		{"bad start", bookingBody("tue", "video", "tomorrow", "new_customer"), http.StatusBadRequest, ""},
		{"public wildcard", bookingBody("tue", "video", "2026-06-02T10:00:00+03:00", "all"), http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/bookings", tc.body, "")
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			if tc.reason == "" {
				return
			}
			var resp map[string]string
			decode(t, rec, &resp)
			if resp["reason"] != tc.reason || resp["error"] == "" {
				t.Fatalf("expected reason %s with a message, got %v", tc.reason, resp)
			}
		})
	}

	// Admins list with the wildcard but still book for one client type.
	if rec := h.do(t, http.MethodPost, "/api/bookings", bookingBody("tue", "phone", "2026-06-02T10:00:00+03:00", "all"), adminToken); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an admin wildcard booking, got %d: %s", rec.Code, rec.Body.String())
	}

	bad := bookingBody("tue", "video", "2026-06-02T10:00:00+03:00", "new_customer")
	bad["contact"] = map[string]string{"name": "Dana", "email": "not-an-email"}
	if rec := h.do(t, http.MethodPost, "/api/bookings", bad, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}
	if len(h.store.bookings) != 0 {
		t.Fatalf("expected no bookings stored, got %d", len(h.store.bookings))
	}
}

func TestClientTypeLookup(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/client-types/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp ClientTypeResponse
	decode(t, rec, &resp)
	if resp.Type != "new_customer" || resp.DisplayName != "New customer" || len(resp.MeetingTypes) != 2 {
		t.Fatalf("unexpected client type: %+v", resp)
	}
	if rec := h.do(t, http.MethodGet, "/api/client-types/ghost", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func adminJWT(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops@example.com",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestAdminGate(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name  string
		token string
		code  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"unknown token", "guess", http.StatusForbidden},
		{"non-admin jwt", adminJWT(t, "viewer"), http.StatusForbidden},
		{"admin jwt", adminJWT(t, "admin"), http.StatusOK},
		{"static token", adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := h.do(t, http.MethodGet, "/api/admin/rules", nil, tc.token); rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestAdminRefreshRules(t *testing.T) {
	h := newHarness(t)

	h.source.set.Rules = append(h.source.set.Rules, catalog.ClientRule{Type: "vip", Durations: map[string]int{"video": 60}})
	rec := h.do(t, http.MethodPost, "/api/admin/rules/refresh", nil, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(t, http.MethodGet, "/api/client-types/vip", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected refreshed rule to resolve, got %d", rec.Code)
	}

	h.source.err = errors.New("sheet unavailable")
	if rec := h.do(t, http.MethodPost, "/api/admin/rules/refresh", nil, adminToken); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/client-types/vip", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected prior rules kept after failed refresh, got %d", rec.Code)
	}
}

func TestAdminSyncAndBookings(t *testing.T) {
	h := newHarness(t)
	h.calendar.slots = []slot.TimeWindow{
		{ID: "thu", Start: at(4, 7, 0), End: at(4, 8, 0), Available: true},
	}
	rec := h.do(t, http.MethodPost, "/api/admin/sync?from=2026-06-01&to=2026-06-07", nil, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := h.store.slots["thu"]; !ok {
		t.Fatal("expected synced slot in store")
	}

	if rec := h.do(t, http.MethodPost, "/api/admin/sync?from=2026-06-01", nil, adminToken); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for half-open range, got %d", rec.Code)
	}

	h.do(t, http.MethodPost, "/api/bookings", bookingBody("thu", "video", "2026-06-04T10:00:00+03:00", "new_customer"), "")
	rec = h.do(t, http.MethodGet, "/api/admin/bookings?from=2026-06-01&to=2026-06-07", nil, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 1 {
		t.Fatalf("expected 1 booking, got %d", resp.Count)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(t, http.MethodGet, "/healthz", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
