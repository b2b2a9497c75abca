package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/quitc/internal/ledger"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/stats"
	"github.com/theirongolddev/quitc/internal/store"

	"github.com/google/uuid"
)

var testToday = model.NewDate(2024, time.January, 15)

func newTestService(t *testing.T, cfg Config) (*Service, *ledger.Ledger, *store.JSON) {
	t.Helper()
	backend := store.NewJSON(filepath.Join(t.TempDir(), "days.json"))
	l := ledger.Open(context.Background(), backend)
	return New(cfg, l, ledger.FixedClock(testToday)), l, backend
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _, _ := newTestService(t, Config{EventsBuffer: 2})

	s.publishEvent(Event{Type: "a"})
	s.publishEvent(Event{Type: "b"})
	s.publishEvent(Event{Type: "c"})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPutDayThenStatus(t *testing.T) {
	s, l, _ := newTestService(t, Config{})
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPut, "/v1/days/2024-01-14", `{"status":"CLEAN"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d: %s", rec.Code, rec.Body)
	}
	var resp DayResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result != "applied" || resp.Status != "CLEAN" || resp.TokensLeft != 3 {
		t.Fatalf("response = %+v", resp)
	}
	if st, _ := l.Status(model.NewDate(2024, time.January, 14)); st != model.StatusClean {
		t.Fatalf("ledger status = %v", st)
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/status", "")
	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Summary.CleanDays != 1 || status.Summary.CurrentStreak != 1 {
		t.Fatalf("summary = %+v", status.Summary)
	}
	if status.Today != testToday || status.Version != 1 {
		t.Fatalf("status = %+v", status)
	}
	if _, err := uuid.Parse(status.InstanceID); err != nil {
		t.Fatalf("instance id %q: %v", status.InstanceID, err)
	}
	if other, _, _ := newTestService(t, Config{}); other.instanceID == s.instanceID {
		t.Fatal("each service should get its own instance id")
	}
}

func TestPutFourthHeartConflicts(t *testing.T) {
	s, l, _ := newTestService(t, Config{})
	h := s.Handler()

	for _, day := range []string{"01", "02", "03"} {
		rec := doRequest(t, h, http.MethodPut, "/v1/days/2024-01-"+day, `{"status":"HEART"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("heart %s = %d", day, rec.Code)
		}
	}

	rec := doRequest(t, h, http.MethodPut, "/v1/days/2024-01-04", `{"status":"HEART"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("4th heart = %d, want 409", rec.Code)
	}
	var resp DayResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Result != "rejected" || resp.TokensLeft != 0 || resp.Status != "" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := l.Status(model.NewDate(2024, time.January, 4)); ok {
		t.Fatal("rejected heart must not be stored")
	}
}

func TestPutDayValidation(t *testing.T) {
	s, _, _ := newTestService(t, Config{})
	h := s.Handler()

	cases := []struct {
		target string
		body   string
		want   int
	}{
		{"/v1/days/2024-13-01", `{"status":"CLEAN"}`, http.StatusBadRequest},
		{"/v1/days/2024-01-10", `{"status":"SMOKED"}`, http.StatusBadRequest},
		{"/v1/days/2024-01-10", `not json`, http.StatusBadRequest},
		{"/v1/days/2024-01-16", `{"status":"CLEAN"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if rec := doRequest(t, h, http.MethodPut, tc.target, tc.body); rec.Code != tc.want {
			t.Errorf("PUT %s %s = %d, want %d", tc.target, tc.body, rec.Code, tc.want)
		}
	}
}

func TestEmptyStatusAndDeleteClear(t *testing.T) {
	s, l, _ := newTestService(t, Config{})
	h := s.Handler()

	doRequest(t, h, http.MethodPut, "/v1/days/2024-01-10", `{"status":"HEART"}`)
	rec := doRequest(t, h, http.MethodPut, "/v1/days/2024-01-10", `{"status":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear via PUT = %d", rec.Code)
	}
	if len(l.Snapshot()) != 0 {
		t.Fatal("empty status should clear the day")
	}

	doRequest(t, h, http.MethodPut, "/v1/days/2024-01-10", `{"status":"CLEAN"}`)
	rec = doRequest(t, h, http.MethodDelete, "/v1/days/2024-01-10", "")
	if rec.Code != http.StatusOK || len(l.Snapshot()) != 0 {
		t.Fatalf("DELETE = %d, days = %v", rec.Code, l.Snapshot())
	}
}

func TestGetDaysFiltersByMonth(t *testing.T) {
	s, l, _ := newTestService(t, Config{})
	ctx := context.Background()
	_, _ = l.SetStatus(ctx, model.NewDate(2023, time.December, 31), model.StatusClean)
	_, _ = l.SetStatus(ctx, model.NewDate(2024, time.January, 1), model.StatusHeart)

	rec := doRequest(t, s.Handler(), http.MethodGet, "/v1/days?month=2024-01", "")
	var days map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &days); err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days["2024-01-01"] != "HEART" {
		t.Fatalf("days = %v", days)
	}

	if rec := doRequest(t, s.Handler(), http.MethodGet, "/v1/days?month=nope", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month = %d", rec.Code)
	}
}

func TestTrendEndpoint(t *testing.T) {
	s, l, _ := newTestService(t, Config{})
	_, _ = l.SetStatus(context.Background(), model.NewDate(2024, time.January, 1), model.StatusClean)

	rec := doRequest(t, s.Handler(), http.MethodGet, "/v1/trend?month=2024-01&months=3", "")
	var trend []model.MonthRate
	if err := json.Unmarshal(rec.Body.Bytes(), &trend); err != nil {
		t.Fatal(err)
	}
	if len(trend) != 3 || trend[2].Month.String() != "2024-01" || trend[2].CleanDays != 1 {
		t.Fatalf("trend = %+v", trend)
	}

	if rec := doRequest(t, s.Handler(), http.MethodGet, "/v1/trend?months=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("months=0 = %d", rec.Code)
	}
}

func TestPublishChangeCarriesSummary(t *testing.T) {
	s, l, _ := newTestService(t, Config{Policy: stats.DefaultPolicy})
	ch, cancel := l.Watch(4)
	defer cancel()

	date := model.NewDate(2024, time.January, 15)
	if _, err := l.SetStatus(context.Background(), date, model.StatusClean); err != nil {
		t.Fatal(err)
	}
	s.publishChange(<-ch)

	rec := doRequest(t, s.Handler(), http.MethodGet, "/v1/events", "")
	var events []Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	ev := events[0]
	if ev.Type != "set" || ev.Date != "2024-01-15" || ev.Status != "CLEAN" || ev.Version != 1 {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Summary.CurrentStreak != 1 {
		t.Fatalf("event summary = %+v", ev.Summary)
	}
}

func TestReminderFiresOnceWhenUnlogged(t *testing.T) {
	s, _, _ := newTestService(t, Config{Reminder: ReminderConfig{Enabled: true, Hour: 20, Location: time.UTC}})

	s.now = func() time.Time { return time.Date(2024, time.January, 15, 19, 59, 0, 0, time.UTC) }
	if s.checkReminder() {
		t.Fatal("reminder fired before its time")
	}

	s.now = func() time.Time { return time.Date(2024, time.January, 15, 20, 1, 0, 0, time.UTC) }
	if !s.checkReminder() {
		t.Fatal("reminder should fire after its time")
	}
	if s.checkReminder() {
		t.Fatal("reminder fired twice on one day")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 1 || s.events[0].Type != EventReminder || s.events[0].Message != ReminderText {
		t.Fatalf("events = %+v", s.events)
	}
}

func TestReminderSkippedWhenLogged(t *testing.T) {
	s, l, _ := newTestService(t, Config{Reminder: ReminderConfig{Enabled: true, Hour: 8, Location: time.UTC}})
	_, _ = l.SetStatus(context.Background(), testToday, model.StatusClean)

	s.now = func() time.Time { return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC) }
	if s.checkReminder() {
		t.Fatal("reminder fired although today is logged")
	}
}

func TestReminderDisabled(t *testing.T) {
	s, _, _ := newTestService(t, Config{})
	s.now = func() time.Time { return time.Date(2024, time.January, 15, 23, 0, 0, 0, time.UTC) }
	if s.checkReminder() {
		t.Fatal("disabled reminder fired")
	}
}

func TestStreamSendsSnapshotFirst(t *testing.T) {
	s, _, _ := newTestService(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if line != "event: snapshot\n" {
		t.Fatalf("first line = %q", line)
	}
}

func TestFileWatcherSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "days.json")

	w, err := watchFile(path)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after writing the watched file")
	}
}
