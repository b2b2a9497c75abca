// Package daemon provides the long-running quitc service: an HTTP/SSE view
// of the ledger, the daily reminder and a file watcher that reloads the
// ledger when another process changes it.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/quitc/internal/ledger"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/stats"

	"github.com/google/uuid"
)

// ReminderText is the message published when today is still unlogged.
const ReminderText = "Don't forget to log your status for today!"

// Event types.
const (
	EventSnapshot = "snapshot"
	EventReminder = "reminder"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int
	Policy       stats.Policy

	// WatchPath is the ledger's backing file. Changes to it reload the
	// ledger; empty disables watching.
	WatchPath string

	Reminder ReminderConfig
}

// ReminderConfig schedules the daily reminder in the clock's time zone.
type ReminderConfig struct {
	Enabled  bool
	Hour     int
	Minute   int
	Location *time.Location
}

// Event is emitted for every ledger change and every reminder.
type Event struct {
	ID        int64         `json:"id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Version   uint64        `json:"version"`
	Date      string        `json:"date,omitempty"`
	Status    string        `json:"status,omitempty"`
	Message   string        `json:"message,omitempty"`
	Summary   model.Summary `json:"summary"`
}

// Status is served at /v1/status.
type Status struct {
	InstanceID      string        `json:"instance_id"`
	StartedAt       time.Time     `json:"started_at"`
	Version         uint64        `json:"version"`
	Today           model.Date    `json:"today"`
	Summary         model.Summary `json:"summary"`
	DataPath        string        `json:"data_path,omitempty"`
	ReminderEnabled bool          `json:"reminder_enabled"`
	ReminderAt      string        `json:"reminder_at,omitempty"`
	LastReminderAt  time.Time     `json:"last_reminder_at"`
	LastError       string        `json:"last_error,omitempty"`
	EventCount      int           `json:"event_count"`
	SubscriberCount int           `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	ledger *ledger.Ledger
	clock  ledger.Clock
	memo   *stats.Memo
	now    func() time.Time

	instanceID string

	mu             sync.RWMutex
	startedAt      time.Time
	lastError      string
	remindedFor    model.Date
	lastReminderAt time.Time
	nextEventID    int64
	events         []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service serving l.
func New(cfg Config, l *ledger.Ledger, clock ledger.Clock) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8789"
	}
	if cfg.Reminder.Location == nil {
		cfg.Reminder.Location = time.Local
	}

	return &Service{
		cfg:        cfg,
		ledger:     l,
		clock:      clock,
		memo:       stats.NewMemo(),
		now:        time.Now,
		instanceID: uuid.NewString(),
		startedAt:  time.Now(),
		subs:       make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/days", s.handleDays)
	mux.HandleFunc("PUT /v1/days/{date}", s.handlePutDay)
	mux.HandleFunc("DELETE /v1/days/{date}", s.handleDeleteDay)
	mux.HandleFunc("GET /v1/trend", s.handleTrend)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

// Run serves the API, relays ledger changes and fires reminders until ctx
// is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	changes, stopWatch := s.ledger.Watch(s.cfg.EventsBuffer)
	defer stopWatch()

	var reloads <-chan struct{}
	if s.cfg.WatchPath != "" {
		fw, err := watchFile(s.cfg.WatchPath)
		if err != nil {
			s.recordError(fmt.Errorf("watching %s: %w", s.cfg.WatchPath, err))
		} else {
			defer fw.Close()
			reloads = fw.Changed()
		}
	}

	// Seed the event log so /v1/events is useful immediately.
	s.publishEvent(s.newEvent(EventSnapshot))
	s.checkReminder()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case change, ok := <-changes:
			if ok {
				s.publishChange(change)
			}
		case <-reloads:
			if _, err := s.ledger.Reload(ctx); err != nil {
				s.recordError(err)
			}
		case <-ticker.C:
			s.checkReminder()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	log.Printf("quitc daemon: %v", err)
}

func (s *Service) summary(month model.Month) (model.Summary, uint64) {
	days, version := s.ledger.View()
	return s.memo.Summary(version, days, month, s.clock.Today(), s.cfg.Policy), version
}

func (s *Service) newEvent(typ string) Event {
	sum, version := s.summary(s.clock.Today().MonthOf())
	return Event{
		Type:      typ,
		Timestamp: s.now(),
		Version:   version,
		Summary:   sum,
	}
}

// publishChange turns a committed ledger change into an event.
func (s *Service) publishChange(change ledger.Change) {
	ev := s.newEvent(string(change.Kind))
	ev.Version = change.Version
	if !change.Date.IsZero() {
		ev.Date = change.Date.String()
	}
	if change.Status.Valid() {
		ev.Status = change.Status.String()
	}
	s.publishEvent(ev)
}

// checkReminder publishes the daily reminder once the configured time has
// passed, at most once per day and only while today is unlogged.
func (s *Service) checkReminder() bool {
	r := s.cfg.Reminder
	if !r.Enabled {
		return false
	}

	now := s.now().In(r.Location)
	due := time.Date(now.Year(), now.Month(), now.Day(), r.Hour, r.Minute, 0, 0, r.Location)
	if now.Before(due) {
		return false
	}

	today := s.clock.Today()
	s.mu.Lock()
	if s.remindedFor == today {
		s.mu.Unlock()
		return false
	}
	s.remindedFor = today
	s.mu.Unlock()

	if _, logged := s.ledger.Status(today); logged {
		return false
	}

	ev := s.newEvent(EventReminder)
	ev.Date = today.String()
	ev.Message = ReminderText

	s.mu.Lock()
	s.lastReminderAt = now
	s.mu.Unlock()

	log.Printf("quitc daemon: %s (%s)", ReminderText, today)
	s.publishEvent(ev)
	return true
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) status(month model.Month) Status {
	sum, version := s.summary(month)

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		InstanceID:      s.instanceID,
		StartedAt:       s.startedAt,
		Version:         version,
		Today:           s.clock.Today(),
		Summary:         sum,
		DataPath:        s.cfg.WatchPath,
		ReminderEnabled: s.cfg.Reminder.Enabled,
		LastReminderAt:  s.lastReminderAt,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if st.ReminderEnabled {
		st.ReminderAt = fmt.Sprintf("%02d:%02d", s.cfg.Reminder.Hour, s.cfg.Reminder.Minute)
	}
	return st
}

// ─── Handlers ───────────────────────────────────────────────────

// dayRequest is the PUT /v1/days/{date} body. An empty status clears.
type dayRequest struct {
	Status string `json:"status"`
}

// DayResponse reports the outcome of a day mutation.
type DayResponse struct {
	Date       string `json:"date"`
	Status     string `json:"status,omitempty"`
	Result     string `json:"result"`
	TokensLeft int    `json:"tokens_left"`
	Error      string `json:"error,omitempty"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.status(month))
}

func (s *Service) handleDays(w http.ResponseWriter, r *http.Request) {
	days := s.ledger.Snapshot()
	if r.URL.Query().Get("month") != "" {
		month, err := s.monthParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for date := range days {
			if !month.Contains(date) {
				delete(days, date)
			}
		}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Service) handleTrend(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n := 12
	if v := r.URL.Query().Get("months"); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil || n < 1 || n > 120 {
			http.Error(w, "months must be between 1 and 120", http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, stats.Trend(s.ledger.Snapshot(), month, n, s.clock.Today(), s.cfg.Policy))
}

func (s *Service) handlePutDay(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var status *model.DayStatus
	if req.Status != "" {
		parsed, err := model.ParseStatus(req.Status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = &parsed
	}
	s.updateDay(w, r, status)
}

func (s *Service) handleDeleteDay(w http.ResponseWriter, r *http.Request) {
	s.updateDay(w, r, nil)
}

func (s *Service) updateDay(w http.ResponseWriter, r *http.Request, status *model.DayStatus) {
	date, err := model.ParseDate(r.PathValue("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if status != nil && date.After(s.clock.Today()) {
		http.Error(w, "cannot log a future day", http.StatusUnprocessableEntity)
		return
	}

	result, err := s.ledger.Update(r.Context(), date, status)
	resp := DayResponse{
		Date:       date.String(),
		Result:     result.String(),
		TokensLeft: stats.TokensLeft(s.ledger.Snapshot(), date.MonthOf()),
	}
	if st, ok := s.ledger.Status(date); ok {
		resp.Status = st.String()
	}

	code := http.StatusOK
	switch {
	case err != nil:
		resp.Error = err.Error()
		code = http.StatusInternalServerError
		if !errors.Is(err, ledger.ErrSave) {
			code = http.StatusBadRequest
		}
	case result == ledger.Rejected:
		resp.Error = "no tokens left this month"
		code = http.StatusConflict
	}
	writeJSON(w, code, resp)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current state immediately.
	writeSSE(w, s.newEvent(EventSnapshot))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func (s *Service) monthParam(r *http.Request) (model.Month, error) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return s.clock.Today().MonthOf(), nil
	}
	return model.ParseMonth(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
