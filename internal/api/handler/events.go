package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/service"
)

// Notification topics.
const (
	TopicSession = "session"
	TopicResume  = "resume"
	TopicTailor  = "tailor"
	TopicHistory = "history"
)

const (
	subscriberBuffer = 32
	writeTimeout     = 5 * time.Second
)

// Event is one notification pushed to render-layer subscribers.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type subscriber struct {
	send chan Event
	// gone is closed when the hub drops the subscriber.
	gone chan struct{}
}

// EventHub fans orchestrator notifications out to websocket subscribers.
// Publish never blocks the orchestrator: a subscriber whose buffer is full
// is disconnected and expected to reconnect and resynchronise.
//
// Payloads implementing service.Sequenced are delivered in sequence order per
// topic; an older one arriving late is dropped.
type EventHub struct {
	log     zerolog.Logger
	origins []string

	mu        sync.Mutex
	subs      map[*subscriber]struct{}
	snapshots func() []Event
	latest    map[string]uint64
	closed    bool
}

func NewEventHub(origins []string, log zerolog.Logger) *EventHub {
	return &EventHub{
		log:     log.With().Str("component", "events").Logger(),
		origins: origins,
		subs:    make(map[*subscriber]struct{}),
		latest:  make(map[string]uint64),
	}
}

// Attach subscribes the hub to every orchestrator of app. New websocket
// subscribers first receive the current state of each topic.
func (h *EventHub) Attach(app *service.App) func() {
	h.mu.Lock()
	h.latest = make(map[string]uint64)
	h.snapshots = func() []Event {
		return []Event{
			{Topic: TopicSession, Payload: app.Session.Event()},
			{Topic: TopicResume, Payload: app.Resume.Snapshot()},
			{Topic: TopicTailor, Payload: app.Tailor.Snapshot()},
			{Topic: TopicHistory, Payload: app.History.Snapshot()},
		}
	}
	h.mu.Unlock()

	unsubs := []func(){
		app.Session.Subscribe(func(ev service.SessionEvent) { h.Publish(TopicSession, ev) }),
		app.Resume.Subscribe(func(s service.WorkspaceSnapshot) { h.Publish(TopicResume, s) }),
		app.Tailor.Subscribe(func(s service.TailorSnapshot) { h.Publish(TopicTailor, s) }),
		app.History.Subscribe(func(s service.HistorySnapshot) { h.Publish(TopicHistory, s) }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// Publish queues an event for every subscriber.
func (h *EventHub) Publish(topic string, payload any) {
	ev := Event{Topic: topic, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	if seq, ok := sequence(payload); ok {
		if seq <= h.latest[topic] {
			h.log.Debug().Str("topic", topic).Uint64("seq", seq).Msg("stale event dropped")
			return
		}
		h.latest[topic] = seq
	}
	for sub := range h.subs {
		select {
		case sub.send <- ev:
		default:
			h.log.Warn().Str("topic", topic).Msg("subscriber too slow, disconnecting")
			h.dropLocked(sub)
		}
	}
}

// Subscribers reports the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		h.dropLocked(sub)
	}
}

func (h *EventHub) register() (*subscriber, []Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, false
	}
	sub := &subscriber{send: make(chan Event, subscriberBuffer), gone: make(chan struct{})}
	h.subs[sub] = struct{}{}
	var initial []Event
	if h.snapshots != nil {
		initial = h.snapshots()
	}
	return sub, initial, true
}

func (h *EventHub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *EventHub) dropLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.gone)
}

// Serve upgrades GET /v1/events to a websocket and streams events until the
// client goes away. Client messages are ignored.
func (h *EventHub) Serve(c echo.Context) error {
	sub, initial, ok := h.register()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "shutting down")
	}
	defer h.unregister(sub)

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(c.Request().Context())
	h.log.Debug().Str("remote", c.RealIP()).Msg("subscriber connected")

	// seen holds the newest sequence written per topic on this connection.
	seen := make(map[string]uint64)
	for _, ev := range initial {
		if seq, ok := sequence(ev.Payload); ok {
			seen[ev.Topic] = seq
		}
		if err := h.write(ctx, conn, ev); err != nil {
			return nil
		}
	}
	for {
		select {
		case ev := <-sub.send:
			if seq, ok := sequence(ev.Payload); ok {
				if seq <= seen[ev.Topic] {
					continue
				}
				seen[ev.Topic] = seq
			}
			if err := h.write(ctx, conn, ev); err != nil {
				return nil
			}
		case <-sub.gone:
			conn.Close(websocket.StatusPolicyViolation, "disconnected")
			return nil
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}
}

func (h *EventHub) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, ev); err != nil {
		h.log.Debug().Err(err).Str("topic", ev.Topic).Msg("subscriber write failed")
		return err
	}
	return nil
}

func sequence(payload any) (uint64, bool) {
	s, ok := payload.(service.Sequenced)
	if !ok {
		return 0, false
	}
	return s.Sequence(), true
}
