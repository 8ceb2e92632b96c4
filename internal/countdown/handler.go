package countdown

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

// Snapshot is the wire view of the countdown.
type Snapshot struct {
	RemainingMs int64  `json:"remaining_ms"`
	Display     string `json:"display"`
}

// SnapshotOf projects d for display.
func SnapshotOf(d time.Duration) Snapshot {
	return Snapshot{RemainingMs: d.Milliseconds(), Display: Format(d)}
}

// Handler serves read-only views of a Clock.
type Handler struct {
	clock    *Clock
	interval time.Duration
	logger   *logging.Logger
	upgrader websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
}

// NewHandler creates a countdown handler. interval is the push cadence of the
// stream endpoint.
func NewHandler(clock *Clock, interval time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Handler{
		clock:    clock,
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 512,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Get handles GET /countdown requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(SnapshotOf(h.clock.Remaining()))
}

// Shutdown ends every open stream with a going-away close frame and refuses
// new ones. Register it with http.Server.RegisterOnShutdown.
func (h *Handler) Shutdown() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// Stream handles GET /countdown/stream, pushing one snapshot per interval
// until the client goes away or the handler shuts down.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.quit:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("countdown stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	send := func() bool {
		_ = conn.SetWriteDeadline(time.Now().Add(h.interval + time.Second))
		return conn.WriteJSON(SnapshotOf(h.clock.Remaining())) == nil
	}
	if !send() {
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-h.quit:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
