package dashboard

import (
	"context"
	"encoding/json"
	log "log/slog"
	"time"

	ws "github.com/gorilla/websocket"
)

// Watcher follows a dashboard's websocket feed and reconnects when the
// connection drops.
type Watcher struct {
	URL       string
	Reconnect time.Duration
	Dialer    *ws.Dialer
}

func NewWatcher(url string, reconnect time.Duration) *Watcher {
	if reconnect <= 0 {
		reconnect = 2 * time.Second
	}
	return &Watcher{URL: url, Reconnect: reconnect, Dialer: ws.DefaultDialer}
}

// Run calls fn for each location update until ctx is done.
func (w *Watcher) Run(ctx context.Context, fn func(Update)) error {
	for {
		conn, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("Failed to dial dashboard, retrying", "url", w.URL, "err", err, "in", w.Reconnect)
		} else {
			log.Info("Connected to dashboard", "url", w.URL)
			w.follow(ctx, conn, fn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.Reconnect):
		}
	}
}

func (w *Watcher) follow(ctx context.Context, conn *ws.Conn, fn func(Update)) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if IsClosed(err) {
				log.Info("Dashboard closed the connection")
			} else if ctx.Err() == nil {
				log.Warn("Dashboard read failed", "err", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Warn("Bad dashboard event", "msg", string(msg), "err", err)
			continue
		}
		if ev.Event == EventLocationUpdate {
			fn(ev.Data)
		}
	}
}
