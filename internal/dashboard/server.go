package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	log "log/slog"
	"net/http"
	"time"

	"orin/pkg/telemetry"
)

//go:embed static
var static embed.FS

// Server serves the live map page, the websocket feed and a JSON snapshot.
type Server struct {
	State *State
	Hub   *Hub
}

func NewServer() *Server {
	return &Server{State: NewState(), Hub: NewHub()}
}

func (s *Server) Handler() http.Handler {
	root, _ := fs.Sub(static, "static")

	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(root))
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		s.Hub.Serve(w, r, s.event())
	})
	mux.HandleFunc("GET /api/location", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.State.Update())
	})
	return mux
}

// OnMessage handles a location payload from MQTT. Malformed payloads are
// logged and dropped.
func (s *Server) OnMessage(topic string, payload []byte) {
	loc, err := telemetry.ParseLocation(string(payload))
	if err != nil {
		log.Warn("Bad location payload", "topic", topic, "payload", string(payload), "err", err)
		return
	}
	log.Info("Location update", "method", loc.Method, "place", loc.Place)

	s.State.Set(loc)
	s.Hub.Broadcast(s.event())
}

func (s *Server) event() Event {
	return Event{Event: EventLocationUpdate, Data: s.State.Update()}
}

// ListenAndServe runs the HTTP server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Dashboard listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
