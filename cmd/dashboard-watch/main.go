package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/dashboard"
)

func main() {
	url := cli.StringP("url", "u", "ws://localhost:5000/ws", "Dashboard websocket URL")
	reconnect := cli.DurationP("reconnect", "r", 2*time.Second, "Delay between reconnect attempts")
	app.Boot("dashboard-watch")

	ctx, cancel := app.SignalContext()
	defer cancel()

	w := dashboard.NewWatcher(*url, *reconnect)
	err := w.Run(ctx, func(u dashboard.Update) {
		fmt.Fprintf(os.Stdout, "%.6f,%.6f  %-7s %s (%s)\n", u.Latitude, u.Longitude, u.Method, u.Location, u.LastUpdate)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Watcher stopped", "err", err)
		os.Exit(1)
	}
}
