package locator

import (
	"context"
	log "log/slog"
	"time"

	"orin/internal/mqttx"
	"orin/pkg/telemetry"
)

// DemoLocations are cycled by RunDemo.
var DemoLocations = []telemetry.Location{
	{Lat: 37.7749, Lon: -122.4194, Method: telemetry.MethodGPS, Place: "San Francisco, California, United States"},
	{Lat: 34.0522, Lon: -118.2437, Method: telemetry.MethodIP, Place: "Los Angeles, California, United States"},
	{Lat: 40.7128, Lon: -74.0060, Method: telemetry.MethodGPS, Place: "New York, New York, United States"},
}

// RunDemo publishes the demo locations in turn, one per interval.
func RunDemo(ctx context.Context, pub mqttx.Publisher, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for i := 0; ; i++ {
		loc := DemoLocations[i%len(DemoLocations)]
		if err := pub.Publish(telemetry.TopicLocation, loc.Payload()); err != nil {
			log.Error("Failed to publish", "err", err)
		} else {
			log.Info("Published demo location", "place", loc.Place)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
