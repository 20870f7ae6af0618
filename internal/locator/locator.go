package locator

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"time"

	"go.uber.org/multierr"

	"orin/internal/gps"
	"orin/internal/mqttx"
	"orin/pkg/telemetry"
)

type Positioner interface {
	Position(ctx context.Context) (gps.Fix, error)
}

type IPLocator interface {
	Locate(ctx context.Context) (telemetry.Location, error)
}

// Locator publishes the device position, preferring a GPS fix and falling
// back to IP geolocation.
type Locator struct {
	GPS      Positioner // optional
	IP       IPLocator  // optional
	Pub      mqttx.Publisher
	Topic    string
	Interval time.Duration

	now func() time.Time
}

func New(pos Positioner, ip IPLocator, pub mqttx.Publisher, interval time.Duration) *Locator {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Locator{
		GPS:      pos,
		IP:       ip,
		Pub:      pub,
		Topic:    telemetry.TopicLocation,
		Interval: interval,
		now:      time.Now,
	}
}

func (l *Locator) Locate(ctx context.Context) (telemetry.Location, error) {
	var errs error

	if l.GPS != nil {
		fix, err := l.GPS.Position(ctx)
		if err == nil {
			return telemetry.Location{
				Lat:       fix.Lat,
				Lon:       fix.Lon,
				Method:    telemetry.MethodGPS,
				Place:     describe(fix.Lat, fix.Lon),
				UpdatedAt: l.now(),
			}, nil
		}
		log.Warn("No GPS position, falling back to IP", "err", err)
		errs = multierr.Append(errs, err)
	}

	if l.IP != nil {
		loc, err := l.IP.Locate(ctx)
		if err == nil {
			return loc, nil
		}
		errs = multierr.Append(errs, err)
	}

	if errs == nil {
		errs = fmt.Errorf("no location source configured")
	}
	return telemetry.Location{}, errs
}

// PublishOnce locates and publishes a single update.
func (l *Locator) PublishOnce(ctx context.Context) (telemetry.Location, error) {
	loc, err := l.Locate(ctx)
	if err != nil {
		return loc, err
	}
	if err := l.Pub.Publish(l.Topic, loc.Payload()); err != nil {
		return loc, fmt.Errorf("publish: %w", err)
	}
	return loc, nil
}

// Run publishes immediately and then every Interval until ctx is done.
// Failures are logged and retried on the next tick.
func (l *Locator) Run(ctx context.Context) error {
	t := time.NewTicker(l.Interval)
	defer t.Stop()

	for {
		loc, err := l.PublishOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Failed to obtain location", "err", err)
		} else {
			log.Info("Published location", "payload", loc.Payload())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// describe renders a coordinate pair the way it reads aloud.
func describe(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f %s %.4f %s", math.Abs(lat), ns, math.Abs(lon), ew)
}
