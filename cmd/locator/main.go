package main

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/config"
	"orin/internal/geoip"
	"orin/internal/gpio"
	"orin/internal/gps"
	"orin/internal/locator"
)

func main() {
	demo := cli.Bool("demo", false, "Publish canned demo locations instead of real ones")
	noGPS := cli.Bool("no-gps", false, "Skip the modem and use IP geolocation only")
	once := cli.Bool("once", false, "Publish a single location and exit")
	cfg := app.Boot("locator")

	ctx, cancel := app.SignalContext()
	defer cancel()

	mq := app.MQTT(cfg.MQTT, "locator")
	defer mq.Close()

	interval := cfg.GPS.Interval.Duration
	if *demo {
		log.Info("Running demo publisher", "interval", interval)
		if err := locator.RunDemo(ctx, mq, interval); !errors.Is(err, context.Canceled) {
			log.Error("Demo stopped", "err", err)
		}
		return
	}

	ip := geoip.New(app.HTTPClient(cfg, cfg.GeoIP.Timeout.Duration), cfg.GeoIP.IpstackKey)
	loc := locator.New(nil, ip, mq, interval)

	if !*noGPS {
		modem, err := openModem(ctx, cfg.GPS)
		if err != nil {
			log.Warn("GPS unavailable, using IP geolocation", "device", cfg.GPS.Device, "err", err)
		} else {
			defer func() {
				// ctx is already cancelled here.
				closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := modem.Close(closeCtx); err != nil {
					log.Warn("Failed to shut down modem", "err", err)
				}
				gpio.Close()
			}()
			loc.GPS = modem
		}
	}

	log.Info("Boot up - successful", "gps", loc.GPS != nil, "interval", interval)

	if *once {
		l, err := loc.PublishOnce(ctx)
		if err != nil {
			log.Error("Failed to obtain location", "err", err)
			return
		}
		log.Info("Published location", "payload", l.Payload())
		return
	}

	if err := loc.Run(ctx); !errors.Is(err, context.Canceled) {
		log.Error("Locator stopped", "err", err)
	}
}

// openModem opens the serial port, attaches the power key when GPIO is
// available and waits for the modem to answer.
func openModem(ctx context.Context, cfg config.GPSConfig) (*gps.Modem, error) {
	port, err := gps.OpenSerial(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, err
	}

	var power gps.PowerSwitch
	if err := gpio.Open(); err != nil {
		log.Warn("GPIO unavailable, modem power key disabled", "err", err)
	} else {
		key := gps.NewPowerKey(gpio.Output(cfg.PowerPin))
		key.OnHold = cfg.PowerOnHold.Duration
		key.OnSettle = cfg.PowerOnSettle.Duration
		key.OffHold = cfg.PowerOffHold.Duration
		key.OffSettle = cfg.PowerOffWait.Duration
		power = key
	}

	modem := gps.NewModem(port, power)
	if err := modem.CheckStart(ctx); err != nil {
		port.Close()
		if power != nil {
			gpio.Close()
		}
		return nil, err
	}
	return modem, nil
}
