package gps

import (
	"context"
	log "log/slog"
	"time"

	"orin/internal/gpio"
)

// PowerKey toggles the modem's PWRKEY line.
type PowerKey struct {
	pin gpio.OutputPin

	OnHold    time.Duration
	OnSettle  time.Duration
	OffHold   time.Duration
	OffSettle time.Duration

	sleep func(context.Context, time.Duration) error
}

func NewPowerKey(pin gpio.OutputPin) *PowerKey {
	return &PowerKey{
		pin:       pin,
		OnHold:    2 * time.Second,
		OnSettle:  20 * time.Second,
		OffHold:   3 * time.Second,
		OffSettle: 18 * time.Second,
		sleep:     sleepCtx,
	}
}

func (k *PowerKey) PowerOn(ctx context.Context) error {
	log.Info("Powering on modem")
	if err := k.pulse(ctx, k.OnHold, k.OnSettle); err != nil {
		return err
	}
	log.Info("Modem is ready")
	return nil
}

func (k *PowerKey) PowerDown(ctx context.Context) error {
	log.Info("Powering off modem")
	if err := k.pulse(ctx, k.OffHold, k.OffSettle); err != nil {
		return err
	}
	log.Info("Modem is off")
	return nil
}

func (k *PowerKey) pulse(ctx context.Context, hold, settle time.Duration) error {
	k.pin.High()
	err := k.sleep(ctx, hold)
	k.pin.Low()
	if err != nil {
		return err
	}
	return k.sleep(ctx, settle)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
