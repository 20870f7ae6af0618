package vision

import (
	"context"
	log "log/slog"

	"orin/internal/mqttx"
	"orin/pkg/telemetry"
)

type FrameSink interface {
	Write(f *Frame) error
}

// Pipeline reads frames, runs detection when narration is due or a query
// is pending, and forwards every frame to Sink. Narrator, Trigger and Sink
// may be nil.
type Pipeline struct {
	Source   Source
	Detector Detector
	Narrator *Narrator
	Trigger  *Trigger
	Pub      mqttx.Publisher
	Sink     FrameSink
}

func (p *Pipeline) Run(ctx context.Context) error {
	for {
		f, err := p.Source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := p.Step(f); err != nil {
			return err
		}
	}
}

// Step processes one frame. Detection failures are logged; only a failing
// sink is returned since the stream cannot recover from it.
func (p *Pipeline) Step(f *Frame) error {
	narrate := p.Narrator != nil && p.Narrator.Due()
	query := p.Trigger != nil && p.Trigger.Pending()

	if narrate || query {
		p.analyse(f, narrate, query)
	}

	if p.Sink != nil {
		return p.Sink.Write(f)
	}
	return nil
}

func (p *Pipeline) analyse(f *Frame, narrate, query bool) {
	dets, err := p.Detector.Detect(f)
	if err != nil {
		log.Error("Detection failed", "err", err)
		return
	}
	sightings := Measure(f, dets)
	Overlay(f, dets, sightings)

	for _, s := range sightings {
		log.Debug("Object", "label", s.Label, "distance", s.Distance, "confidence", s.Confidence)
	}

	if narrate {
		p.Narrator.Observe(sightings)
	}
	if query && p.Trigger.Take() {
		log.Info("Detected objects on request", "count", len(sightings))
		if len(sightings) == 0 || p.Pub == nil {
			return
		}
		report := telemetry.DetectionReport{Objects: sightings}
		if err := p.Pub.Publish(telemetry.TopicObjectResponse, report.Payload()); err != nil {
			log.Error("Failed to publish detections", "err", err)
		}
	}
}
