package audio

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

const maxVolume = 150

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
	Binary  string
}

type fade struct {
	id   int
	from int
	to   int
}

// Ducker lowers the volume of other applications while the assistant
// speaks. Streams whose application name or process binary is in selfNames
// are left alone.
type Ducker struct {
	Run Runner

	mu        sync.Mutex
	active    bool
	selfNames []string
	original  map[int]int
	minVolume int
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	return &Ducker{
		Run:       PactlRunner,
		selfNames: append([]string(nil), selfNames...),
		original:  make(map[int]int),
		minVolume: min(max(minVolume, 0), maxVolume),
	}
}

// Duck fades other sink-inputs to factor of their volume, not below minVolume.
func (d *Ducker) Duck(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, s := range inputs {
		to := int(math.Round(float64(s.Volume) * factor))
		to = min(max(to, d.minVolume), maxVolume)
		d.original[s.ID] = s.Volume
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: to})
	}

	if err := d.fade(ctx, fades, duration); err != nil {
		return err
	}
	d.active = true
	return nil
}

// Restore fades ducked sink-inputs back to their original volume. Streams
// that appeared after Duck are ignored.
func (d *Ducker) Restore(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, s := range inputs {
		if orig, ok := d.original[s.ID]; ok {
			fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}

	if err := d.fade(ctx, fades, duration); err != nil {
		return err
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.Run.Output(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, err
	}

	var res []sinkInput
	for _, s := range parseSinkInputs(string(out)) {
		if !d.isSelf(s) {
			res = append(res, s)
		}
	}
	return res, nil
}

// isSelf also matches the name the ALSA pulse plugin gives to streams of
// clients that did not set application.name.
func (d *Ducker) isSelf(s sinkInput) bool {
	for _, name := range d.selfNames {
		if name == "" {
			continue
		}
		if s.AppName == name || s.Binary == name || s.AppName == "ALSA plug-in ["+name+"]" {
			return true
		}
	}
	return false
}

func (d *Ducker) fade(ctx context.Context, fades []fade, duration time.Duration) error {
	if len(fades) == 0 {
		return nil
	}

	const minStep = 10 * time.Millisecond

	steps := max(int(duration/minStep), 1)
	if duration <= 0 {
		steps = 0
	}
	var stepDur time.Duration
	if steps > 0 {
		stepDur = duration / time.Duration(steps)
	}

	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := 1.0
		if steps > 0 {
			frac = float64(i) / float64(steps)
		}
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setVolume(ctx, f.id, v); err != nil {
				return err
			}
		}

		if i < steps {
			time.Sleep(stepDur)
		}
	}
	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	_, err := d.Run.Output(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	return err
}

// parseSinkInputs reads `pactl list sink-inputs` output.
func parseSinkInputs(text string) []sinkInput {
	parts := strings.Split(text, "Sink Input #")
	if len(parts) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range parts[1:] {
		nl := strings.IndexByte(block, '\n')
		if nl <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:nl]))
		if err != nil {
			continue
		}

		s := sinkInput{ID: id}
		for _, line := range strings.Split(block[nl+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				s.AppName = quoted(line)
			}
			if strings.HasPrefix(line, "application.process.binary =") && s.Binary == "" {
				s.Binary = quoted(line)
			}
		}

		if s.Volume == 0 && s.AppName == "" && s.Binary == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}

func quoted(line string) string {
	_, rest, ok := strings.Cut(line, `"`)
	if !ok {
		return ""
	}
	v, _, _ := strings.Cut(rest, `"`)
	return v
}
