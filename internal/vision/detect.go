package vision

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"

	"orin/pkg/telemetry"
)

type Detection struct {
	ClassID    int
	Label      string
	Confidence float32
	Box        image.Rectangle
}

func (d Detection) Center() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

type Detector interface {
	Detect(f *Frame) ([]Detection, error)
	Close() error
}

// Measure reads the depth at the center of every detection box.
func Measure(f *Frame, dets []Detection) []telemetry.ObjectSighting {
	out := make([]telemetry.ObjectSighting, len(dets))
	for i, d := range dets {
		c := d.Center()
		out[i] = telemetry.ObjectSighting{
			Label:      d.Label,
			Confidence: d.Confidence,
			Distance:   f.Distance(c.X, c.Y),
		}
	}
	return out
}

// LoadLabels reads one class name per line.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			labels = append(labels, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

func labelFor(labels []string, id int) string {
	if id >= 0 && id < len(labels) {
		return labels[id]
	}
	return fmt.Sprintf("class %d", id)
}

// nms keeps the most confident box of every overlapping same-class group.
func nms(dets []Detection, iouThresh float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})

	var kept []Detection
	for _, d := range dets {
		ok := true
		for _, k := range kept {
			if k.ClassID == d.ClassID && iou(k.Box, d.Box) > iouThresh {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	ua := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if ua <= 0 {
		return 0
	}
	return ia / ua
}
