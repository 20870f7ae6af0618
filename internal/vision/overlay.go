package vision

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"orin/pkg/telemetry"
)

var overlayColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// OverlayText is the caption drawn above a detection box.
func OverlayText(s telemetry.ObjectSighting) string {
	return fmt.Sprintf("%.1f%% %s at %.2fm", s.Confidence*100, s.Label, s.Distance)
}

// Overlay draws each box and its caption into the frame's color buffer.
// dets and sightings are parallel.
func Overlay(f *Frame, dets []Detection, sightings []telemetry.ObjectSighting) {
	img := bgr{f}
	face := basicfont.Face7x13
	for i, d := range dets {
		drawRect(img, d.Box, 2)

		if i >= len(sightings) {
			continue
		}
		y := d.Box.Min.Y - 10
		if y < face.Ascent {
			y = d.Box.Min.Y + face.Ascent + 2
		}
		dr := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(overlayColor),
			Face: face,
			Dot:  fixed.P(d.Box.Min.X, y),
		}
		dr.DrawString(OverlayText(sightings[i]))
	}
}

func drawRect(img bgr, r image.Rectangle, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, r.Min.Y+t, overlayColor)
			img.Set(x, r.Max.Y-1-t, overlayColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.Set(r.Min.X+t, y, overlayColor)
			img.Set(r.Max.X-1-t, y, overlayColor)
		}
	}
}
