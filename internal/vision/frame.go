package vision

import (
	"image"
	"image/color"
)

// DefaultDepthScale converts z16 depth units to meters.
const DefaultDepthScale = 0.001

// Frame is one aligned color + depth capture.
type Frame struct {
	Width, Height int
	Color         []byte   // BGR24, row major
	Depth         []uint16 // z16, row major, aligned to Color
	DepthScale    float64  // meters per depth unit
}

func NewFrame(w, h int) *Frame {
	return &Frame{
		Width:      w,
		Height:     h,
		Color:      make([]byte, w*h*3),
		Depth:      make([]uint16, w*h),
		DepthScale: DefaultDepthScale,
	}
}

// Distance returns the depth at (x, y) in meters, 0 when out of bounds or
// when there is no depth reading.
func (f *Frame) Distance(x, y int) float64 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	i := y*f.Width + x
	if i >= len(f.Depth) {
		return 0
	}
	scale := f.DepthScale
	if scale == 0 {
		scale = DefaultDepthScale
	}
	return float64(f.Depth[i]) * scale
}

func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// bgr exposes the color buffer as a draw.Image.
type bgr struct{ f *Frame }

func (b bgr) ColorModel() color.Model  { return color.RGBAModel }
func (b bgr) Bounds() image.Rectangle { return b.f.Bounds() }

func (b bgr) At(x, y int) color.Color {
	if !(image.Pt(x, y).In(b.f.Bounds())) {
		return color.RGBA{}
	}
	i := (y*b.f.Width + x) * 3
	return color.RGBA{R: b.f.Color[i+2], G: b.f.Color[i+1], B: b.f.Color[i], A: 0xff}
}

func (b bgr) Set(x, y int, c color.Color) {
	if !(image.Pt(x, y).In(b.f.Bounds())) {
		return
	}
	r, g, bl, _ := c.RGBA()
	i := (y*b.f.Width + x) * 3
	b.f.Color[i] = uint8(bl >> 8)
	b.f.Color[i+1] = uint8(g >> 8)
	b.f.Color[i+2] = uint8(r >> 8)
}
