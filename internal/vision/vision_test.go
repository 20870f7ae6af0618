package vision

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orin/internal/mqttx"
	"orin/pkg/telemetry"
)

func TestFrameDistance(t *testing.T) {
	f := NewFrame(4, 3)
	f.Depth[1*4+2] = 1500

	require.InDelta(t, 1.5, f.Distance(2, 1), 1e-9)
	require.Zero(t, f.Distance(0, 0))
	require.Zero(t, f.Distance(4, 1))
	require.Zero(t, f.Distance(-1, 1))

	f.DepthScale = 0.0001
	require.InDelta(t, 0.15, f.Distance(2, 1), 1e-9)
}

func TestStreamSource(t *testing.T) {
	const w, h = 2, 2
	var buf bytes.Buffer
	for frame := 0; frame < 2; frame++ {
		color := bytes.Repeat([]byte{byte(frame + 1)}, w*h*3)
		buf.Write(color)
		for i := 0; i < w*h; i++ {
			binary.Write(&buf, binary.LittleEndian, uint16(1000*(frame+1)+i))
		}
	}

	src := NewStreamSource(&buf, w, h, 0)
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, byte(1), f.Color[0])
	require.Equal(t, []uint16{1000, 1001, 1002, 1003}, f.Depth)
	require.InDelta(t, 1.003, f.Distance(1, 1), 1e-9)

	f, err = src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint16(2000), f.Depth[0])

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeAndNMS(t *testing.T) {
	const classes, anchors = 2, 3
	out := make([]float32, (4+classes)*anchors)
	set := func(a int, cx, cy, w, h float32, scores ...float32) {
		out[a], out[anchors+a], out[2*anchors+a], out[3*anchors+a] = cx, cy, w, h
		for c, s := range scores {
			out[(4+c)*anchors+a] = s
		}
	}
	set(0, 100, 100, 50, 50, 0.9, 0.1)
	set(1, 102, 101, 50, 50, 0.7, 0.2) // overlaps anchor 0
	set(2, 300, 200, 40, 80, 0.1, 0.3) // below threshold

	dets := decode(out, classes, anchors, 0.4, 2, 1, image.Rect(0, 0, 1280, 720))
	require.Len(t, dets, 2)
	require.Equal(t, image.Rect(150, 75, 250, 125), dets[0].Box)

	kept := nms(dets, nmsIoU)
	require.Len(t, kept, 1)
	require.Equal(t, float32(0.9), kept[0].Confidence)
	require.Equal(t, image.Pt(200, 100), kept[0].Center())
}

func TestPreprocess(t *testing.T) {
	f := NewFrame(4, 4)
	for i := 0; i < 16; i++ {
		f.Color[i*3], f.Color[i*3+1], f.Color[i*3+2] = 0, 51, 255 // B, G, R
	}
	dst := make([]float32, 3*2*2)
	preprocess(f, dst, 2)
	require.Equal(t, float32(1), dst[0])   // R plane
	require.Equal(t, float32(0.2), dst[4]) // G plane
	require.Equal(t, float32(0), dst[8])   // B plane
}

func TestOverlay(t *testing.T) {
	f := NewFrame(200, 100)
	det := Detection{Label: "person", Confidence: 0.876, Box: image.Rect(20, 40, 120, 90)}
	s := telemetry.ObjectSighting{Label: "person", Confidence: 0.876, Distance: 1.234}

	require.Equal(t, "87.6% person at 1.23m", OverlayText(s))

	Overlay(f, []Detection{det}, []telemetry.ObjectSighting{s})
	i := (40*200 + 60) * 3
	require.Equal(t, []byte{255, 255, 255}, f.Color[i:i+3])
	inside := (60*200 + 60) * 3
	require.Equal(t, []byte{0, 0, 0}, f.Color[inside:inside+3])

	var lit int
	for y := 20; y < 40; y++ {
		for x := 20; x < 200; x++ {
			if f.Color[(y*200+x)*3] == 255 {
				lit++
			}
		}
	}
	require.Positive(t, lit, "caption pixels above the box")
}

type sayRecorder struct{ said []string }

func (s *sayRecorder) Say(text string) bool {
	s.said = append(s.said, text)
	return true
}

func TestNarrator(t *testing.T) {
	speech := &sayRecorder{}
	n := NewNarrator(speech, 2, 500*time.Millisecond)
	now := time.Unix(0, 0)
	n.now = func() time.Time { return now }

	require.True(t, n.Due())
	queued := n.Observe([]telemetry.ObjectSighting{
		{Label: "chair", Distance: 1.5},
		{Label: "wall", Distance: 2.5},
		{Label: "ghost", Distance: 0},
		{Label: "cup", Distance: 2},
	})
	require.Equal(t, 2, queued)
	require.Equal(t, []string{"chair detected at 1.50 meters.", "cup detected at 2.00 meters."}, speech.said)

	now = now.Add(100 * time.Millisecond)
	require.False(t, n.Due())
	now = now.Add(400 * time.Millisecond)
	require.True(t, n.Due())
}

func TestTrigger(t *testing.T) {
	var tr Trigger
	tr.OnMessage(telemetry.TopicObjectQuery, []byte("objects"))
	require.False(t, tr.Pending())

	tr.OnMessage(telemetry.TopicObjectQuery, []byte(" object\n"))
	require.True(t, tr.Pending())
	require.True(t, tr.Take())
	require.False(t, tr.Take())
}

type fakeDetector struct {
	dets  []Detection
	err   error
	calls int
}

func (d *fakeDetector) Detect(*Frame) ([]Detection, error) {
	d.calls++
	return d.dets, d.err
}

func (d *fakeDetector) Close() error { return nil }

type countSink struct{ frames int }

func (c *countSink) Write(*Frame) error { c.frames++; return nil }

func TestPipelineQuery(t *testing.T) {
	f := NewFrame(100, 100)
	f.Depth[50*100+50] = 1200

	det := &fakeDetector{dets: []Detection{{Label: "person", Confidence: 0.9, Box: image.Rect(40, 40, 60, 60)}}}
	pub := mqttx.NewLoopback()
	tr := &Trigger{}
	sink := &countSink{}
	p := &Pipeline{Detector: det, Trigger: tr, Pub: pub, Sink: sink}

	require.NoError(t, p.Step(f))
	require.Zero(t, det.calls)

	require.NoError(t, pub.Subscribe(telemetry.TopicObjectQuery, tr.OnMessage))
	require.NoError(t, pub.Publish(telemetry.TopicObjectQuery, "object"))
	require.NoError(t, p.Step(f))
	require.NoError(t, p.Step(f))

	require.Equal(t, 1, det.calls)
	require.Equal(t, 3, sink.frames)

	sent := pub.Sent()
	require.Equal(t, telemetry.TopicObjectResponse, sent[len(sent)-1].Topic)
	require.Equal(t, "detected 1 objects.; person at 1.20 meters", sent[len(sent)-1].Payload)
}

func TestPipelineQueryNothingSeen(t *testing.T) {
	pub := mqttx.NewLoopback()
	tr := &Trigger{}
	tr.Arm()
	p := &Pipeline{Detector: &fakeDetector{}, Trigger: tr, Pub: pub}

	require.NoError(t, p.Step(NewFrame(10, 10)))
	require.Empty(t, pub.Sent())
	require.False(t, tr.Pending())
}

func TestPipelineNarratesAndSurvivesDetectorErrors(t *testing.T) {
	f := NewFrame(100, 100)
	f.Depth[50*100+50] = 800

	speech := &sayRecorder{}
	n := NewNarrator(speech, 2, time.Hour)
	det := &fakeDetector{err: errors.New("cuda")}
	p := &Pipeline{Detector: det, Narrator: n}

	require.NoError(t, p.Step(f))
	require.Empty(t, speech.said)

	det.err = nil
	det.dets = []Detection{{Label: "dog", Confidence: 0.8, Box: image.Rect(45, 45, 55, 55)}}
	require.NoError(t, p.Step(f))
	require.Equal(t, []string{"dog detected at 0.80 meters."}, speech.said)

	require.NoError(t, p.Step(f))
	require.Len(t, speech.said, 1)
}

func TestPipelineRunEndsWithSource(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(nil), 2, 2, 0)
	p := &Pipeline{Source: src, Detector: &fakeDetector{}}
	require.ErrorIs(t, p.Run(context.Background()), io.EOF)
}

func TestStreamArgs(t *testing.T) {
	args := StreamArgs("rtsp://127.0.0.1:8554/live", 1280, 720, 30)
	require.Equal(t, "rtsp://127.0.0.1:8554/live", args[len(args)-1])
	require.Contains(t, args, "1280x720")
	require.Contains(t, args, "zerolatency")
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.names")
	require.NoError(t, os.WriteFile(path, []byte("person\nbicycle\n\ncar\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	require.Equal(t, []string{"person", "bicycle", "car"}, labels)
	require.Equal(t, "car", labelFor(labels, 2))
	require.Equal(t, "class 7", labelFor(labels, 7))
}

func TestONNXDetectorOpenFailureCleansUp(t *testing.T) {
	// onnxruntime is not initialized in tests, so allocation fails early.
	d := &ONNXDetector{size: 32, classes: 2, anchors: yoloAnchors(32)}

	var err error
	require.NotPanics(t, func() { err = d.open("missing.onnx", "images", "output0") })
	require.ErrorContains(t, err, "session options")
	require.NoError(t, d.Close())

	var none *ONNXDetector
	require.NoError(t, none.Close())
}
