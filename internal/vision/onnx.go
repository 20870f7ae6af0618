package vision

import (
	"fmt"
	"image"
	log "log/slog"
	"sync"

	onnx "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

const (
	defaultInputSize = 640
	nmsIoU           = 0.45
)

var (
	envOnce sync.Once
	envErr  error
)

// InitONNX loads the onnxruntime shared library once per process.
func InitONNX(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			onnx.SetSharedLibraryPath(libPath)
		}
		if err := onnx.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("init onnxruntime: %w", err)
		}
	})
	return envErr
}

// ONNXDetector runs a YOLOv8-style network exported to ONNX: one
// [1,3,S,S] RGB input in [0,1] and one [1,4+C,N] output of
// (cx, cy, w, h, class scores...) per anchor.
type ONNXDetector struct {
	mu        sync.Mutex
	session   *onnx.AdvancedSession
	options   *onnx.SessionOptions
	input     *onnx.Tensor[float32]
	output    *onnx.Tensor[float32]
	size      int
	classes   int
	anchors   int
	labels    []string
	threshold float32
}

func NewONNXDetector(modelPath string, labels []string, threshold float32) (*ONNXDetector, error) {
	inputs, outputs, err := onnx.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%s: model has no inputs or outputs", modelPath)
	}

	size := defaultInputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 {
		size = int(dims[2])
	}
	classes, anchors := len(labels), 0
	if dims := outputs[0].Dimensions; len(dims) == 3 && dims[1] > 4 && dims[2] > 0 {
		classes, anchors = int(dims[1])-4, int(dims[2])
	}
	if anchors == 0 {
		anchors = yoloAnchors(size)
	}
	if classes <= 0 {
		return nil, fmt.Errorf("%s: cannot infer class count", modelPath)
	}
	log.Info("Loaded detector", "model", modelPath, "input", inputs[0].Name, "size", size, "classes", classes, "anchors", anchors)

	d := &ONNXDetector{size: size, classes: classes, anchors: anchors, labels: labels, threshold: threshold}
	if err := d.open(modelPath, inputs[0].Name, outputs[0].Name); err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	return d, nil
}

// open allocates the tensors and the session. On error the caller closes
// whatever was allocated.
func (d *ONNXDetector) open(modelPath, input, output string) error {
	var err error
	if d.options, err = onnx.NewSessionOptions(); err != nil {
		return fmt.Errorf("session options: %w", err)
	}
	if d.input, err = onnx.NewEmptyTensor[float32](onnx.NewShape(1, 3, int64(d.size), int64(d.size))); err != nil {
		return fmt.Errorf("input tensor: %w", err)
	}
	if d.output, err = onnx.NewEmptyTensor[float32](onnx.NewShape(1, int64(4+d.classes), int64(d.anchors))); err != nil {
		return fmt.Errorf("output tensor: %w", err)
	}
	d.session, err = onnx.NewAdvancedSession(modelPath,
		[]string{input},
		[]string{output},
		[]onnx.ArbitraryTensor{d.input},
		[]onnx.ArbitraryTensor{d.output},
		d.options,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// yoloAnchors is the anchor count of a stride 8/16/32 head.
func yoloAnchors(size int) int {
	n := 0
	for _, s := range []int{8, 16, 32} {
		n += (size / s) * (size / s)
	}
	return n
}

func (d *ONNXDetector) Detect(f *Frame) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	preprocess(f, d.input.GetData(), d.size)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detector: %w", err)
	}

	dets := decode(d.output.GetData(), d.classes, d.anchors, d.threshold,
		float64(f.Width)/float64(d.size), float64(f.Height)/float64(d.size), f.Bounds())
	dets = nms(dets, nmsIoU)
	for i := range dets {
		dets[i].Label = labelFor(d.labels, dets[i].ClassID)
	}
	return dets, nil
}

func (d *ONNXDetector) Close() error {
	if d == nil {
		return nil
	}
	var err error
	if d.session != nil {
		err = multierr.Append(err, d.session.Destroy())
	}
	if d.input != nil {
		err = multierr.Append(err, d.input.Destroy())
	}
	if d.output != nil {
		err = multierr.Append(err, d.output.Destroy())
	}
	if d.options != nil {
		err = multierr.Append(err, d.options.Destroy())
	}
	return err
}

// preprocess resizes the BGR frame to size x size (nearest neighbour) into
// planar RGB scaled to [0,1].
func preprocess(f *Frame, dst []float32, size int) {
	plane := size * size
	for y := 0; y < size; y++ {
		sy := y * f.Height / size
		for x := 0; x < size; x++ {
			sx := x * f.Width / size
			i := (sy*f.Width + sx) * 3
			o := y*size + x
			dst[o] = float32(f.Color[i+2]) / 255
			dst[plane+o] = float32(f.Color[i+1]) / 255
			dst[2*plane+o] = float32(f.Color[i]) / 255
		}
	}
}

// decode turns a [4+classes, anchors] row-major output into boxes in frame
// coordinates.
func decode(out []float32, classes, anchors int, thresh float32, sx, sy float64, bounds image.Rectangle) []Detection {
	var dets []Detection
	for a := 0; a < anchors; a++ {
		best, score := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := out[(4+c)*anchors+a]; s > score {
				best, score = c, s
			}
		}
		if best < 0 || score < thresh {
			continue
		}

		cx := float64(out[a]) * sx
		cy := float64(out[anchors+a]) * sy
		w := float64(out[2*anchors+a]) * sx
		h := float64(out[3*anchors+a]) * sy
		box := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)).Intersect(bounds)
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{ClassID: best, Confidence: score, Box: box})
	}
	return dets
}
