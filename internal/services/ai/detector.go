package ai

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"resistorserver/internal/config"
	"resistorserver/internal/logger"
	"resistorserver/internal/resistor"

	"gocv.io/x/gocv"
)

// ErrInvalidImage is returned when the uploaded bytes are not a decodable image.
var ErrInvalidImage = errors.New("invalid image")

// Mask R-CNN normalization (RGB order) the band model was trained with.
var (
	normMean = [3]float32{123.675, 116.28, 103.53}
	normStd  = [3]float32{58.395, 57.12, 57.375}
)

// Output layers of the exported model: dets is [1,N,5] (x1,y1,x2,y2,score),
// labels is [1,N] with the category of each row.
const (
	inputLayer  = "input"
	detsLayer   = "dets"
	labelsLayer = "labels"
)

// BandDetector finds resistor color bands in an encoded image.
type BandDetector interface {
	Detect(imageBytes []byte) ([]resistor.RawDetection, error)
	Close() error
}

// DetectorService detects color bands with an ONNX model loaded through gocv.
type DetectorService struct {
	session   *Session[gocv.Net]
	inputSize image.Point
	threshold float64
	logger    *logger.Logger
}

// NewDetectorService creates a detector; the model is loaded on first use.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	return &DetectorService{
		session:   NewSession(config.ModelPath, loadNet, closeNet),
		inputSize: image.Pt(config.ModelInputWidth, config.ModelInputHeight),
		threshold: config.DetectionThreshold,
		logger:    logger,
	}
}

// loadNet reads the ONNX model and selects the CPU backend.
func loadNet(modelPath string) (gocv.Net, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("failed to set preferable backend or target")
	}

	return net, nil
}

func closeNet(net gocv.Net) error {
	return net.Close()
}

// State reports the model lifecycle, e.g. for health checks.
func (s *DetectorService) State() State {
	return s.session.State()
}

// Warmup loads the model now and logs the outcome.
func (s *DetectorService) Warmup() error {
	if err := s.session.Warmup(); err != nil {
		s.logger.Warning("Could not initialize band detection network: %v", err)
		return err
	}
	s.logger.Info("Band detection network initialized successfully")
	return nil
}

// Close releases the model.
func (s *DetectorService) Close() error {
	return s.session.Close()
}

// Detect decodes the image, runs the model and returns band detections in
// the pixel coordinates of the original image.
func (s *DetectorService) Detect(imageBytes []byte) ([]resistor.RawDetection, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", ErrInvalidImage)
	}

	blob, err := s.preprocess(mat)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	var rows []detectionRow
	err = s.session.Use(func(net gocv.Net) error {
		net.SetInput(blob, inputLayer)
		outputs := net.ForwardLayers([]string{detsLayer, labelsLayer})
		defer func() {
			for i := range outputs {
				outputs[i].Close()
			}
		}()

		if len(outputs) != 2 {
			return fmt.Errorf("expected 2 model outputs, got %d", len(outputs))
		}
		var readErr error
		rows, readErr = readRows(outputs[0], outputs[1])
		return readErr
	})
	if err != nil {
		return nil, err
	}

	scaleX := float64(mat.Cols()) / float64(s.inputSize.X)
	scaleY := float64(mat.Rows()) / float64(s.inputSize.Y)
	detections, skipped := toDetections(rows, s.threshold, scaleX, scaleY)
	if skipped > 0 {
		s.logger.Warning("Skipped %d detections with unknown categories", skipped)
	}

	s.logger.Info("Detected %d bands", len(detections))
	return detections, nil
}

// preprocess converts BGR to RGB, resizes to the model input and normalizes
// every channel with the training mean/std, returning an NCHW blob.
func (s *DetectorService) preprocess(mat gocv.Mat) (gocv.Mat, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB); err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image to RGB: %v", err)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, s.inputSize, 0, 0, gocv.InterpolationLinear)

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	resized.ConvertTo(&floatMat, gocv.MatTypeCV32FC3)

	channels := gocv.Split(floatMat)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()
	if len(channels) != 3 {
		return gocv.Mat{}, fmt.Errorf("expected 3 channels, got %d", len(channels))
	}
	for i := range channels {
		channels[i].SubtractFloat(normMean[i])
		channels[i].DivideFloat(normStd[i])
	}

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Merge(channels, &normalized)

	return gocv.BlobFromImage(normalized, 1.0, s.inputSize, gocv.NewScalar(0, 0, 0, 0), false, false), nil
}

// detectionRow is one model output row in model input coordinates.
type detectionRow struct {
	box      [4]float32
	score    float32
	category int
}

func readRows(dets, labels gocv.Mat) ([]detectionRow, error) {
	n := dets.Total() / 5
	if labels.Total() < n {
		n = labels.Total()
	}
	if n == 0 {
		return nil, nil
	}

	categories, err := decodeLabels(labels.ToBytes(), labels.Total(), isFloatMat(labels.Type()))
	if err != nil {
		return nil, err
	}

	flatDets := dets.Reshape(1, n)
	defer flatDets.Close()

	rows := make([]detectionRow, n)
	for i := 0; i < n; i++ {
		r := detectionRow{score: flatDets.GetFloatAt(i, 4), category: categories[i]}
		for j := 0; j < 4; j++ {
			r.box[j] = flatDets.GetFloatAt(i, j)
		}
		rows[i] = r
	}
	return rows, nil
}

func isFloatMat(t gocv.MatType) bool {
	return t == gocv.MatTypeCV32F || t == gocv.MatTypeCV64F
}

// decodeLabels reads total label values from the raw bytes of the labels
// output. Exporters emit int32, int64, float32 or float64 labels; the element
// width is derived from the buffer size.
func decodeLabels(data []byte, total int, isFloat bool) ([]int, error) {
	if total <= 0 {
		return nil, nil
	}
	if len(data)%total != 0 {
		return nil, fmt.Errorf("labels buffer of %d bytes does not hold %d values", len(data), total)
	}

	width := len(data) / total
	labels := make([]int, total)
	for i := range labels {
		b := data[i*width : (i+1)*width]
		switch {
		case isFloat && width == 4:
			labels[i] = int(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case isFloat && width == 8:
			labels[i] = int(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		case width == 4:
			labels[i] = int(int32(binary.LittleEndian.Uint32(b)))
		case width == 8:
			labels[i] = int(int64(binary.LittleEndian.Uint64(b)))
		default:
			return nil, fmt.Errorf("unsupported label width of %d bytes", width)
		}
	}
	return labels, nil
}

// toDetections keeps rows scoring at least threshold and scales their boxes
// back to the source image. Rows with unknown categories are counted in skipped.
func toDetections(rows []detectionRow, threshold, scaleX, scaleY float64) (detections []resistor.RawDetection, skipped int) {
	for _, r := range rows {
		if float64(r.score) < threshold {
			continue
		}
		c, err := resistor.ColorFromCategory(r.category)
		if err != nil {
			skipped++
			continue
		}
		detections = append(detections, resistor.RawDetection{
			Color: c,
			BBox: resistor.BBox{
				X1: float64(r.box[0]) * scaleX,
				Y1: float64(r.box[1]) * scaleY,
				X2: float64(r.box[2]) * scaleX,
				Y2: float64(r.box[3]) * scaleY,
			},
			Confidence: float64(r.score),
		})
	}
	return detections, skipped
}

// bandColors are the colors boxes are drawn with, indexed by resistor.Color.
var bandColors = [resistor.NumColors]color.RGBA{
	resistor.Black:      {R: 40, G: 40, B: 40},
	resistor.Blue:       {R: 30, G: 60, B: 230},
	resistor.Brown:      {R: 140, G: 80, B: 20},
	resistor.Green:      {R: 30, G: 180, B: 60},
	resistor.Orange:     {R: 250, G: 140, B: 0},
	resistor.Red:        {R: 230, G: 20, B: 20},
	resistor.SideGold:   {R: 212, G: 175, B: 55},
	resistor.SideSilver: {R: 192, G: 192, B: 192},
	resistor.Yellow:     {R: 240, G: 230, B: 20},
}

// DrawBands draws the detected bands with their color names on the image.
func (s *DetectorService) DrawBands(detections []resistor.RawDetection, img []byte) ([]byte, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	for _, d := range detections {
		c := color.RGBA{R: 255, A: 0}
		if d.Color.Valid() {
			c = bandColors[d.Color]
		}
		rect := image.Rect(int(d.BBox.X1), int(d.BBox.Y1), int(d.BBox.X2), int(d.BBox.Y2))
		if err := gocv.Rectangle(&mat, rect, c, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s (%.2f)", d.Color, d.Confidence)
		pt := image.Pt(int(d.BBox.X1), int(d.BBox.Y1)-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.4, c, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		s.logger.Error("Failed to encode image: %v", err)
		return nil, err
	}
	defer buf.Close()
	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())

	return finalImage, nil
}
