package perception

import (
	"context"
	"image"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const (
	eastInputSize      = 320
	eastScoreThreshold = float32(0.5)
	eastNMSThreshold   = float32(0.4)
	crnnInputWidth     = 100
	crnnInputHeight    = 32
	crnnAlphabet       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var eastOutputs = []string{
	"feature_fusion/Conv_7/Sigmoid",
	"feature_fusion/concat_3",
}

type ocrService struct {
	detector   gocv.Net
	recognizer gocv.Net
	mu         sync.Mutex
}

type textBox struct {
	Rect  image.Rectangle
	Score float32
}

// NewOCR loads an EAST text detector (params.ModelPath) and a CRNN text
// recognizer (params.RecognizerPath).
func NewOCR(params config.PipelineParameters) (IService, error) {
	for _, path := range []string{params.ModelPath, params.RecognizerPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, xerrors.Errorf("%s: %w", path, ErrModelNotFound)
		}
	}

	detector := gocv.ReadNet(params.ModelPath, "")
	if detector.Empty() {
		return nil, xerrors.Errorf("reading text detector %s failed", params.ModelPath)
	}

	recognizer := gocv.ReadNet(params.RecognizerPath, "")
	if recognizer.Empty() {
		detector.Close()
		return nil, xerrors.Errorf("reading text recognizer %s failed", params.RecognizerPath)
	}

	return &ocrService{
		detector:   detector,
		recognizer: recognizer,
	}, nil
}

func (svc *ocrService) Detect(ctx context.Context, frame gocv.Mat) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, xerrors.New("empty frame")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	boxes, err := svc.detectText(frame)
	if err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())

	var detections []model.Detection
	for _, box := range boxes {
		if ctx.Err() != nil {
			return detections, ctx.Err()
		}

		rect := box.Rect.Intersect(bounds)
		if rect.Dx() < 2 || rect.Dy() < 2 {
			continue
		}

		text, confidence, err := svc.recognize(gray, rect)
		if err != nil {
			return detections, err
		}
		if text == "" {
			continue
		}

		detections = append(detections, model.NewBoxDetection(rect, text, confidence))
	}

	sortByReadingOrder(detections)
	return detections, nil
}

func (svc *ocrService) Name() string {
	return config.ReaderPipelineName
}

func (svc *ocrService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.detector.Close()
	svc.recognizer.Close()
	return nil
}

func (svc *ocrService) detectText(frame gocv.Mat) ([]textBox, error) {
	blob := gocv.BlobFromImage(frame, 1.0, image.Pt(eastInputSize, eastInputSize), gocv.NewScalar(123.68, 116.78, 103.94, 0), true, false)
	defer blob.Close()

	svc.detector.SetInput(blob, "")

	outputs := svc.detector.ForwardLayers(eastOutputs)
	defer func() {
		for _, o := range outputs {
			o.Close()
		}
	}()

	if len(outputs) != 2 {
		return nil, xerrors.Errorf("unexpected text detector outputs: %d", len(outputs))
	}

	dims := outputs[0].Size()
	if len(dims) != 4 {
		return nil, xerrors.Errorf("unexpected text score dims: %v", dims)
	}

	scores, err := outputs[0].DataPtrFloat32()
	if err != nil {
		return nil, xerrors.Errorf("reading text scores: %w", err)
	}
	geometry, err := outputs[1].DataPtrFloat32()
	if err != nil {
		return nil, xerrors.Errorf("reading text geometry: %w", err)
	}

	boxes := decodeEAST(scores, geometry, dims[2], dims[3], eastScoreThreshold)
	if len(boxes) == 0 {
		return nil, nil
	}

	sx := float64(frame.Cols()) / eastInputSize
	sy := float64(frame.Rows()) / eastInputSize

	rects := make([]image.Rectangle, len(boxes))
	confidences := make([]float32, len(boxes))
	for i, b := range boxes {
		rects[i] = image.Rect(
			int(float64(b.Rect.Min.X)*sx), int(float64(b.Rect.Min.Y)*sy),
			int(float64(b.Rect.Max.X)*sx), int(float64(b.Rect.Max.Y)*sy),
		)
		confidences[i] = b.Score
	}

	keep := gocv.NMSBoxes(rects, confidences, eastScoreThreshold, eastNMSThreshold)

	result := make([]textBox, 0, len(keep))
	for _, idx := range keep {
		result = append(result, textBox{Rect: rects[idx], Score: confidences[idx]})
	}
	return result, nil
}

func (svc *ocrService) recognize(gray gocv.Mat, rect image.Rectangle) (string, float32, error) {
	roi := gray.Region(rect)
	defer roi.Close()

	blob := gocv.BlobFromImage(roi, 1.0/127.5, image.Pt(crnnInputWidth, crnnInputHeight), gocv.NewScalar(127.5, 0, 0, 0), false, false)
	defer blob.Close()

	svc.recognizer.SetInput(blob, "")

	output := svc.recognizer.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return "", 0, xerrors.Errorf("unexpected text recognizer dims: %v", dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return "", 0, xerrors.Errorf("reading text recognizer output: %w", err)
	}

	text, confidence := ctcGreedyDecode(data, dims[0], dims[2], crnnAlphabet)
	return text, confidence, nil
}

// decodeEAST reads the EAST score map and geometry into axis-aligned boxes
// in network input coordinates. Each map cell covers 4x4 input pixels.
func decodeEAST(scores, geometry []float32, height, width int, threshold float32) []textBox {
	area := height * width
	if len(scores) < area || len(geometry) < 5*area {
		return nil
	}

	var boxes []textBox
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			score := scores[i]
			if score < threshold {
				continue
			}

			top := float64(geometry[i])
			right := float64(geometry[area+i])
			bottom := float64(geometry[2*area+i])
			left := float64(geometry[3*area+i])
			angle := float64(geometry[4*area+i])

			cos, sin := math.Cos(angle), math.Sin(angle)
			h := top + bottom
			w := right + left

			offsetX, offsetY := float64(x*4), float64(y*4)
			endX := offsetX + cos*right + sin*bottom
			endY := offsetY - sin*right + cos*bottom

			boxes = append(boxes, textBox{
				Rect:  image.Rect(int(endX-w), int(endY-h), int(endX), int(endY)),
				Score: score,
			})
		}
	}

	return boxes
}

// ctcGreedyDecode collapses the per-step argmax of a [steps, 1, classes]
// tensor into text. Class 0 is the CTC blank. The confidence is the mean
// softmax probability of the kept characters.
func ctcGreedyDecode(data []float32, steps, classes int, alphabet string) (string, float32) {
	if steps <= 0 || classes <= 1 || len(data) < steps*classes {
		return "", 0
	}

	var sb strings.Builder
	var total float64
	var kept int
	prev := 0

	for t := 0; t < steps; t++ {
		row := data[t*classes : (t+1)*classes]

		best := 0
		for c := 1; c < classes; c++ {
			if row[c] > row[best] {
				best = c
			}
		}

		if best != 0 && best != prev && best-1 < len(alphabet) {
			sb.WriteByte(alphabet[best-1])
			total += softmaxAt(row, best)
			kept++
		}
		prev = best
	}

	if kept == 0 {
		return "", 0
	}
	return sb.String(), float32(total / float64(kept))
}

func softmaxAt(row []float32, idx int) float64 {
	maxV := float64(row[0])
	for _, v := range row[1:] {
		maxV = math.Max(maxV, float64(v))
	}

	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - maxV)
	}
	return math.Exp(float64(row[idx])-maxV) / sum
}

// sortByReadingOrder orders text spans line by line, left to right. Spans
// are taken top to bottom; one whose vertical center lies within half the
// height of the line's first span joins that line.
func sortByReadingOrder(detections []model.Detection) {
	if len(detections) < 2 {
		return
	}

	centerY := func(d model.Detection) int {
		return (d.Box.Min.Y + d.Box.Max.Y) / 2
	}

	byY := append([]model.Detection(nil), detections...)
	sort.SliceStable(byY, func(i, j int) bool {
		return centerY(byY[i]) < centerY(byY[j])
	})

	var lines [][]model.Detection
	lineCenter, lineHalf := 0, 0
	for _, d := range byY {
		c := centerY(d)
		if len(lines) == 0 || c-lineCenter > lineHalf {
			lines = append(lines, nil)
			lineCenter, lineHalf = c, d.Box.Dy()/2
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], d)
	}

	n := 0
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Box.Min.X < line[j].Box.Min.X
		})
		n += copy(detections[n:], line)
	}
}
