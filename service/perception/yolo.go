package perception

import (
	"context"
	"fmt"
	"image"
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
	yoloInputSize  = 640
	yoloScoreFloor = float32(0.25)
	yoloNMSIoU     = float32(0.45)
)

type yoloService struct {
	name   string
	net    gocv.Net
	labels []string
	// gocv.Net is not safe for concurrent use
	mu sync.Mutex
}

type yoloCandidate struct {
	Rect    image.Rectangle
	ClassID int
	Score   float32
}

// NewYolo loads an ONNX export of a YOLO detector. Both the v5 layout
// [1, N, 5+C] and the v8/v11 layout [1, 4+C, N] are understood.
func NewYolo(name string, params config.PipelineParameters) (IService, error) {
	if _, err := os.Stat(params.ModelPath); err != nil {
		return nil, xerrors.Errorf("%s: %w", params.ModelPath, ErrModelNotFound)
	}

	var labels []string
	if params.LabelsPath != "" {
		var err error
		labels, err = loadLabels(params.LabelsPath)
		if err != nil {
			return nil, xerrors.Errorf("loading labels: %w", err)
		}
	}

	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		return nil, xerrors.Errorf("reading yolo model %s failed", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, xerrors.Errorf("setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, xerrors.Errorf("setting target: %w", err)
	}

	return &yoloService{
		name:   name,
		net:    net,
		labels: labels,
	}, nil
}

func (svc *yoloService) Detect(_ context.Context, frame gocv.Mat) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, xerrors.New("empty frame")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.net.SetInput(blob, "")

	output := svc.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, xerrors.Errorf("reading yolo output: %w", err)
	}

	candidates, err := parseYoloOutput(data, output.Size(), frame.Cols(), frame.Rows(), yoloScoreFloor)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Rect
		scores[i] = c.Score
	}

	keep := gocv.NMSBoxes(boxes, scores, yoloScoreFloor, yoloNMSIoU)

	detections := make([]model.Detection, 0, len(keep))
	for _, idx := range keep {
		c := candidates[idx]
		detections = append(detections, model.NewBoxDetection(c.Rect, svc.label(c.ClassID), c.Score))
	}

	sortByConfidence(detections)
	return detections, nil
}

func (svc *yoloService) Name() string {
	return svc.name
}

func (svc *yoloService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.net.Close()
	return nil
}

func (svc *yoloService) label(classID int) string {
	if classID >= 0 && classID < len(svc.labels) {
		return svc.labels[classID]
	}
	return fmt.Sprintf("class%d", classID)
}

// parseYoloOutput turns the raw output tensor into candidate boxes in frame
// coordinates. Coordinates in the tensor are in network input pixels.
func parseYoloOutput(data []float32, dims []int, frameW, frameH int, scoreFloor float32) ([]yoloCandidate, error) {
	if len(dims) != 3 {
		return nil, xerrors.Errorf("unexpected yolo output dims: %v", dims)
	}

	sx := float32(frameW) / yoloInputSize
	sy := float32(frameH) / yoloInputSize

	toRect := func(cx, cy, w, h float32) image.Rectangle {
		x := int((cx - w/2) * sx)
		y := int((cy - h/2) * sy)
		return image.Rect(x, y, x+int(w*sx), y+int(h*sy))
	}

	var candidates []yoloCandidate

	// v8/v11 exports put the channels first: [1, 4+C, N] with N >> C
	if dims[1] < dims[2] {
		channels, n := dims[1], dims[2]
		if channels < 5 || len(data) < channels*n {
			return nil, xerrors.Errorf("yolo output too short for dims %v", dims)
		}

		for i := 0; i < n; i++ {
			classID, score := -1, float32(0)
			for c := 4; c < channels; c++ {
				if s := data[c*n+i]; s > score {
					classID, score = c-4, s
				}
			}
			if classID < 0 || score < scoreFloor {
				continue
			}

			candidates = append(candidates, yoloCandidate{
				Rect:    toRect(data[i], data[n+i], data[2*n+i], data[3*n+i]),
				ClassID: classID,
				Score:   score,
			})
		}
		return candidates, nil
	}

	// v5 exports: [1, N, 5+C] with objectness at index 4
	n, stride := dims[1], dims[2]
	if stride < 6 || len(data) < n*stride {
		return nil, xerrors.Errorf("yolo output too short for dims %v", dims)
	}

	for i := 0; i < n; i++ {
		row := data[i*stride : (i+1)*stride]
		objectness := row[4]
		if objectness < scoreFloor {
			continue
		}

		classID, classScore := -1, float32(0)
		for j, s := range row[5:] {
			if s > classScore {
				classID, classScore = j, s
			}
		}

		score := objectness * classScore
		if classID < 0 || score < scoreFloor {
			continue
		}

		candidates = append(candidates, yoloCandidate{
			Rect:    toRect(row[0], row[1], row[2], row[3]),
			ClassID: classID,
			Score:   score,
		})
	}

	return candidates, nil
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		labels = append(labels, strings.TrimSpace(line))
	}
	return labels, nil
}

func sortByConfidence(detections []model.Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
}
