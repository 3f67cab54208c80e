package perception

import (
	"context"
	"errors"

	"github.com/khaledhikmat/vg-go/model"
	"gocv.io/x/gocv"
)

// ErrModelNotFound is returned when a model artifact is missing at startup.
var ErrModelNotFound = errors.New("perception: model file not found")

// IService runs a pretrained model on a decoded BGR frame. Object detectors
// return detections by descending confidence, text recognizers in reading
// order. Thresholds are applied by callers.
type IService interface {
	Detect(ctx context.Context, frame gocv.Mat) ([]model.Detection, error)
	Name() string
	Close() error
}
