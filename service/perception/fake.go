package perception

import (
	"context"
	"sync"

	"github.com/khaledhikmat/vg-go/model"
	"gocv.io/x/gocv"
)

type fakeService struct {
	mu      sync.Mutex
	results [][]model.Detection
	errs    []error
	calls   int
}

// NewFake replays results, one entry per Detect call. Once the script runs
// out the last entry repeats. errs, when set, is consulted the same way.
func NewFake(results [][]model.Detection, errs ...error) IService {
	return &fakeService{
		results: results,
		errs:    errs,
	}
}

func (svc *fakeService) Detect(_ context.Context, _ gocv.Mat) ([]model.Detection, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	i := svc.calls
	svc.calls++

	if len(svc.errs) > 0 {
		if err := svc.errs[min(i, len(svc.errs)-1)]; err != nil {
			return nil, err
		}
	}

	if len(svc.results) == 0 {
		return nil, nil
	}
	return svc.results[min(i, len(svc.results)-1)], nil
}

func (svc *fakeService) Name() string {
	return "fake"
}

func (svc *fakeService) Close() error {
	return nil
}
