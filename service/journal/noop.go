package journal

import "github.com/khaledhikmat/vg-go/model"

type noopService struct{}

// NewNoop discards everything. Used when no journal path is configured.
func NewNoop() IService {
	return noopService{}
}

func (noopService) Record(model.Announcement) error {
	return nil
}

func (noopService) Recent(int) ([]model.Announcement, error) {
	return nil, nil
}

func (noopService) Close() error {
	return nil
}
