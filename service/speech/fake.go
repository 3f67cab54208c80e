package speech

import (
	"context"
	"sync"
	"time"
)

// FakeService records utterances instead of playing them.
type FakeService struct {
	mu         sync.Mutex
	utterances []string
	delay      time.Duration
	err        error
	closed     bool
}

// NewFake returns a recorder. delay simulates playback time.
func NewFake(delay time.Duration, err error) *FakeService {
	return &FakeService{
		delay: delay,
		err:   err,
	}
}

func (svc *FakeService) Say(ctx context.Context, text string) error {
	if svc.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(svc.delay):
		}
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.utterances = append(svc.utterances, text)
	return svc.err
}

func (svc *FakeService) Utterances() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]string(nil), svc.utterances...)
}

func (svc *FakeService) Closed() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.closed
}

func (svc *FakeService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closed = true
	return nil
}
