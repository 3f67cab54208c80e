package display

import (
	"sync/atomic"

	"gocv.io/x/gocv"
)

// HeadlessService renders nothing. Quit can be requested programmatically.
type HeadlessService struct {
	frames atomic.Int64
	quit   atomic.Bool
}

func NewHeadless() *HeadlessService {
	return &HeadlessService{}
}

func (svc *HeadlessService) Show(_ gocv.Mat) error {
	svc.frames.Add(1)
	return nil
}

func (svc *HeadlessService) QuitRequested() bool {
	return svc.quit.Load()
}

// RequestQuit makes the next QuitRequested call report true.
func (svc *HeadlessService) RequestQuit() {
	svc.quit.Store(true)
}

// Frames reports how many frames were shown.
func (svc *HeadlessService) Frames() int64 {
	return svc.frames.Load()
}

func (svc *HeadlessService) Close() error {
	return nil
}
