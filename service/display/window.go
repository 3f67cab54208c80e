package display

import (
	"gocv.io/x/gocv"
)

const quitKey = 'q'

type windowService struct {
	window *gocv.Window
}

// NewWindow opens an on-screen window. Pressing q in it requests quit.
func NewWindow(title string) IService {
	return &windowService{
		window: gocv.NewWindow(title),
	}
}

func (svc *windowService) Show(frame gocv.Mat) error {
	svc.window.IMShow(frame)
	return nil
}

func (svc *windowService) QuitRequested() bool {
	return svc.window.WaitKey(1)&0xff == quitKey
}

func (svc *windowService) Close() error {
	svc.window.Close()
	return nil
}
