package display

import "gocv.io/x/gocv"

// IService renders annotated frames and relays the user's request to quit.
type IService interface {
	Show(frame gocv.Mat) error
	// QuitRequested polls for the quit signal. The window implementation
	// also pumps its event loop here, so it must be called once per frame.
	QuitRequested() bool
	Close() error
}
