package model

import (
	"fmt"
	"image"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Detection is one object or text span found in a frame.
// Region is the bounding polygon in frame pixels (four corners for boxes),
// Box its axis-aligned bounds.
type Detection struct {
	Region     []image.Point   `json:"region"`
	Box        image.Rectangle `json:"box"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
}

func NewBoxDetection(box image.Rectangle, label string, confidence float32) Detection {
	return Detection{
		Region: []image.Point{
			box.Min,
			image.Pt(box.Max.X, box.Min.Y),
			box.Max,
			image.Pt(box.Min.X, box.Max.Y),
		},
		Box:        box,
		Label:      label,
		Confidence: confidence,
	}
}

// Announcement is an accepted, spoken finding.
type Announcement struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId"`
	Pipeline   string    `json:"pipeline"`
	Label      string    `json:"label"`
	Text       string    `json:"text"`
	Confidence float32   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

type FramerStats struct {
	Name         string `json:"name"`
	Stream       string `json:"stream"`
	FPS          int    `json:"fps"`
	Frames       int    `json:"frames"`
	DecodeErrors int    `json:"decodeErrors"`
	BytesRead    uint64 `json:"bytesRead"`
	Uptime       int64  `json:"uptime"`
	Timestamp    int64  `json:"timestamp"`
}

type PipelineStats struct {
	Name            string  `json:"name"`
	RunID           string  `json:"runId"`
	Frames          int     `json:"frames"`
	Inferences      int     `json:"inferences"`
	Errors          int     `json:"errors"`
	Announcements   int     `json:"announcements"`
	Suppressed      int     `json:"suppressed"`
	FPS             int     `json:"fps"`
	Uptime          int64   `json:"uptime"`
	AvgInferenceSec float64 `json:"avgInferenceSec"`
	Timestamp       int64   `json:"timestamp"`
}

type SpeechStats struct {
	Name       string `json:"name"`
	Utterances int    `json:"utterances"`
	Dropped    int    `json:"dropped"`
	Errors     int    `json:"errors"`
	Uptime     int64  `json:"uptime"`
	Timestamp  int64  `json:"timestamp"`
}
