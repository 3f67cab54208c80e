package pipeline

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/display"
	"github.com/khaledhikmat/vg-go/service/journal"
	"github.com/khaledhikmat/vg-go/service/perception"
	"github.com/khaledhikmat/vg-go/service/speech"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
)

const tracerName = "github.com/khaledhikmat/vg-go/pipeline"

// ServicesFactory carries the engines a pipeline runs with. They are built
// by the mode processor so tests can hand in fakes.
type ServicesFactory struct {
	CfgSvc        config.IService
	PerceptionSvc perception.IService
	SpeechSvc     speech.IService
	DisplaySvc    display.IService
	JournalSvc    journal.IService

	// Optional. Default to the wall clock and the global tracer provider.
	Clock  clock.Clock
	Tracer trace.Tracer
}

func (svcs ServicesFactory) clock() clock.Clock {
	if svcs.Clock != nil {
		return svcs.Clock
	}
	return clock.New()
}

func (svcs ServicesFactory) tracer() trace.Tracer {
	if svcs.Tracer != nil {
		return svcs.Tracer
	}
	return otel.Tracer(tracerName)
}

func (svcs ServicesFactory) journal() journal.IService {
	if svcs.JournalSvc != nil {
		return svcs.JournalSvc
	}
	return journal.NewNoop()
}

// FrameData is a decoded, rotated frame. The receiver owns Mat.
type FrameData struct {
	Mat       gocv.Mat
	Seq       int
	Timestamp time.Time
}
