package pipeline

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/khaledhikmat/vg-go/gate"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
)

var overlayColor = color.RGBA{G: 255, A: 255}

// detector runs perception on each frame, offers what it finds to the
// gate and draws the overlays. It is driven by a single goroutine.
type detector struct {
	svcs        ServicesFactory
	name        string
	params      config.PipelineParameters
	gate        *gate.Gate
	announcer   *announcer
	tracer      trace.Tracer
	errorStream chan interface{}

	// last perception results, redrawn on frames that skip perception
	lastDrawn []model.Detection

	stats              model.PipelineStats
	totalInferenceTime time.Duration
}

func newGate(params config.PipelineParameters) *gate.Gate {
	policy := gate.IntervalOnly
	if params.Novelty {
		policy = gate.IntervalAndNovelty
	}
	return gate.New(policy, time.Duration(params.MinInterval)*time.Second)
}

func (d *detector) process(canxCtx context.Context, frame FrameData) {
	d.stats.Frames++
	now := d.svcs.clock().Now()

	if d.params.GatePerception {
		d.processGated(canxCtx, frame, now)
		return
	}

	detections, ok := d.detect(canxCtx, frame)
	if !ok {
		return
	}

	v := selectDetections(d.params, detections)
	draw(&frame.Mat, v.Draw)

	for _, c := range v.Candidates {
		if !d.gate.Allow(c.Label, now) {
			d.stats.Suppressed++
			continue
		}
		d.announcer.announce(canxCtx, frame.Mat, c.Label, message(d.params.MessageFormat, c.Label), c.Confidence, now)
		d.stats.Announcements++
	}
}

// processGated runs perception only when the interval has elapsed and
// speaks everything it recognized as one sentence.
func (d *detector) processGated(canxCtx context.Context, frame FrameData, now time.Time) {
	if d.gate.Allow("", now) {
		if detections, ok := d.detect(canxCtx, frame); ok {
			d.lastDrawn = detections
			if text := sentence(detections); text != "" {
				draw(&frame.Mat, d.lastDrawn)
				d.announcer.announce(canxCtx, frame.Mat, text, message(d.params.MessageFormat, text), meanConfidence(detections), now)
				d.stats.Announcements++
				return
			}
		}
	}

	draw(&frame.Mat, d.lastDrawn)
}

func (d *detector) detect(canxCtx context.Context, frame FrameData) ([]model.Detection, bool) {
	ctx, span := d.tracer.Start(canxCtx, "perception.detect",
		trace.WithAttributes(
			attribute.String("pipeline", d.name),
			attribute.String("model", d.svcs.PerceptionSvc.Name()),
			attribute.Int("frame", frame.Seq),
		),
	)
	defer span.End()

	clk := d.svcs.clock()
	start := clk.Now()
	detections, err := d.svcs.PerceptionSvc.Detect(ctx, frame.Mat)
	d.totalInferenceTime += clk.Since(start)
	d.stats.Inferences++

	if err != nil {
		d.stats.Errors++
		span.RecordError(err)
		span.SetStatus(codes.Error, "perception failed")
		d.errorStream <- model.GenError("pipeline_detector",
			err,
			map[string]interface{}{
				"pipeline": d.name,
				"frame":    frame.Seq,
			},
			"error running perception")
		return nil, false
	}

	span.SetAttributes(attribute.Int("detections", len(detections)))
	return detections, true
}

func (d *detector) finalStats(runID string, uptime time.Duration, now time.Time) model.PipelineStats {
	s := d.stats
	s.Name = d.name
	s.RunID = runID
	s.Uptime = int64(uptime.Seconds())
	s.Timestamp = now.Unix()
	if uptime.Seconds() > 0 {
		s.FPS = int(float64(s.Frames) / uptime.Seconds())
	}
	if s.Inferences > 0 {
		s.AvgInferenceSec = d.totalInferenceTime.Seconds() / float64(s.Inferences)
	}
	return s
}

// draw outlines each detection and writes its label and confidence above it.
func draw(img *gocv.Mat, detections []model.Detection) {
	if img.Empty() {
		return
	}

	for _, det := range detections {
		if len(det.Region) > 0 && !isAxisAligned(det) {
			pts := gocv.NewPointsVectorFromPoints([][]image.Point{det.Region})
			gocv.Polylines(img, pts, true, overlayColor, 2)
			pts.Close()
		} else {
			gocv.Rectangle(img, det.Box, overlayColor, 2)
		}

		origin := image.Pt(det.Box.Min.X, det.Box.Min.Y-10)
		gocv.PutText(img, caption(det), origin, gocv.FontHersheySimplex, 0.5, overlayColor, 2)
	}
}

func isAxisAligned(det model.Detection) bool {
	return len(det.Region) == 4 &&
		det.Region[0] == det.Box.Min &&
		det.Region[2] == det.Box.Max
}
