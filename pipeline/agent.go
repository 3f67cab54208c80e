package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/vg-go/mjpeg"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/lgr"
	"golang.org/x/xerrors"
)

// Agent runs the named pipeline against the configured camera stream until
// the stream ends, the viewer quits or the context is cancelled. Failing to
// open the stream is returned right away and never retried. Per-frame
// failures go to errorStream and the loop moves on.
func Agent(canxCtx context.Context,
	svcs ServicesFactory,
	name string,
	errorStream chan interface{},
	statsStream chan interface{}) (result error) {
	runID := uuid.NewString()
	params := svcs.CfgSvc.GetPipelineParameters(name)
	clk := svcs.clock()

	lgr.Logger.Info(
		"agent starting....",
		slog.String("runID", runID),
		slog.String("pipeline", name),
		slog.String("stream", svcs.CfgSvc.GetStreamURL()),
		slog.String("perception", svcs.PerceptionSvc.Name()),
		slog.Bool("asyncSpeech", params.AsyncSpeech),
	)

	ctx, cancel := context.WithCancel(canxCtx)
	defer cancel()

	timeout := time.Duration(svcs.CfgSvc.GetStreamTimeout()) * time.Second
	body, err := mjpeg.Open(ctx, svcs.CfgSvc.GetStreamURL(), timeout)
	if err != nil {
		return xerrors.Errorf("opening stream: %w", err)
	}
	defer body.Close()

	startTime := clk.Now()

	d := &detector{
		svcs:        svcs,
		name:        name,
		params:      params,
		gate:        newGate(params),
		tracer:      svcs.tracer(),
		errorStream: errorStream,
	}
	// nothing is announced within the first interval
	d.gate.Reset(startTime)

	lgr.Logger.Info(
		"announcement gate ready",
		slog.String("pipeline", name),
		slog.String("policy", d.gate.Policy().String()),
		slog.Duration("minInterval", d.gate.MinInterval()),
	)

	d.announcer = newAnnouncer(ctx, svcs, name, runID, params, errorStream)

	frames, framerDone := framer(ctx, svcs, params.Rotation, body, errorStream, statsStream)

	defer func() {
		// queued utterances are spoken unless the run was cancelled
		d.announcer.close(statsStream)

		cancel()
		for f := range frames {
			f.Mat.Close()
		}
		if err := <-framerDone; err != nil && result == nil {
			result = xerrors.Errorf("reading stream: %w", err)
		}

		statsStream <- d.finalStats(runID, clk.Since(startTime), clk.Now())
	}()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"agent context cancelled",
				slog.String("pipeline", name),
			)
			return nil

		case frame, ok := <-frames:
			if !ok {
				lgr.Logger.Info(
					"agent frame stream closed",
					slog.String("pipeline", name),
				)
				return nil
			}

			d.process(ctx, frame)

			if err := svcs.DisplaySvc.Show(frame.Mat); err != nil {
				errorStream <- model.GenError("pipeline_agent",
					err,
					map[string]interface{}{
						"frame": frame.Seq,
					},
					"error displaying frame")
			}
			frame.Mat.Close()

			if svcs.DisplaySvc.QuitRequested() {
				lgr.Logger.Info(
					"quit requested",
					slog.String("pipeline", name),
				)
				return nil
			}
		}
	}
}
