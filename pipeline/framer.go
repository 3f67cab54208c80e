package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/khaledhikmat/vg-go/mjpeg"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/lgr"
	"gocv.io/x/gocv"
)

// framer extracts frames from src, decodes and rotates them and hands them
// out in stream order. The returned error channel receives exactly one
// value once the framer is done: nil at end of stream or cancellation.
func framer(canxCtx context.Context, svcs ServicesFactory, rotation string, src io.Reader, errorStream chan interface{}, statsStream chan interface{}) (chan FrameData, chan error) {
	out := make(chan FrameData)
	done := make(chan error, 1)

	go func() {
		defer close(out)

		clk := svcs.clock()
		reader := mjpeg.NewReader(src, mjpeg.WithChunkSize(svcs.CfgSvc.GetStreamChunkSize()))

		var startTime = clk.Now()
		var frames = 0
		var decodeErrors = 0
		var result error

		defer func() {
			uptime := clk.Since(startTime)
			fps := 0
			if uptime.Seconds() > 0 {
				fps = int(float64(frames) / uptime.Seconds())
			}
			statsStream <- model.FramerStats{
				Name:         "mjpegFramer",
				Stream:       svcs.CfgSvc.GetStreamURL(),
				FPS:          fps,
				Frames:       frames,
				DecodeErrors: decodeErrors,
				BytesRead:    reader.BytesRead(),
				Uptime:       int64(uptime.Seconds()),
				Timestamp:    clk.Now().Unix(),
			}
			done <- result
		}()

		for {
			if canxCtx.Err() != nil {
				lgr.Logger.Info("mjpegFramer context cancelled")
				return
			}

			data, err := reader.Next()
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					lgr.Logger.Info("mjpegFramer stream ended")
				case canxCtx.Err() != nil:
					lgr.Logger.Info("mjpegFramer context cancelled while reading")
				default:
					result = err
				}
				if buffered := reader.Buffered(); buffered > 0 {
					lgr.Logger.Debug(
						"mjpegFramer discarding partial frame",
						slog.Int("bytes", buffered),
					)
				}
				return
			}

			img, err := gocv.IMDecode(data, gocv.IMReadColor)
			if err != nil || img.Empty() {
				decodeErrors++
				img.Close()
				errorStream <- model.GenError("mjpeg_framer",
					err,
					map[string]interface{}{
						"bytes": len(data),
					},
					"error decoding frame")
				continue
			}

			frames++
			rotateInPlace(&img, rotation)

			select {
			case <-canxCtx.Done():
				lgr.Logger.Info("mjpegFramer context cancelled while sending!!")
				img.Close()
				return
			case out <- FrameData{Mat: img, Seq: frames, Timestamp: clk.Now()}:
			}
		}
	}()

	return out, done
}

func rotateFlag(rotation string) (gocv.RotateFlag, bool) {
	switch rotation {
	case config.RotateClockwise:
		return gocv.Rotate90Clockwise, true
	case config.RotateCounterClockwise:
		return gocv.Rotate90CounterClockwise, true
	case config.Rotate180:
		return gocv.Rotate180Clockwise, true
	default:
		return 0, false
	}
}

func rotateInPlace(img *gocv.Mat, rotation string) {
	flag, ok := rotateFlag(rotation)
	if !ok {
		return
	}

	rotated := gocv.NewMat()
	gocv.Rotate(*img, &rotated, flag)
	img.Close()
	*img = rotated
}
