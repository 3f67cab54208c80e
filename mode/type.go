package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/lgr"
)

type Processor func(canxCtx context.Context, cfgSvc config.IService) error

func procStats(stats interface{}) {
	switch stats := stats.(type) {
	case model.FramerStats:
		lgr.Logger.Info(
			"framer stats",
			slog.String("name", stats.Name),
			slog.Int("frames", stats.Frames),
			slog.Int("decodeErrors", stats.DecodeErrors),
			slog.Uint64("bytesRead", stats.BytesRead),
			slog.Int("fps", stats.FPS),
			slog.Int64("uptime", stats.Uptime),
		)
	case model.PipelineStats:
		lgr.Logger.Info(
			"pipeline stats",
			slog.String("name", stats.Name),
			slog.String("runID", stats.RunID),
			slog.Int("frames", stats.Frames),
			slog.Int("inferences", stats.Inferences),
			slog.Int("errors", stats.Errors),
			slog.Int("announcements", stats.Announcements),
			slog.Int("suppressed", stats.Suppressed),
			slog.Int("fps", stats.FPS),
			slog.Float64("avgInferenceSec", stats.AvgInferenceSec),
			slog.Int64("uptime", stats.Uptime),
		)
	case model.SpeechStats:
		lgr.Logger.Info(
			"speech stats",
			slog.String("name", stats.Name),
			slog.Int("utterances", stats.Utterances),
			slog.Int("dropped", stats.Dropped),
			slog.Int("errors", stats.Errors),
		)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procError(err interface{}) {
	switch err := err.(type) {
	case model.CustomError:
		lgr.Logger.Error(
			err.Message,
			slog.String("processor", err.Processor),
			slog.Any("error", err.Inner),
			slog.Any("misc", err.Misc),
		)
	case error:
		lgr.Logger.Error(
			"pipeline error",
			slog.Any("error", err),
		)
	default:
		lgr.Logger.Error(
			"unknown error type",
			slog.Any("error", err),
		)
	}
}
