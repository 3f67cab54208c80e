package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vg-go/pipeline"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/display"
	"github.com/khaledhikmat/vg-go/service/journal"
	"github.com/khaledhikmat/vg-go/service/lgr"
	"github.com/khaledhikmat/vg-go/service/perception"
	"github.com/khaledhikmat/vg-go/service/speech"
	"golang.org/x/xerrors"
)

type perceptionFactory func(name string, params config.PipelineParameters) (perception.IService, error)

// Reader recognizes printed text and reads it aloud.
func Reader(canxCtx context.Context, cfgSvc config.IService) error {
	return start(canxCtx, cfgSvc, config.ReaderPipelineName, func(_ string, params config.PipelineParameters) (perception.IService, error) {
		return perception.NewOCR(params)
	})
}

// Objects announces newly seen objects.
func Objects(canxCtx context.Context, cfgSvc config.IService) error {
	return start(canxCtx, cfgSvc, config.ObjectsPipelineName, perception.NewYolo)
}

// Cash announces banknote denominations.
func Cash(canxCtx context.Context, cfgSvc config.IService) error {
	return start(canxCtx, cfgSvc, config.CashPipelineName, perception.NewYolo)
}

func start(canxCtx context.Context, cfgSvc config.IService, name string, newPerception perceptionFactory) error {
	svcs, closeFn, err := buildServices(cfgSvc, name, newPerception)
	if err != nil {
		return err
	}
	defer closeFn()

	return run(canxCtx, svcs, name)
}

// buildServices constructs the engines for a pipeline. Missing models and
// an unusable synthesizer are fatal.
func buildServices(cfgSvc config.IService, name string, newPerception perceptionFactory) (pipeline.ServicesFactory, func(), error) {
	params := cfgSvc.GetPipelineParameters(name)
	var closers []func() error

	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				lgr.Logger.Warn(
					"error closing service",
					slog.String("pipeline", name),
					slog.Any("error", err),
				)
			}
		}
	}

	percSvc, err := newPerception(name, params)
	if err != nil {
		return pipeline.ServicesFactory{}, nil, xerrors.Errorf("loading %s perception: %w", name, err)
	}
	closers = append(closers, percSvc.Close)

	speechSvc, err := speech.NewEspeak(cfgSvc)
	if err != nil {
		closeFn()
		return pipeline.ServicesFactory{}, nil, xerrors.Errorf("initializing speech: %w", err)
	}
	closers = append(closers, speechSvc.Close)

	displaySvc, err := newDisplay(cfgSvc, params)
	if err != nil {
		closeFn()
		return pipeline.ServicesFactory{}, nil, xerrors.Errorf("initializing display: %w", err)
	}
	closers = append(closers, displaySvc.Close)

	journalSvc := journal.NewNoop()
	if path := cfgSvc.GetJournalPath(); path != "" {
		journalSvc, err = journal.NewSqlite(path)
		if err != nil {
			closeFn()
			return pipeline.ServicesFactory{}, nil, xerrors.Errorf("opening journal: %w", err)
		}
	}
	closers = append(closers, journalSvc.Close)

	return pipeline.ServicesFactory{
		CfgSvc:        cfgSvc,
		PerceptionSvc: percSvc,
		SpeechSvc:     speechSvc,
		DisplaySvc:    displaySvc,
		JournalSvc:    journalSvc,
	}, closeFn, nil
}

func newDisplay(cfgSvc config.IService, params config.PipelineParameters) (display.IService, error) {
	switch cfgSvc.GetDisplayType() {
	case config.DisplayWebsocket:
		return display.NewWebsocket(cfgSvc.GetDisplayAddress())
	case config.DisplayHeadless:
		return display.NewHeadless(), nil
	case config.DisplayWindow, "":
		return display.NewWindow(params.WindowTitle), nil
	default:
		return nil, xerrors.Errorf("unknown display type %q", cfgSvc.GetDisplayType())
	}
}
