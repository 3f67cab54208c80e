package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/khaledhikmat/vg-go/mode"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/lgr"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	config.ReaderPipelineName:  mode.Reader,
	config.ObjectsPipelineName: mode.Objects,
	config.CashPipelineName:    mode.Cash,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded", slog.Any("error", lgr.WithStack(err)))
		}
	}

	modeType := config.ObjectsPipelineName
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		os.Exit(2)
	}

	// Environment overrides on top of the built-in defaults
	cfgSvc := config.NewEnvVars(config.NewHardCoded())
	lgr.Init(cfgSvc.GetLogFolder())

	// Hook up a signal handler to cancel the context
	// once the logger is final
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	lgr.Logger.Info(
		"vision goggles starting",
		slog.String("mode", modeType),
		slog.String("stream", cfgSvc.GetStreamURL()),
		slog.String("display", cfgSvc.GetDisplayType()),
	)

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, cfgSvc)
	}()

	exitCode := 0

	// Wait for cancellation or mode proc
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"vision goggles context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				exitCode = 1
				lgr.Logger.Error(
					"mode processor exited",
					slog.Any("error", lgr.WithStack(err)),
				)
			}
			canxFn()
			os.Exit(exitCode)
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	lgr.Logger.Info(
		"vision goggles is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration or for the mode processor to return
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"vision goggles shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)
			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Error(
					"mode processor exited",
					slog.Any("error", lgr.WithStack(err)),
				)
			}
			return
		}
	}
}
