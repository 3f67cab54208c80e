package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vg-go/pipeline"
	"github.com/khaledhikmat/vg-go/service/lgr"
)

// run drives one pipeline agent, draining its error and stats streams, and
// waits a bounded time for it to wind down once it stops or is cancelled.
func run(canxCtx context.Context, svcs pipeline.ServicesFactory, name string) error {
	errorStream := make(chan interface{})
	statsStream := make(chan interface{})

	agentCanxCtx, agentCanxFn := context.WithCancel(canxCtx)
	defer agentCanxFn()

	agentResult := make(chan error, 1)
	go func() {
		agentResult <- pipeline.Agent(agentCanxCtx, svcs, name, errorStream, statsStream)
	}()

	var result error

	// Wait for cancellation, agent exit, stats or errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"mode processor context cancelled",
				slog.String("pipeline", name),
			)
			goto resume

		case result = <-agentResult:
			lgr.Logger.Info(
				"pipeline agent exited",
				slog.String("pipeline", name),
				slog.Any("error", result),
			)
			return result

		case e := <-errorStream:
			procError(e)

		case s := <-statsStream:
			procStats(s)
		}
	}

	// Keep draining while the agent reports its final stats
resume:
	agentCanxFn()

	lgr.Logger.Info(
		"mode processor is waiting for the agent to exit",
		slog.String("pipeline", name),
	)

	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"mode processor shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)
			return nil

		case result = <-agentResult:
			return result

		case e := <-errorStream:
			procError(e)

		case s := <-statsStream:
			procStats(s)
		}
	}
}
