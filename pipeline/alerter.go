package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/lgr"
	"github.com/khaledhikmat/vg-go/service/speech"
	"gocv.io/x/gocv"
)

const announcementsLogName = "announcements.log"

// announcer carries out an accepted announcement: speech, journal entry,
// announcements log line and optional snapshot.
type announcer struct {
	svcs        ServicesFactory
	name        string
	runID       string
	params      config.PipelineParameters
	errorStream chan interface{}

	// set only when speech is asynchronous
	queue *speech.Queue
	log   io.WriteCloser
}

func newAnnouncer(canxCtx context.Context, svcs ServicesFactory, name, runID string, params config.PipelineParameters, errorStream chan interface{}) *announcer {
	a := &announcer{
		svcs:        svcs,
		name:        name,
		runID:       runID,
		params:      params,
		errorStream: errorStream,
	}

	if params.AsyncSpeech {
		a.queue = speech.NewQueue(canxCtx, svcs.SpeechSvc, svcs.CfgSvc.GetSpeechQueueSize())
	}

	if folder := svcs.CfgSvc.GetLogFolder(); folder != "" {
		a.log = lgr.RotatingFile(folder, announcementsLogName)
	}

	return a
}

func (a *announcer) announce(canxCtx context.Context, frame gocv.Mat, label, text string, confidence float32, at time.Time) model.Announcement {
	announcement := model.Announcement{
		ID:         uuid.NewString(),
		RunID:      a.runID,
		Pipeline:   a.name,
		Label:      label,
		Text:       text,
		Confidence: confidence,
		Timestamp:  at,
	}

	lgr.Logger.Info(
		"announcing",
		slog.String("pipeline", a.name),
		slog.String("label", label),
		slog.String("text", text),
		slog.Float64("confidence", float64(confidence)),
	)

	a.speak(canxCtx, text)

	if err := a.svcs.journal().Record(announcement); err != nil {
		a.errorStream <- model.GenError("pipeline_announcer",
			err,
			map[string]interface{}{
				"announcement": announcement.ID,
			},
			"error recording announcement")
	}

	a.writeLog(announcement)
	a.snapshot(frame, announcement)

	return announcement
}

func (a *announcer) speak(canxCtx context.Context, text string) {
	if a.queue != nil {
		a.queue.Enqueue(text)
		return
	}

	// synchronous: the frame loop waits for playback
	if err := a.svcs.SpeechSvc.Say(canxCtx, text); err != nil && canxCtx.Err() == nil {
		a.errorStream <- model.GenError("pipeline_announcer",
			err,
			map[string]interface{}{
				"text": text,
			},
			"error speaking")
	}
}

func (a *announcer) writeLog(announcement model.Announcement) {
	if a.log == nil {
		return
	}

	data, err := json.Marshal(announcement)
	if err != nil {
		lgr.Logger.Error("error marshaling announcement", slog.Any("error", err))
		return
	}

	if _, err := a.log.Write(append(data, '\n')); err != nil {
		lgr.Logger.Error("error writing to announcements log", slog.Any("error", err))
	}
}

func (a *announcer) snapshot(frame gocv.Mat, announcement model.Announcement) {
	folder := a.svcs.CfgSvc.GetSnapshotsFolder()
	if folder == "" || frame.Empty() {
		return
	}

	path := filepath.Join(folder, fmt.Sprintf("%s_%s_%d.jpg", a.name, announcement.ID, announcement.Timestamp.Unix()))
	if ok := gocv.IMWrite(path, frame); !ok {
		a.errorStream <- model.GenError("pipeline_announcer",
			nil,
			map[string]interface{}{
				"path": path,
			},
			"error writing snapshot")
	}
}

// close waits for queued utterances and reports the queue stats.
func (a *announcer) close(statsStream chan interface{}) {
	if a.queue != nil {
		a.queue.Close()
		statsStream <- a.queue.Stats()
	}
	if a.log != nil {
		a.log.Close()
	}
}
