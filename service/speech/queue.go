package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/service/lgr"
)

type utterance struct {
	ID   string
	Text string
}

// Queue speaks utterances one after another on a single worker so the
// caller never waits for playback and the engine is never used from two
// goroutines at once.
type Queue struct {
	svc       IService
	in        chan utterance
	wg        sync.WaitGroup
	closeOnce sync.Once
	startTime time.Time

	mu    sync.Mutex
	stats model.SpeechStats
}

// NewQueue starts the worker. Cancelling ctx aborts the utterance being
// played; queued ones are then dropped.
func NewQueue(ctx context.Context, svc IService, size int) *Queue {
	if size <= 0 {
		size = 1
	}

	q := &Queue{
		svc:       svc,
		in:        make(chan utterance, size),
		startTime: time.Now(),
		stats: model.SpeechStats{
			Name: "speechQueue",
		},
	}

	q.wg.Add(1)
	go q.worker(ctx)

	return q
}

// Enqueue hands text to the worker without blocking. It reports false when
// the queue is full and the utterance was dropped.
func (q *Queue) Enqueue(text string) bool {
	u := utterance{
		ID:   uuid.NewString(),
		Text: text,
	}

	select {
	case q.in <- u:
		return true
	default:
		q.mu.Lock()
		q.stats.Dropped++
		q.mu.Unlock()
		lgr.Logger.Warn(
			"speech queue full, dropping utterance",
			slog.String("utterance", u.ID),
			slog.String("text", text),
		)
		return false
	}
}

// Close stops accepting utterances, lets the worker finish what is queued
// and waits for it.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.in)
	})
	q.wg.Wait()
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() model.SpeechStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stats
	s.Uptime = int64(time.Since(q.startTime).Seconds())
	s.Timestamp = time.Now().Unix()
	return s
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for u := range q.in {
		if ctx.Err() != nil {
			q.mu.Lock()
			q.stats.Dropped++
			q.mu.Unlock()
			continue
		}

		lgr.Logger.Debug(
			"speaking",
			slog.String("utterance", u.ID),
			slog.String("text", u.Text),
		)

		err := q.svc.Say(ctx, u.Text)

		q.mu.Lock()
		if err != nil {
			q.stats.Errors++
		} else {
			q.stats.Utterances++
		}
		q.mu.Unlock()

		if err != nil {
			lgr.Logger.Error(
				"speech failed",
				slog.String("utterance", u.ID),
				slog.Any("error", err),
			)
		}
	}

	lgr.Logger.Info("speech queue drained")
}
