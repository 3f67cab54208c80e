package speech

import (
	"bytes"
	"context"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/khaledhikmat/vg-go/service/config"
	"golang.org/x/xerrors"
)

type espeakService struct {
	command string
	voice   string
	rate    int
	volume  float64

	// one utterance at a time; the speaker is process-wide
	mu         sync.Mutex
	sampleRate beep.SampleRate
}

// NewEspeak synthesizes with an espeak-compatible command that can write WAV
// to stdout and plays the result through the default audio device. Rate
// and volume are fixed at construction.
func NewEspeak(cfgSvc config.IService) (IService, error) {
	command := cfgSvc.GetSpeechCommand()
	if _, err := exec.LookPath(command); err != nil {
		return nil, xerrors.Errorf("speech synthesizer %q: %w", command, err)
	}

	return &espeakService{
		command: command,
		voice:   cfgSvc.GetSpeechVoice(),
		rate:    cfgSvc.GetSpeechRate(),
		volume:  cfgSvc.GetSpeechVolume(),
	}, nil
}

func (svc *espeakService) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, svc.command, synthArgs(svc.voice, svc.rate)...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return xerrors.Errorf("running %s: %w", svc.command, err)
	}

	streamer, format, err := wav.Decode(&out)
	if err != nil {
		return xerrors.Errorf("decoding synthesized audio: %w", err)
	}
	defer streamer.Close()

	if svc.sampleRate == 0 {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return xerrors.Errorf("initializing speaker: %w", err)
		}
		svc.sampleRate = format.SampleRate
	}

	var source beep.Streamer = streamer
	if format.SampleRate != svc.sampleRate {
		source = beep.Resample(4, format.SampleRate, svc.sampleRate, source)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(withVolume(source, svc.volume), beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (svc *espeakService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.sampleRate != 0 {
		speaker.Clear()
	}
	return nil
}

func synthArgs(voice string, rate int) []string {
	args := []string{"--stdout", "--stdin"}
	if rate > 0 {
		args = append(args, "-s", strconv.Itoa(rate))
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return args
}

// withVolume maps a linear 0..1 volume onto beep's logarithmic control.
func withVolume(s beep.Streamer, volume float64) beep.Streamer {
	if volume == 1 {
		return s
	}

	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   math.Log2(math.Max(volume, 1e-6)),
		Silent:   volume <= 0,
	}
}
