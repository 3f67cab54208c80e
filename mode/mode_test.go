package mode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/khaledhikmat/vg-go/mjpeg"
	"github.com/khaledhikmat/vg-go/model"
	"github.com/khaledhikmat/vg-go/pipeline"
	"github.com/khaledhikmat/vg-go/service/config"
	"github.com/khaledhikmat/vg-go/service/display"
	"github.com/khaledhikmat/vg-go/service/perception"
	"github.com/khaledhikmat/vg-go/service/speech"
	"gocv.io/x/gocv"
)

type testConfig struct {
	config.IService
	url         string
	displayType string
	logFolder   string
}

func (c testConfig) GetStreamURL() string { return c.url }
func (c testConfig) GetStreamTimeout() int { return 2 }
func (c testConfig) GetModeMaxShutdownTime() int { return 1 }
func (c testConfig) GetDisplayType() string { return c.displayType }
func (c testConfig) GetLogFolder() string { return c.logFolder }

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		t.Fatalf("IMEncode() failed: %v", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func fakeServices(cfg config.IService, speechSvc speech.IService) pipeline.ServicesFactory {
	return pipeline.ServicesFactory{
		CfgSvc:        cfg,
		PerceptionSvc: perception.NewFake([][]model.Detection{}),
		SpeechSvc:     speechSvc,
		DisplaySvc:    display.NewHeadless(),
	}
}

func TestRunReturnsWhenStreamEnds(t *testing.T) {
	frame := jpegFrame(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n")
			w.Write(frame)
		}
	}))
	defer server.Close()

	cfg := testConfig{IService: config.NewHardCoded(), url: server.URL, logFolder: t.TempDir()}
	svcs := fakeServices(cfg, speech.NewFake(0, nil))

	if err := run(context.Background(), svcs, config.ObjectsPipelineName); err != nil {
		t.Errorf("run() failed: %v", err)
	}
	if frames := svcs.DisplaySvc.(*display.HeadlessService).Frames(); frames != 5 {
		t.Errorf("frames shown = %d, want 5", frames)
	}
}

func TestRunReportsOpenFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	cfg := testConfig{IService: config.NewHardCoded(), url: server.URL, logFolder: t.TempDir()}

	err := run(context.Background(), fakeServices(cfg, speech.NewFake(0, nil)), config.CashPipelineName)
	if !errors.Is(err, mjpeg.ErrBadStatus) {
		t.Errorf("run() error = %v, want ErrBadStatus", err)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	frame := jpegFrame(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for r.Context().Err() == nil {
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n")
			w.Write(frame)
			w.(http.Flusher).Flush()
			time.Sleep(10 * time.Millisecond)
		}
	}))
	defer server.Close()

	cfg := testConfig{IService: config.NewHardCoded(), url: server.URL, logFolder: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		result <- run(ctx, fakeServices(cfg, speech.NewFake(0, nil)), config.ObjectsPipelineName)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("run() failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run() did not stop after cancellation")
	}
}

func TestBuildServicesFailsOnMissingModel(t *testing.T) {
	cfg := testConfig{IService: config.NewHardCoded()}
	missing := func(string, config.PipelineParameters) (perception.IService, error) {
		return nil, perception.ErrModelNotFound
	}

	if _, _, err := buildServices(cfg, config.ObjectsPipelineName, missing); !errors.Is(err, perception.ErrModelNotFound) {
		t.Errorf("buildServices() error = %v, want ErrModelNotFound", err)
	}
}

func TestNewDisplay(t *testing.T) {
	params := config.PipelineParameters{WindowTitle: "test"}

	svc, err := newDisplay(testConfig{IService: config.NewHardCoded(), displayType: config.DisplayHeadless}, params)
	if err != nil {
		t.Fatalf("newDisplay(none) failed: %v", err)
	}
	if _, ok := svc.(*display.HeadlessService); !ok {
		t.Errorf("newDisplay(none) = %T, want headless", svc)
	}

	if _, err := newDisplay(testConfig{IService: config.NewHardCoded(), displayType: "hologram"}, params); err == nil {
		t.Error("expected error for unknown display type")
	}
}
