package mjpeg

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// continuousServer writes a small frame every interval until the client
// goes away.
func continuousServer(interval time.Duration) *httptest.Server {
	payload := frame(make([]byte, 100)...)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := w.Write(payload); err != nil {
				return
			}
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	}))
}

func TestOpenSurvivesSlowConsumer(t *testing.T) {
	server := continuousServer(50 * time.Millisecond)
	defer server.Close()

	body, err := Open(context.Background(), server.URL, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer body.Close()

	reader := NewReader(body)
	if _, err := reader.Next(); err != nil {
		t.Fatalf("first Next() failed: %v", err)
	}

	// the consumer is busy for longer than the read timeout
	time.Sleep(500 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if _, err := reader.Next(); err != nil {
			t.Fatalf("Next() %d after busy consumer failed: %v", i, err)
		}
	}
}

func TestOpenSilentStreamTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	body, err := Open(context.Background(), server.URL, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer body.Close()

	done := make(chan error, 1)
	go func() {
		_, err := body.Read(make([]byte, 64))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrIdleTimeout) {
			t.Errorf("Read() error = %v, want ErrIdleTimeout", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Read() did not time out")
	}
}

func TestOpenCloseIsIdempotent(t *testing.T) {
	server := continuousServer(20 * time.Millisecond)
	defer server.Close()

	body, err := Open(context.Background(), server.URL, time.Second)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if _, err := io.ReadFull(body, make([]byte, 16)); err != nil {
		t.Fatalf("ReadFull() failed: %v", err)
	}

	if err := body.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := body.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	idle := body.(*idleReader)
	if idle.timer.Stop() {
		t.Error("timer still armed after Close()")
	}
	if context.Cause(idle.ctx) == nil {
		t.Error("request context not released after Close()")
	}
	if _, err := body.Read(make([]byte, 16)); err == nil {
		t.Error("Read() after Close() should fail")
	}
}

func TestOpenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := Open(context.Background(), url, 200*time.Millisecond); err == nil {
		t.Error("expected error for unreachable stream")
	}
}
