package mjpeg

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

// ErrBadStatus is returned by Open when the camera answers with anything
// other than 200 OK.
var ErrBadStatus = errors.New("mjpeg: unexpected status code")

// ErrIdleTimeout is reported by a stream that delivered no bytes within
// its read timeout.
var ErrIdleTimeout = errors.New("mjpeg: stream idle timeout")

// Open starts streaming from url. The timeout bounds connecting, waiting
// for the response headers and every subsequent wait for body bytes.
// A failed open is not retried.
func Open(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, error) {
	streamCtx, cancel := context.WithCancelCause(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel(err)
		return nil, xerrors.Errorf("creating stream request: %w", err)
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
			ResponseHeaderTimeout: timeout,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel(err)
		return nil, xerrors.Errorf("opening stream %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel(ErrBadStatus)
		return nil, xerrors.Errorf("opening stream %s: status %d: %w", url, resp.StatusCode, ErrBadStatus)
	}

	return newIdleReader(streamCtx, resp.Body, timeout, cancel), nil
}

// idleReader aborts the underlying request when a single read waits longer
// than timeout. Time spent between reads does not count.
type idleReader struct {
	ctx     context.Context
	body    io.ReadCloser
	timeout time.Duration
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	once    sync.Once
}

func newIdleReader(ctx context.Context, body io.ReadCloser, timeout time.Duration, cancel context.CancelCauseFunc) *idleReader {
	r := &idleReader{
		ctx:     ctx,
		body:    body,
		timeout: timeout,
		cancel:  cancel,
	}
	if timeout > 0 {
		// armed only while a Read is waiting on the body
		r.timer = time.AfterFunc(timeout, func() {
			cancel(ErrIdleTimeout)
		})
		r.timer.Stop()
	}
	return r
}

func (r *idleReader) Read(p []byte) (int, error) {
	if r.timer != nil {
		r.timer.Reset(r.timeout)
	}

	n, err := r.body.Read(p)
	if r.timer != nil {
		r.timer.Stop()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		if cause := context.Cause(r.ctx); cause != nil {
			return n, xerrors.Errorf("reading stream: %w", cause)
		}
	}
	return n, err
}

func (r *idleReader) Close() error {
	var err error
	r.once.Do(func() {
		if r.timer != nil {
			r.timer.Stop()
		}
		err = r.body.Close()
		r.cancel(context.Canceled)
	})
	return err
}
