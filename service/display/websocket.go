package display

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/khaledhikmat/vg-go/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const (
	quitMessage  = "q"
	writeTimeout = 2 * time.Second
	pongWait     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebsocketService pushes every shown frame as a JPEG binary message to the
// viewers connected on /ws. A viewer sending "q" requests quit.
type WebsocketService struct {
	server   *http.Server
	listener net.Listener

	mutex   sync.RWMutex
	clients map[*websocket.Conn]bool

	quit atomic.Bool
}

func NewWebsocket(addr string) (*WebsocketService, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, xerrors.Errorf("listening on %s: %w", addr, err)
	}

	svc := &WebsocketService{
		listener: listener,
		clients:  make(map[*websocket.Conn]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", svc.viewerHandler)
	svc.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := svc.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Logger.Error(
				"display server stopped",
				slog.Any("error", err),
			)
		}
	}()

	lgr.Logger.Info(
		"display server listening",
		slog.String("addr", listener.Addr().String()),
	)
	return svc, nil
}

// Addr is the address the server actually bound to.
func (svc *WebsocketService) Addr() string {
	return svc.listener.Addr().String()
}

func (svc *WebsocketService) Show(frame gocv.Mat) error {
	if svc.ClientCount() == 0 {
		return nil
	}

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return xerrors.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	svc.broadcast(buf.GetBytes())
	return nil
}

func (svc *WebsocketService) QuitRequested() bool {
	return svc.quit.Load()
}

// ClientCount reports the number of connected viewers.
func (svc *WebsocketService) ClientCount() int {
	svc.mutex.RLock()
	defer svc.mutex.RUnlock()
	return len(svc.clients)
}

func (svc *WebsocketService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	svc.mutex.Lock()
	for client := range svc.clients {
		client.Close()
		delete(svc.clients, client)
	}
	svc.mutex.Unlock()

	return svc.server.Shutdown(ctx)
}

func (svc *WebsocketService) broadcast(payload []byte) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	for client := range svc.clients {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			lgr.Logger.Warn(
				"dropping display viewer",
				slog.String("remote", client.RemoteAddr().String()),
				slog.Any("error", err),
			)
			delete(svc.clients, client)
			client.Close()
		}
	}
}

func (svc *WebsocketService) viewerHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		lgr.Logger.Warn(
			"websocket upgrade failed",
			slog.Any("error", err),
		)
		return
	}
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	svc.mutex.Lock()
	svc.clients[conn] = true
	svc.mutex.Unlock()

	defer func() {
		svc.mutex.Lock()
		if _, ok := svc.clients[conn]; ok {
			delete(svc.clients, conn)
			conn.Close()
		}
		svc.mutex.Unlock()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if string(msg) == quitMessage {
			lgr.Logger.Info(
				"quit requested by viewer",
				slog.String("remote", conn.RemoteAddr().String()),
			)
			svc.quit.Store(true)
		}
	}
}
