package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go-panel-backend/internal/editor"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// Frame is every message the server sends over a websocket.
type Frame struct {
	Type    string `json:"type"`
	Session any    `json:"session,omitempty"`
	View    any    `json:"view,omitempty"`
	Message string `json:"message,omitempty"`
}

// Sockets upgrades handshakes and bounds the size of client frames.
type Sockets struct {
	upgrader  websocket.Upgrader
	readLimit int64
}

// NewSockets accepts handshakes whose Origin passes allowOrigin. readLimit
// must leave room for a base64 encoded image.
func NewSockets(allowOrigin func(string) bool, readLimit int64) *Sockets {
	return &Sockets{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowOrigin(r.Header.Get("Origin"))
			},
		},
		readLimit: readLimit,
	}
}

type socket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *Sockets) upgrade(c *gin.Context) (*socket, error) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return nil, err
	}
	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	return &socket{conn: conn}, nil
}

func (s *socket) write(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(f)
}

func (s *socket) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// keepAlive pings until ctx ends or a ping fails.
func (s *socket) keepAlive(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ping(); err != nil {
				cancel()
				return
			}
		}
	}
}

func closedNormally(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

// serveEditor runs one editor for the lifetime of the connection. Client
// frames are decoded into commands; a malformed frame is answered with an
// error frame and the connection stays open.
func serveEditor[T, D any](c *gin.Context, sockets *Sockets, adapter editor.Adapter[T, D], rec metrics.Recorder) {
	sock, err := sockets.upgrade(c)
	if err != nil {
		logger.Log.Warn("editor websocket upgrade failed", "collection", adapter.Collection, "error", err)
		return
	}
	defer sock.conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	commands := make(chan editor.Command)
	go func() {
		defer cancel()
		for {
			_, data, err := sock.conn.ReadMessage()
			if err != nil {
				if !closedNormally(err) {
					logger.Log.Debug("editor websocket read ended", "collection", adapter.Collection, "error", err)
				}
				return
			}
			var cmd editor.Command
			if err := json.Unmarshal(data, &cmd); err != nil {
				_ = sock.write(Frame{Type: "error", Message: apperror.MsgUnexpected})
				continue
			}
			select {
			case commands <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	go sock.keepAlive(ctx, cancel)

	rec.SubscriptionOpened("editor:" + adapter.Collection)
	defer rec.SubscriptionClosed("editor:" + adapter.Collection)

	ed := editor.New(adapter, rec)
	err = ed.Run(ctx, commands, func(v editor.View[T, D]) {
		if err := sock.write(Frame{Type: "view", View: v}); err != nil {
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Log.Warn("editor stopped", "collection", adapter.Collection, "error", err)
	}
	_ = sock.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
