package ws

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dice-duel/internal/match"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	metricConnsOpen  = expvar.NewInt("ws_connections_open")
	metricConnsTotal = expvar.NewInt("ws_connections_total")
	metricFramesBad  = expvar.NewInt("ws_frames_invalid_total")
)

// Handler is the game side of a connection. match.Coordinator implements it.
type Handler interface {
	Connect(conn string)
	Disconnect(ctx context.Context, conn string)
	FindMatch(ctx context.Context, conn string, req match.FindMatchRequest) error
	RollDice(ctx context.Context, conn string, req match.RollDiceRequest) error
	Cancel(ctx context.Context, conn string) bool
	Reject(conn string, err error)
}

// Outboxes hands out the per-connection write queue. dispatch.Dispatcher
// implements it.
type Outboxes interface {
	Attach(conn string) <-chan []byte
	Detach(conn string)
}

type Server struct {
	handler  Handler
	outboxes Outboxes
	upgrader websocket.Upgrader
}

// NewServer accepts any origin when origins is empty or contains "*".
func NewServer(h Handler, out Outboxes, origins []string) *Server {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return &Server{
		handler:  h,
		outboxes: out,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(origins, origin)
			},
		},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws_upgrade_failed")
		return
	}
	id := uuid.NewString()
	outbox := s.outboxes.Attach(id)
	s.handler.Connect(id)
	metricConnsOpen.Add(1)
	metricConnsTotal.Add(1)
	log.Info().Str("conn_id", id).Str("remote", r.RemoteAddr).Msg("ws_connected")

	go s.writeLoop(conn, id, outbox)
	s.readLoop(conn, id)
}

func (s *Server) readLoop(conn *websocket.Conn, id string) {
	ctx := context.Background()
	defer func() {
		s.handler.Disconnect(ctx, id)
		s.outboxes.Detach(id)
		_ = conn.Close()
		metricConnsOpen.Add(-1)
		log.Info().Str("conn_id", id).Msg("ws_disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", id).Msg("ws_read_error")
			}
			return
		}
		s.handleFrame(ctx, id, msg)
	}
}

func (s *Server) handleFrame(ctx context.Context, id string, msg []byte) {
	var in Inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		metricFramesBad.Add(1)
		s.handler.Reject(id, errors.New("malformed frame"))
		return
	}

	var err error
	switch in.Type {
	case match.EventFindMatch:
		var req match.FindMatchRequest
		if err = decodeData(in.Data, &req); err == nil {
			err = s.handler.FindMatch(ctx, id, req)
		}
	case match.EventRollDice:
		var req match.RollDiceRequest
		if err = decodeData(in.Data, &req); err == nil {
			err = s.handler.RollDice(ctx, id, req)
		}
	case match.EventCancel:
		s.handler.Cancel(ctx, id)
	default:
		err = fmt.Errorf("unknown type %q", in.Type)
		metricFramesBad.Add(1)
		s.handler.Reject(id, err)
		return
	}

	var decodeErr *dataError
	if errors.As(err, &decodeErr) {
		metricFramesBad.Add(1)
		s.handler.Reject(id, err)
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("conn_id", id).Str("type", in.Type).Str("code", match.ErrorCode(err)).Msg("ws_request_rejected")
	}
}

type dataError struct{ err error }

func (e *dataError) Error() string { return "invalid data: " + e.err.Error() }
func (e *dataError) Unwrap() error { return e.err }

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &dataError{err: err}
	}
	return nil
}

func (s *Server) writeLoop(conn *websocket.Conn, id string, outbox <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("conn_id", id).Msg("ws_write_failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
