package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/openpnp-go/controller/pkg/processing"
)

// JogWebSocketHandler serves a jog session. Every text frame is a JogMessage;
// commands are queued without blocking the read loop and each one gets a
// JogReply once it completes. Commands for the same head complete in the
// order they were sent.
func JogWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, registry *machine.Registry, director *processing.Director) {
	logger.Infof("Jog WebSocket connected: %s", conn.RemoteAddr())
	session := newJogSession(registry, director)

	var writeMu sync.Mutex
	var pending sync.WaitGroup
	write := func(reply *JogReply) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(reply); err != nil {
			logger.Debugf("Jog WS write failed: %v", err)
		}
	}

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("Jog WS read error: %v", err)
			} else if !errors.Is(err, websocket.ErrCloseSent) && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Infof("Jog WS connection closed: %v", err)
			}
			break
		}
		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Jog WS message type: %d", mt)
			continue
		}

		req, results, reply := session.submit(msg)
		if reply != nil {
			logger.Warnf("Jog WS command rejected: %s", reply.Error)
			write(reply)
			continue
		}

		pending.Add(1)
		go func() {
			defer pending.Done()
			write(resultReply(req, <-results))
		}()
	}

	pending.Wait()
	logger.Infof("Jog WebSocket disconnected: %s", conn.RemoteAddr())
}

type jogSession struct {
	registry *machine.Registry
	director *processing.Director
}

func newJogSession(registry *machine.Registry, director *processing.Director) *jogSession {
	return &jogSession{registry: registry, director: director}
}

// submit decodes and queues one message. On failure it returns the error
// reply instead of a result channel.
func (s *jogSession) submit(raw []byte) (*JogMessage, <-chan *processing.Result, *JogReply) {
	var req JogMessage
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, nil, errorReply(&req, fmt.Errorf("%w: %v", processing.ErrInvalidCommand, err))
	}
	kind := processing.KindMoveTo
	if req.Type != "" {
		kind = processing.Kind(req.Type)
	}

	cmd, err := req.Build(kind, s.registry)
	if err != nil {
		return nil, nil, errorReply(&req, err)
	}
	results, err := s.director.Submit(cmd)
	if err != nil {
		return nil, nil, errorReply(&req, err)
	}
	return &req, results, nil
}

func resultReply(req *JogMessage, result *processing.Result) *JogReply {
	if result.Err != nil {
		reply := errorReply(req, result.Err)
		reply.CommandID = result.Command.ID
		return reply
	}
	return &JogReply{
		Type:      JogReplyResult,
		RequestID: req.RequestID,
		CommandID: result.Command.ID,
		Status:    processing.ErrorStatus(nil),
		Location:  processing.NewLocationResponse(result),
	}
}

func errorReply(req *JogMessage, err error) *JogReply {
	return &JogReply{
		Type:      JogReplyError,
		RequestID: req.RequestID,
		Status:    processing.ErrorStatus(err),
		Error:     err.Error(),
	}
}
