package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxCommandSize = 4096
	wsOutboxSize     = 64
)

// Frame types sent to the client.
const (
	frameEvent              = "event"
	frameSubscribed         = "subscribed"
	frameUnsubscribed       = "unsubscribed"
	frameSubscriptionClosed = "subscription.closed"
	frameError              = "error"
)

// wsCommand is what clients send over the socket. AfterSeq, when present,
// asks for the messages the client missed before live delivery starts.
type wsCommand struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	AfterSeq       *int64 `json:"after_seq,omitempty"`
}

type wsFrame struct {
	Type           string         `json:"type"`
	Topic          string         `json:"topic,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Event          *domain.Event  `json:"event,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Error          *errorResponse `json:"error,omitempty"`
}

// WebsocketHandler multiplexes realtime subscriptions over one connection per
// client. The user's own topic is subscribed on connect; conversation topics
// are added and dropped with subscribe and unsubscribe commands.
type WebsocketHandler struct {
	messages ports.MessageService
	bus      ports.Bus
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWebsocketHandler(messages ports.MessageService, bus ports.Bus, logger zerolog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		messages: messages,
		bus:      bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Connections authenticate with a bearer token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /v1/ws.
//
// @Summary      Open the realtime channel
// @Description  Upgrades to a websocket. Send {"action":"subscribe","conversation_id":"...","after_seq":N} to follow a conversation.
// @Tags         realtime
// @Security     BearerAuth
// @Param        access_token  query  string  false  "JWT for clients that cannot set headers"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Router       /v1/ws [get]
func (h *WebsocketHandler) Serve(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return nil
	}

	metrics.WebsocketConnections.Inc()
	defer metrics.WebsocketConnections.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	s := &wsSession{
		userID:   userID,
		conn:     conn,
		out:      make(chan wsFrame, wsOutboxSize),
		subs:     make(map[string]wsSubscription),
		messages: h.messages,
		bus:      h.bus,
		logger:   h.logger.With().Str("user_id", userID).Logger(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writeLoop(ctx, cancel)
	}()

	if err := s.subscribeUser(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("user topic subscription failed")
		cancel()
	} else {
		s.readLoop(ctx)
		cancel()
	}

	s.wg.Wait()
	return nil
}

type wsSession struct {
	userID   string
	conn     *websocket.Conn
	out      chan wsFrame
	messages ports.MessageService
	bus      ports.Bus
	logger   zerolog.Logger

	mu   sync.Mutex
	subs map[string]wsSubscription
	wg   sync.WaitGroup
}

// wsSubscription is one live conversation subscription. done closes when its
// forwarder has returned and will send nothing more.
type wsSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// writeLoop is the only goroutine writing to the connection. Closing the
// connection on exit unblocks readLoop.
func (s *wsSession) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case f := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(f); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed")
				cancel()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				return
			}
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}

func (s *wsSession) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(wsMaxCommandSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var cmd wsCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}

		switch cmd.Action {
		case "subscribe":
			s.subscribe(ctx, cmd)
		case "unsubscribe":
			if cmd.ConversationID == "" {
				s.send(ctx, wsFrame{Type: frameError, Error: &errorResponse{Error: "conversation_id is required", Code: "bad_request"}})
				continue
			}
			s.unsubscribe(cmd.ConversationID)
			s.send(ctx, wsFrame{
				Type:           frameUnsubscribed,
				Topic:          domain.ConversationTopic(cmd.ConversationID),
				ConversationID: cmd.ConversationID,
			})
		default:
			s.send(ctx, wsFrame{
				Type:  frameError,
				Error: &errorResponse{Error: "unknown action " + cmd.Action, Code: "bad_request"},
			})
		}
	}
}

func (s *wsSession) send(ctx context.Context, f wsFrame) bool {
	select {
	case s.out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *wsSession) subscribeUser(ctx context.Context) error {
	topic := domain.UserTopic(s.userID)
	ch, err := s.bus.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	s.send(ctx, wsFrame{Type: frameSubscribed, Topic: topic})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for evt := range ch {
			if !s.send(ctx, wsFrame{Type: frameEvent, Topic: topic, Event: &evt}) {
				return
			}
		}
		if ctx.Err() == nil {
			s.send(ctx, wsFrame{Type: frameSubscriptionClosed, Topic: topic, Reason: "evicted"})
		}
	}()
	return nil
}

func (s *wsSession) subscribe(ctx context.Context, cmd wsCommand) {
	convID := cmd.ConversationID
	if convID == "" {
		s.send(ctx, wsFrame{Type: frameError, Error: &errorResponse{Error: "conversation_id is required", Code: "bad_request"}})
		return
	}
	if cmd.AfterSeq != nil && *cmd.AfterSeq < 0 {
		s.send(ctx, wsFrame{Type: frameError, ConversationID: convID, Error: &errorResponse{Error: "after_seq must not be negative", Code: "invalid_operation"}})
		return
	}
	if err := s.messages.Authorize(ctx, s.userID, convID); err != nil {
		s.send(ctx, wsFrame{Type: frameError, ConversationID: convID, Error: wsError(err)})
		return
	}

	s.unsubscribe(convID)

	subCtx, subCancel := context.WithCancel(ctx)
	topic := domain.ConversationTopic(convID)
	ch, err := s.bus.Subscribe(subCtx, topic)
	if err != nil {
		subCancel()
		s.logger.Warn().Err(err).Str("conversation_id", convID).Msg("conversation subscription failed")
		s.send(ctx, wsFrame{Type: frameError, ConversationID: convID, Error: wsError(err)})
		return
	}

	sub := wsSubscription{cancel: subCancel, done: make(chan struct{})}
	s.mu.Lock()
	s.subs[convID] = sub
	s.mu.Unlock()

	s.send(ctx, wsFrame{Type: frameSubscribed, Topic: topic, ConversationID: convID})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(sub.done)
		s.forward(subCtx, subCancel, convID, cmd.AfterSeq, ch)
	}()
}

// forward replays the log after afterSeq, then relays live events. The bus
// subscription is already open while replaying, so live messages already
// covered by the replay are skipped by seq.
func (s *wsSession) forward(ctx context.Context, cancel context.CancelFunc, convID string, afterSeq *int64, ch <-chan domain.Event) {
	defer cancel()
	topic := domain.ConversationTopic(convID)

	var last int64
	if afterSeq != nil {
		last = *afterSeq
		for {
			msgs, err := s.messages.ListSince(ctx, s.userID, convID, last, 0)
			if err != nil {
				s.send(ctx, wsFrame{Type: frameError, ConversationID: convID, Error: wsError(err)})
				s.drop(ctx, convID)
				return
			}
			if len(msgs) == 0 {
				break
			}
			for _, m := range msgs {
				evt := domain.Event{
					Type:           domain.EventMessageCreated,
					Topic:          topic,
					ConversationID: convID,
					ActorID:        m.SenderID,
					Message:        m,
					At:             m.CreatedAt,
				}
				if !s.send(ctx, wsFrame{Type: frameEvent, Topic: topic, ConversationID: convID, Event: &evt}) {
					return
				}
				last = m.Seq
			}
		}
	}

	for evt := range ch {
		if evt.Message != nil {
			if evt.Message.Seq <= last {
				continue
			}
			last = evt.Message.Seq
		}
		if !s.send(ctx, wsFrame{Type: frameEvent, Topic: topic, ConversationID: convID, Event: &evt}) {
			return
		}
		if evt.Type == domain.EventMemberRemoved && evt.Member != nil && evt.Member.UserID == s.userID {
			s.drop(ctx, convID)
			s.send(ctx, wsFrame{Type: frameSubscriptionClosed, Topic: topic, ConversationID: convID, Reason: "removed"})
			return
		}
	}

	// The channel closed without our context ending: the bus dropped us.
	if ctx.Err() == nil {
		s.drop(ctx, convID)
		s.send(ctx, wsFrame{Type: frameSubscriptionClosed, Topic: topic, ConversationID: convID, Reason: "evicted"})
	}
}

// drop forgets the subscription for convID if ctx still belongs to it.
func (s *wsSession) drop(ctx context.Context, convID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[convID]; ok && ctx.Err() == nil {
		delete(s.subs, convID)
	}
}

// unsubscribe ends the subscription for convID and waits for its forwarder,
// so no event for it is queued after this returns.
func (s *wsSession) unsubscribe(convID string) {
	s.mu.Lock()
	sub, ok := s.subs[convID]
	delete(s.subs, convID)
	s.mu.Unlock()

	if ok {
		sub.cancel()
		<-sub.done
	}
}

func wsError(err error) *errorResponse {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return &errorResponse{Error: err.Error(), Code: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return &errorResponse{Error: err.Error(), Code: "not_found"}
	case errors.Is(err, domain.ErrInvalidOperation):
		return &errorResponse{Error: err.Error(), Code: "invalid_operation"}
	default:
		return &errorResponse{Error: "internal server error", Code: "internal"}
	}
}
