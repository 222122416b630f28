package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"resttimer/internal/domain"
	"resttimer/internal/events"
)

var (
	pongWait     = 10 * time.Second
	pingInterval = (pongWait * 9) / 10 // 90% of pongWait
	writeWait    = 5 * time.Second
)

const maxCommandBytes = 512

// Stream handles GET /timers/{id}/stream websocket requests. The client
// receives the current state, every later state change, and the session's
// threshold and completion events. It may send toggle, reset, adjust and
// preset commands over the same connection.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	ch, cancel, err := h.service.Subscribe(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to open stream")
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("websocket upgrade failed", "session", id, "error", err)
		return
	}
	defer conn.Close()

	c := &streamClient{
		conn:    conn,
		service: h.service,
		id:      id,
		logger:  h.logger.With("session", id),
		egress:  make(chan events.Event, 8),
		done:    make(chan struct{}),
	}

	go c.readCommands(r.Context())
	c.writeEvents(r.Context(), ch, h.cfg.StreamInterval)
}

type streamClient struct {
	conn    *websocket.Conn
	service TimerService
	id      string
	logger  *slog.Logger

	// egress carries command replies to the single writer.
	egress chan events.Event
	done   chan struct{}
}

func (c *streamClient) readCommands(ctx context.Context) {
	defer close(c.done)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error(err.Error())
		return
	}

	c.conn.SetReadLimit(maxCommandBytes)
	c.conn.SetPongHandler(c.pongHandler)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("error reading message", "error", err)
			}
			return
		}

		var cmd events.Event
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.reply("malformed command")
			continue
		}

		if err := c.route(ctx, cmd); err != nil {
			c.logger.Debug("command rejected", "type", cmd.Type, "error", err)
			c.reply(err.Error())
		}
	}
}

// route applies a client command. The resulting state reaches the client
// through the session's event stream.
func (c *streamClient) route(ctx context.Context, cmd events.Event) error {
	var err error

	switch cmd.Type {
	case events.CommandToggle:
		_, err = c.service.Toggle(ctx, c.id)
	case events.CommandReset:
		_, err = c.service.Reset(ctx, c.id)
	case events.CommandAdjust:
		var p events.AdjustCommand
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return fmt.Errorf("bad adjust payload: %w", err)
		}
		if err := validateDelta(p.Delta); err != nil {
			return err
		}
		_, err = c.service.Adjust(ctx, c.id, p.Delta)
	case events.CommandPreset:
		var p events.PresetCommand
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return fmt.Errorf("bad preset payload: %w", err)
		}
		if err := validateSeconds(p.Seconds); err != nil {
			return err
		}
		_, err = c.service.SelectPreset(ctx, c.id, p.Seconds)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}

	return err
}

func (c *streamClient) reply(message string) {
	evt, err := events.NewErrorEvent(message)
	if err != nil {
		return
	}
	select {
	case c.egress <- evt:
	default:
	}
}

func (c *streamClient) writeEvents(ctx context.Context, ch <-chan events.Event, interval time.Duration) {
	poll := time.NewTicker(interval)
	defer poll.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	var last domain.State
	if !c.pushState(ctx, &last, true) {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				c.close()
				return
			}
			if !c.write(evt) {
				return
			}
		case evt := <-c.egress:
			if !c.write(evt) {
				return
			}
		case <-poll.C:
			if !c.pushState(ctx, &last, false) {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping error", "error", err)
				return
			}
		}
	}
}

// pushState sends the current state when it differs from last.
func (c *streamClient) pushState(ctx context.Context, last *domain.State, force bool) bool {
	state, err := c.service.State(ctx, c.id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			c.logger.Error("reading state for stream", "error", err)
		}
		c.close()
		return false
	}

	if !force && state == *last {
		return true
	}
	*last = state

	evt, err := events.NewStateEvent(state)
	if err != nil {
		c.logger.Error("building state event", "error", err)
		return false
	}
	return c.write(evt)
}

func (c *streamClient) write(evt events.Event) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteJSON(evt); err != nil {
		c.logger.Debug("failed to send message", "error", err)
		return false
	}
	return true
}

// close tells the client the session has ended.
func (c *streamClient) close() {
	if evt, err := events.NewOutgoingEvent(events.EventClosed, struct{}{}); err == nil {
		c.write(evt)
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (c *streamClient) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}
