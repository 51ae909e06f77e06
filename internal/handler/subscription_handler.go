/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/service"

	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
)

type SubscriptionConfig struct {
	AllowedOrigin string        // Origin accepted on upgrade, requests without Origin are always accepted
	InitTimeout   time.Duration // Time a client has to send connection_init
	PingInterval  time.Duration // Interval of the websocket keep-alive pings
	WriteTimeout  time.Duration
}

func (c *SubscriptionConfig) withDefaults() SubscriptionConfig {
	cfg := *c
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return cfg
}

// SubscriptionHandler upgrades requests to websocket connections speaking graphql-transport-ws
type SubscriptionHandler struct {
	schema        *graphql.Schema
	authenticator auth.Authenticator
	users         service.UserService
	upgrader      websocket.Upgrader
	cfg           SubscriptionConfig
	logger        nlog.Logger

	connections sync.WaitGroup
	open        atomic.Int64
	lock        sync.Mutex
	live        map[*wsConnection]struct{}
	closing     bool
}

func NewSubscriptionHandler(schema *graphql.Schema, authenticator auth.Authenticator, users service.UserService, cfg SubscriptionConfig, logger nlog.Logger) *SubscriptionHandler {
	h := &SubscriptionHandler{
		schema:        schema,
		authenticator: authenticator,
		users:         users,
		cfg:           cfg.withDefaults(),
		logger:        logger,
		live:          make(map[*wsConnection]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{SubscriptionProtocol},
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *SubscriptionHandler) Logf(format string, v ...any) {
	h.logger.Logf(format, v...)
}

func (h *SubscriptionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.cfg.AllowedOrigin == "" || origin == h.cfg.AllowedOrigin
}

// OpenConnections returns how many websocket connections are being served
func (h *SubscriptionHandler) OpenConnections() int64 {
	return h.open.Load()
}

// Wait blocks until every connection served so far is closed
func (h *SubscriptionHandler) Wait() {
	h.connections.Wait()
}

// Shutdown closes every open connection with "going away", refuses new ones and waits for them to end
func (h *SubscriptionHandler) Shutdown() {
	h.lock.Lock()
	h.closing = true
	live := make([]*wsConnection, 0, len(h.live))
	for c := range h.live {
		live = append(live, c)
	}
	h.lock.Unlock()

	for _, c := range live {
		c.closeWith(websocket.CloseGoingAway, "Server shutting down")
	}
	h.connections.Wait()
}

// track adds c to the live connections, it returns false once the handler is shutting down
func (h *SubscriptionHandler) track(c *wsConnection) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closing {
		return false
	}
	h.live[c] = struct{}{}
	return true
}

func (h *SubscriptionHandler) untrack(c *wsConnection) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.live, c)
}

func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logf("Upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	h.connections.Add(1)
	h.open.Add(1)
	defer func() {
		h.open.Add(-1)
		h.connections.Done()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	c := &wsConnection{
		handler:    h,
		ws:         ws,
		ctx:        ctx,
		cancel:     cancel,
		outbox:     make(chan []byte, 16),
		operations: make(map[string]*operation),
		remote:     r.RemoteAddr,
	}
	if ws.Subprotocol() != SubscriptionProtocol {
		c.closeWith(closeSubprotocol, "Subprotocol not acceptable")
		c.shutdown()
		return
	}
	if !h.track(c) {
		c.closeWith(websocket.CloseGoingAway, "Server shutting down")
		c.shutdown()
		return
	}
	defer h.untrack(c)
	c.serve()
}

// operation is a running subscription of a connection
type operation struct {
	cancel    context.CancelFunc
	completed atomic.Bool // Set when the client asked to stop it
}

// wsConnection is a single client. Only the writer goroutine writes data frames on ws
type wsConnection struct {
	handler *SubscriptionHandler
	ws      *websocket.Conn
	remote  string

	ctx    context.Context
	cancel context.CancelFunc
	outbox chan []byte

	lock       sync.Mutex
	session    *auth.Session
	acked      bool
	operations map[string]*operation
	running    sync.WaitGroup
	closeOnce  sync.Once
}

func (c *wsConnection) Logf(format string, v ...any) {
	c.handler.Logf("[%s] "+format, append([]any{c.remote}, v...)...)
}

// serve runs the read loop until the client leaves or the connection is closed
func (c *wsConnection) serve() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()
	defer func() {
		c.shutdown()
		<-writerDone
	}()

	initTimer := time.AfterFunc(c.handler.cfg.InitTimeout, func() {
		c.lock.Lock()
		acked := c.acked
		c.lock.Unlock()
		if !acked {
			c.closeWith(closeInitTimeout, "Connection initialisation timeout")
		}
	})
	defer initTimer.Stop()

	c.ws.SetReadLimit(1 << 20)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.ctx.Err() == nil {
				c.Logf("Read failed: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.closeWith(closeBadRequest, "Invalid message received")
			return
		}
		if !c.handle(msg) {
			return
		}
	}
}

// handle reacts to a client message, it returns false when the connection has to be dropped
func (c *wsConnection) handle(msg wsMessage) bool {
	switch msg.Type {
	case msgConnectionInit:
		return c.initialise(msg.Payload)

	case msgPing:
		c.send(msgPong, "", nil)

	case msgPong:

	case msgSubscribe:
		c.lock.Lock()
		acked := c.acked
		c.lock.Unlock()
		if !acked {
			c.closeWith(closeUnauthorized, "Unauthorized")
			return false
		}
		if msg.ID == "" {
			c.closeWith(closeBadRequest, "Subscribe without id")
			return false
		}
		var payload subscribePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Query == "" {
			c.closeWith(closeBadRequest, "Invalid subscribe payload")
			return false
		}
		return c.subscribe(msg.ID, payload)

	case msgComplete:
		c.lock.Lock()
		op, ok := c.operations[msg.ID]
		c.lock.Unlock()
		if ok {
			op.completed.Store(true)
			op.cancel()
		}

	default:
		c.closeWith(closeBadRequest, fmt.Sprintf("Unknown message type %q", msg.Type))
		return false
	}
	return true
}

// initialise resolves the credential of the init payload and acknowledges the connection.
// A missing or invalid credential still gets an acknowledgement, its subscriptions just see nothing
func (c *wsConnection) initialise(raw json.RawMessage) bool {
	c.lock.Lock()
	if c.acked {
		c.lock.Unlock()
		c.closeWith(closeTooManyInitRequests, "Too many initialisation requests")
		return false
	}
	c.acked = true
	c.lock.Unlock()

	var params map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			c.Logf("Ignoring malformed connection_init payload: %v", err)
		}
	}

	session, err := c.handler.authenticator.FromConnectionParams(params)
	if err != nil {
		c.Logf("Discarding credential: %v", err)
		session = nil
	}
	if session != nil {
		if err := c.handler.users.EnsureUser(c.ctx, session); err != nil {
			c.Logf("Could not record user %s: %v", session.UserID, err)
		}
		c.Logf("Authenticated as %s", session.UserID)
	}

	c.lock.Lock()
	c.session = session
	c.lock.Unlock()

	c.send(msgConnectionAck, "", nil)
	return true
}

func (c *wsConnection) subscribe(id string, payload subscribePayload) bool {
	c.lock.Lock()
	if _, exists := c.operations[id]; exists {
		c.lock.Unlock()
		c.closeWith(closeSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", id))
		return false
	}
	ctx, cancel := context.WithCancel(auth.WithSession(c.ctx, c.session))
	op := &operation{cancel: cancel}
	c.operations[id] = op
	c.running.Add(1)
	c.lock.Unlock()

	responses, err := c.handler.schema.Subscribe(ctx, payload.Query, payload.OperationName, payload.Variables)
	if err != nil {
		c.finish(id)
		c.send(msgError, id, []*gqlerrors.QueryError{{Message: err.Error()}})
		c.running.Done()
		return true
	}

	go func() {
		defer c.running.Done()
		defer c.finish(id)

		failed := false
		for r := range responses {
			response, ok := r.(*graphql.Response)
			if !ok {
				continue
			}
			if len(response.Data) == 0 && len(response.Errors) > 0 {
				failed = true
				c.send(msgError, id, response.Errors)
				op.cancel()
				continue
			}
			c.send(msgNext, id, response)
		}
		if !failed && !op.completed.Load() {
			c.send(msgComplete, id, nil)
		}
	}()
	return true
}

// finish forgets the operation id
func (c *wsConnection) finish(id string) {
	c.lock.Lock()
	op, ok := c.operations[id]
	delete(c.operations, id)
	c.lock.Unlock()
	if ok {
		op.cancel()
	}
}

// send queues a message for the writer, giving up when the connection is closing
func (c *wsConnection) send(kind, id string, payload any) {
	data, err := encodeMessage(id, kind, payload)
	if err != nil {
		c.Logf("Could not encode %s message: %v", kind, err)
		return
	}
	select {
	case c.outbox <- data:
	case <-c.ctx.Done():
	}
}

func (c *wsConnection) writeLoop() {
	ticker := time.NewTicker(c.handler.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.outbox:
			c.ws.SetWriteDeadline(time.Now().Add(c.handler.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Logf("Write failed: %v", err)
				c.closeWith(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.handler.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// closeWith sends a close frame with code and reason, then tears the connection down.
// Only the first call has any effect
func (c *wsConnection) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		if code != websocket.CloseAbnormalClosure {
			c.Logf("Closing {%d}: %s", code, reason)
			deadline := time.Now().Add(c.handler.cfg.WriteTimeout)
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		}
		c.cancel()
		c.ws.Close()
	})
}

// shutdown stops every operation and waits for them
func (c *wsConnection) shutdown() {
	c.closeWith(websocket.CloseAbnormalClosure, "")

	c.lock.Lock()
	for _, op := range c.operations {
		op.cancel()
	}
	c.lock.Unlock()
	c.running.Wait()
}
