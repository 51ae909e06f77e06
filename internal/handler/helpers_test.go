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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/data"
	"github.com/krishna-kudari/chatService/internal/entity"
	"github.com/krishna-kudari/chatService/internal/eventbus"
	"github.com/krishna-kudari/chatService/internal/graph"
	"github.com/krishna-kudari/chatService/internal/service"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
)

type MockLogger struct{}

func (m *MockLogger) Logf(format string, v ...any) {
	fmt.Printf(format+"\n", v...)
}

// MockAuthenticator accepts "token-<user id>" credentials
type MockAuthenticator struct{}

func (a *MockAuthenticator) FromRequest(r *http.Request) (*auth.Session, error) {
	return a.parse(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func (a *MockAuthenticator) FromConnectionParams(params map[string]any) (*auth.Session, error) {
	token, _ := params["authToken"].(string)
	return a.parse(token)
}

func (a *MockAuthenticator) parse(token string) (*auth.Session, error) {
	if token == "" {
		return nil, nil
	}
	userID, ok := strings.CutPrefix(token, "token-")
	if !ok {
		return nil, fmt.Errorf("malformed token %q", token)
	}
	return &auth.Session{UserID: userID}, nil
}

type testServices struct {
	schema *graphql.Schema
	users  service.UserService
	bus    *eventbus.Bus
}

func newTestServices(c *qt.C, userIDs ...string) *testServices {
	db, err := data.OpenDatabase(data.StorageConfig{Driver: data.DriverSQLite, DSN: "file::memory:", MaxOpenConns: 1}, nil)
	c.Assert(err, qt.IsNil)
	storage := data.NewStorageManager(db)
	c.Cleanup(func() { storage.Close() })

	for _, id := range userIDs {
		username := id + "_name"
		c.Assert(db.Create(&entity.User{ID: id, Username: &username}).Error, qt.IsNil)
	}

	logger := &MockLogger{}
	bus := eventbus.NewBus(8, logger)
	users := service.NewUserService(storage.GetUserRepository(), logger)
	schema, err := graph.NewSchema(
		service.NewConversationService(storage.GetConversationRepository(), logger),
		service.NewMessageService(storage.GetMessageRepository(), storage.GetConversationRepository(), logger),
		users,
		bus,
		logger,
	)
	c.Assert(err, qt.IsNil)
	return &testServices{schema: schema, users: users, bus: bus}
}

// execAs runs a mutation or query directly on the schema, bypassing HTTP
func (s *testServices) execAs(c *qt.C, userID, query string, vars map[string]any) {
	ctx := auth.WithSession(context.Background(), &auth.Session{UserID: userID})
	response := s.schema.Exec(ctx, query, "", vars)
	c.Assert(response.Errors, qt.HasLen, 0)
}

type wsClient struct {
	c    *qt.C
	conn *websocket.Conn
}

func dial(c *qt.C, server *httptest.Server, protocols ...string) (*wsClient, *http.Response, error) {
	if protocols == nil {
		protocols = []string{SubscriptionProtocol}
	}
	dialer := websocket.Dialer{Subprotocols: protocols, HandshakeTimeout: 2 * time.Second}
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, response, err := dialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	if err != nil {
		return nil, response, err
	}
	c.Cleanup(func() { conn.Close() })
	return &wsClient{c: c, conn: conn}, response, nil
}

func (w *wsClient) write(id, kind string, payload any) {
	data, err := encodeMessage(id, kind, payload)
	w.c.Assert(err, qt.IsNil)
	w.c.Assert(w.conn.WriteMessage(websocket.TextMessage, data), qt.IsNil)
}

func (w *wsClient) read() wsMessage {
	w.c.Helper()
	var msg wsMessage
	w.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	w.c.Assert(w.conn.ReadJSON(&msg), qt.IsNil)
	return msg
}

// closeCode reads until the server closes the connection and returns the close code
func (w *wsClient) closeCode() int {
	w.c.Helper()
	w.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := w.conn.ReadMessage()
		if err == nil {
			continue
		}
		if closeErr, ok := err.(*websocket.CloseError); ok {
			return closeErr.Code
		}
		w.c.Fatalf("Expected a close frame, got %v", err)
	}
}
