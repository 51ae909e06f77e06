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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/service"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

func newSubscriptionServer(c *qt.C, s *testServices, cfg SubscriptionConfig) (*httptest.Server, *SubscriptionHandler) {
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "http://localhost:3000"
	}
	h := NewSubscriptionHandler(s.schema, &MockAuthenticator{}, s.users, cfg, &MockLogger{})
	server := httptest.NewServer(h)
	return server, h
}

func (s *testServices) createConversation(c *qt.C, userID string, ids ...string) string {
	ctx := auth.WithSession(context.Background(), &auth.Session{UserID: userID})
	response := s.schema.Exec(ctx, `mutation($ids: [String!]!) { createConversation(participantIds: $ids) { conversationId } }`, "", map[string]any{"ids": ids})
	c.Assert(response.Errors, qt.HasLen, 0)
	var out struct {
		CreateConversation struct{ ConversationID string }
	}
	c.Assert(json.Unmarshal(response.Data, &out), qt.IsNil)
	return out.CreateConversation.ConversationID
}

func waitFor(c *qt.C, cond func() bool) {
	c.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscriptionFlow(t *testing.T) {
	c := qt.New(t)
	s := newTestServices(c, "a", "b")
	id := s.createConversation(c, "a", "a", "b")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server, h := newSubscriptionServer(c, s, SubscriptionConfig{})
	client, response, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	c.Assert(response.Header.Get("Sec-WebSocket-Protocol"), qt.Equals, SubscriptionProtocol)

	client.write("", msgConnectionInit, map[string]any{"authToken": "token-b"})
	c.Assert(client.read().Type, qt.Equals, msgConnectionAck)

	client.write("", msgPing, nil)
	c.Assert(client.read().Type, qt.Equals, msgPong)

	client.write("op1", msgSubscribe, subscribePayload{
		Query:     `subscription($conv: String!) { messageSent(conversationId: $conv) { id body } }`,
		Variables: map[string]any{"conv": id},
	})
	waitFor(c, func() bool { return s.bus.SubscriberCount(service.TopicMessageSent) == 1 })

	s.execAs(c, "a", `mutation($conv: String!) { sendMessage(id: "m1", senderId: "a", conversationId: $conv, body: "hello") }`, map[string]any{"conv": id})

	msg := client.read()
	c.Assert(msg.Type, qt.Equals, msgNext)
	c.Assert(msg.ID, qt.Equals, "op1")
	var payload struct {
		Data struct {
			MessageSent struct{ ID, Body string }
		}
	}
	c.Assert(json.Unmarshal(msg.Payload, &payload), qt.IsNil)
	c.Check(payload.Data.MessageSent.ID, qt.Equals, "m1")
	c.Check(payload.Data.MessageSent.Body, qt.Equals, "hello")

	client.write("op1", msgComplete, nil)
	waitFor(c, func() bool { return s.bus.SubscriberCount(service.TopicMessageSent) == 0 })

	client.conn.Close()
	waitFor(c, func() bool { return h.OpenConnections() == 0 })
	server.Close()
	h.Wait()
}

func TestSubscriptionInvalidQuery(t *testing.T) {
	c := qt.New(t)
	s := newTestServices(c)
	server, h := newSubscriptionServer(c, s, SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	client.write("", msgConnectionInit, nil)
	c.Assert(client.read().Type, qt.Equals, msgConnectionAck)

	client.write("bad", msgSubscribe, subscribePayload{Query: `subscription { noSuchField }`})
	msg := client.read()
	c.Assert(msg.Type, qt.Equals, msgError)
	c.Assert(msg.ID, qt.Equals, "bad")

	// An anonymous query executes and fails in its resolver: the errors travel in a next message
	client.write("query", msgSubscribe, subscribePayload{Query: `{ conversations { id } }`})
	msg = client.read()
	c.Assert(msg.Type, qt.Equals, msgNext)
	c.Assert(msg.ID, qt.Equals, "query")
	var result struct {
		Errors []json.RawMessage `json:"errors"`
	}
	c.Assert(json.Unmarshal(msg.Payload, &result), qt.IsNil)
	c.Assert(result.Errors, qt.Not(qt.HasLen), 0)
	msg = client.read()
	c.Assert(msg.Type, qt.Equals, msgComplete)
	c.Assert(msg.ID, qt.Equals, "query")

	client.conn.Close()
	waitFor(c, func() bool { return h.OpenConnections() == 0 })
}

func TestSubscribeBeforeInit(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	client.write("op1", msgSubscribe, subscribePayload{Query: `subscription { conversationCreated { id } }`})
	c.Assert(client.closeCode(), qt.Equals, closeUnauthorized)
}

func TestDoubleInit(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	client.write("", msgConnectionInit, nil)
	c.Assert(client.read().Type, qt.Equals, msgConnectionAck)
	client.write("", msgConnectionInit, nil)
	c.Assert(client.closeCode(), qt.Equals, closeTooManyInitRequests)
}

func TestInitTimeout(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{InitTimeout: 50 * time.Millisecond})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	c.Assert(client.closeCode(), qt.Equals, closeInitTimeout)
}

func TestDuplicateSubscriber(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	client.write("", msgConnectionInit, map[string]any{"authToken": "token-a"})
	c.Assert(client.read().Type, qt.Equals, msgConnectionAck)

	subscription := subscribePayload{Query: `subscription { conversationCreated { id } }`}
	client.write("op1", msgSubscribe, subscription)
	client.write("op1", msgSubscribe, subscription)
	c.Assert(client.closeCode(), qt.Equals, closeSubscriberExists)
}

func TestUnknownMessageType(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	client.write("", "start", nil)
	c.Assert(client.closeCode(), qt.Equals, closeBadRequest)
}

func TestWrongSubprotocol(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server, "graphql-ws")
	c.Assert(err, qt.IsNil)
	c.Assert(client.closeCode(), qt.Equals, closeSubprotocol)
}

func TestForeignOriginRejected(t *testing.T) {
	c := qt.New(t)
	server, _ := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	dialer := websocket.Dialer{Subprotocols: []string{SubscriptionProtocol}}
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, response, err := dialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(response, qt.Not(qt.IsNil))
	c.Assert(response.StatusCode, qt.Equals, http.StatusForbidden)
}

func TestShutdownClosesConnections(t *testing.T) {
	c := qt.New(t)
	server, h := newSubscriptionServer(c, newTestServices(c), SubscriptionConfig{})
	defer server.Close()

	client, _, err := dial(c, server)
	c.Assert(err, qt.IsNil)
	client.write("", msgConnectionInit, nil)
	c.Assert(client.read().Type, qt.Equals, msgConnectionAck)

	h.Shutdown()
	c.Assert(client.closeCode(), qt.Equals, websocket.CloseGoingAway)
	c.Assert(h.OpenConnections(), qt.Equals, int64(0))
}
