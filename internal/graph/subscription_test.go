/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/service"

	qt "github.com/frankban/quicktest"
	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/goleak"
)

// subscribe starts a subscription as userID, the returned cancel func ends it
func (a *testAPI) subscribe(c *qt.C, userID, query string, vars map[string]any) (<-chan any, context.CancelFunc) {
	ctx, cancel := context.WithCancel(sessionCtx(userID))
	responses, err := a.schema.Subscribe(ctx, query, "", vars)
	c.Assert(err, qt.IsNil)
	return responses, cancel
}

func next(c *qt.C, responses <-chan any, out any) {
	c.Helper()
	select {
	case r := <-responses:
		response, ok := r.(*graphql.Response)
		c.Assert(ok, qt.IsTrue)
		c.Assert(response.Errors, qt.HasLen, 0)
		c.Assert(json.Unmarshal(response.Data, out), qt.IsNil)
	case <-time.After(2 * time.Second):
		c.Fatal("No event received")
	}
}

func nothing(c *qt.C, responses <-chan any) {
	c.Helper()
	select {
	case r := <-responses:
		c.Fatalf("Unexpected event %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMessageSentSubscription(t *testing.T) {
	c := qt.New(t)
	api := newTestAPI(c, "a", "b", "c")
	id := api.createConversation(c, "a", "a", "b")
	other := api.createConversation(c, "a", "a", "c")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const query = `subscription($conv: String!) { messageSent(conversationId: $conv) { id body conversationId } }`
	member, cancelMember := api.subscribe(c, "b", query, map[string]any{"conv": id})
	defer cancelMember()
	outsider, cancelOutsider := api.subscribe(c, "c", query, map[string]any{"conv": id})
	defer cancelOutsider()

	const send = `mutation($id: String!, $conv: String!) { sendMessage(id: $id, senderId: "a", conversationId: $conv, body: "hi") }`
	c.Assert(api.exec(c, "a", send, map[string]any{"id": "m1", "conv": other}, nil), qt.HasLen, 0)
	c.Assert(api.exec(c, "a", send, map[string]any{"id": "m2", "conv": id}, nil), qt.HasLen, 0)

	var out struct {
		MessageSent struct {
			ID             string
			Body           string
			ConversationID string
		}
	}
	next(c, member, &out)
	c.Check(out.MessageSent.ID, qt.Equals, "m2")
	c.Check(out.MessageSent.ConversationID, qt.Equals, id)
	nothing(c, member)
	nothing(c, outsider)

	cancelMember()
	cancelOutsider()
	for range member {
	}
	for range outsider {
	}
}

func TestConversationSubscriptionsFilterOnMembership(t *testing.T) {
	c := qt.New(t)
	api := newTestAPI(c, "a", "b", "c")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	created, cancelCreated := api.subscribe(c, "b", `subscription { conversationCreated { id participants { user { id } } } }`, nil)
	defer cancelCreated()
	strangers, cancelStrangers := api.subscribe(c, "c", `subscription { conversationCreated { id } }`, nil)
	defer cancelStrangers()
	anonymous, cancelAnonymous := api.subscribe(c, "", `subscription { conversationCreated { id } }`, nil)
	defer cancelAnonymous()
	updated, cancelUpdated := api.subscribe(c, "b", `subscription { conversationUpdated { conversation { id latestMessage { id } } } }`, nil)
	defer cancelUpdated()
	deleted, cancelDeleted := api.subscribe(c, "b", `subscription { conversationDeleted { id } }`, nil)
	defer cancelDeleted()

	id := api.createConversation(c, "a", "a", "b")

	var createdOut struct {
		ConversationCreated struct {
			ID           string
			Participants []struct{ User struct{ ID string } }
		}
	}
	next(c, created, &createdOut)
	c.Check(createdOut.ConversationCreated.ID, qt.Equals, id)
	c.Check(createdOut.ConversationCreated.Participants, qt.HasLen, 2)
	nothing(c, strangers)
	nothing(c, anonymous)

	ctx := auth.WithSession(context.Background(), &auth.Session{UserID: "a"})
	response := api.schema.Exec(ctx, `mutation($conv: String!) { sendMessage(id: "m1", senderId: "a", conversationId: $conv, body: "x") }`, "", map[string]any{"conv": id})
	c.Assert(response.Errors, qt.HasLen, 0)

	var updatedOut struct {
		ConversationUpdated struct {
			Conversation struct {
				ID            string
				LatestMessage struct{ ID string }
			}
		}
	}
	next(c, updated, &updatedOut)
	c.Check(updatedOut.ConversationUpdated.Conversation.LatestMessage.ID, qt.Equals, "m1")

	response = api.schema.Exec(ctx, `mutation($conv: String!) { deleteConversation(conversationId: $conv) }`, "", map[string]any{"conv": id})
	c.Assert(response.Errors, qt.HasLen, 0)

	var deletedOut struct {
		ConversationDeleted struct{ ID string }
	}
	next(c, deleted, &deletedOut)
	c.Check(deletedOut.ConversationDeleted.ID, qt.Equals, id)

	for _, cancel := range []context.CancelFunc{cancelCreated, cancelStrangers, cancelAnonymous, cancelUpdated, cancelDeleted} {
		cancel()
	}
	for _, ch := range []<-chan any{created, strangers, anonymous, updated, deleted} {
		for range ch {
		}
	}
}

func TestSubscriptionDetachesOnCancel(t *testing.T) {
	c := qt.New(t)
	api := newTestAPI(c, "a")

	responses, cancel := api.subscribe(c, "a", `subscription { conversationDeleted { id } }`, nil)
	c.Assert(api.bus.SubscriberCount(service.TopicConversationDeleted), qt.Equals, 1)
	cancel()
	for range responses {
	}
	c.Assert(func() bool {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if api.bus.SubscriberCount(service.TopicConversationDeleted) == 0 {
				return true
			}
			time.Sleep(5 * time.Millisecond)
		}
		return false
	}(), qt.IsTrue)
}
