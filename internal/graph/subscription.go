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

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/entity"
	"github.com/krishna-kudari/chatService/internal/eventbus"
	"github.com/krishna-kudari/chatService/internal/service"
)

// stream attaches to topic and forwards, until ctx is done, every event pick accepts.
// The subscription is taken before returning, so the caller sees every event published from then on.
func stream[T any](ctx context.Context, bus *eventbus.Bus, topic string, pick func(eventbus.Event) (T, bool)) <-chan T {
	out := make(chan T)
	if bus == nil {
		close(out)
		return out
	}
	sub := bus.Subscribe(topic)

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-sub.Events():
				value, ok := pick(event)
				if !ok {
					continue
				}
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// conversationStream streams the conversation events of topic visible to the subscriber
func (r *Resolver) conversationStream(ctx context.Context, topic string) <-chan *entity.Conversation {
	session := auth.SessionFromContext(ctx)
	return stream(ctx, r.bus, topic, func(e eventbus.Event) (*entity.Conversation, bool) {
		conversation, _ := e.Payload.(*entity.Conversation)
		return conversation, service.ConversationEventVisible(session, conversation)
	})
}

//============================================================================//
//  Subscription                                                              //
//============================================================================//

func (r *Resolver) ConversationCreated(ctx context.Context) <-chan *ConversationResolver {
	return mapStream(ctx, r.conversationStream(ctx, service.TopicConversationCreated), func(c *entity.Conversation) *ConversationResolver {
		return &ConversationResolver{c}
	})
}

func (r *Resolver) ConversationUpdated(ctx context.Context) <-chan *ConversationUpdatedResolver {
	return mapStream(ctx, r.conversationStream(ctx, service.TopicConversationUpdated), func(c *entity.Conversation) *ConversationUpdatedResolver {
		return &ConversationUpdatedResolver{c}
	})
}

func (r *Resolver) ConversationDeleted(ctx context.Context) <-chan *ConversationResolver {
	return mapStream(ctx, r.conversationStream(ctx, service.TopicConversationDeleted), func(c *entity.Conversation) *ConversationResolver {
		return &ConversationResolver{c}
	})
}

func (r *Resolver) MessageSent(ctx context.Context, args struct{ ConversationID string }) <-chan *MessageResolver {
	session := auth.SessionFromContext(ctx)
	return stream(ctx, r.bus, service.TopicMessageSent, func(e eventbus.Event) (*MessageResolver, bool) {
		message, _ := e.Payload.(*entity.Message)
		if !service.MessageEventVisible(session, message, args.ConversationID) {
			return nil, false
		}
		return &MessageResolver{message}, true
	})
}

// mapStream converts every value of in with f, closing the result when in is closed
func mapStream[A, B any](ctx context.Context, in <-chan A, f func(A) B) <-chan B {
	out := make(chan B)
	go func() {
		defer close(out)
		for value := range in {
			select {
			case out <- f(value):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
