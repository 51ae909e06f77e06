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
	"github.com/krishna-kudari/chatService/internal/eventbus"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/service"
)

// Resolver is the root resolver of Query, Mutation and Subscription
type Resolver struct {
	conversations service.ConversationService
	messages      service.MessageService
	users         service.UserService
	bus           *eventbus.Bus
	logger        nlog.Logger
}

func (r *Resolver) Logf(format string, v ...any) {
	r.logger.Logf(format, v...)
}

// requestContext builds the per-request context out of the session stored by the HTTP or websocket layer
func (r *Resolver) requestContext(ctx context.Context) service.RequestContext {
	var events eventbus.Publisher
	if r.bus != nil {
		events = r.bus
	}
	return service.NewRequestContext(auth.SessionFromContext(ctx), events)
}

// fail logs the failed operation and turns err into a GraphQL error
func (r *Resolver) fail(operation string, err error) error {
	apiErr := toAPIError(err)
	r.Logf("%s failed {%s}: %v", operation, ErrorCode(err), err)
	return apiErr
}

//============================================================================//
//  Query                                                                     //
//============================================================================//

func (r *Resolver) Conversations(ctx context.Context) ([]*ConversationResolver, error) {
	conversations, err := r.conversations.Conversations(ctx, r.requestContext(ctx))
	if err != nil {
		return nil, r.fail("conversations", err)
	}
	resolvers := make([]*ConversationResolver, 0, len(conversations))
	for _, c := range conversations {
		resolvers = append(resolvers, &ConversationResolver{c})
	}
	return resolvers, nil
}

func (r *Resolver) Messages(ctx context.Context, args struct{ ConversationID string }) ([]*MessageResolver, error) {
	messages, err := r.messages.Messages(ctx, r.requestContext(ctx), args.ConversationID)
	if err != nil {
		return nil, r.fail("messages", err)
	}
	resolvers := make([]*MessageResolver, 0, len(messages))
	for _, m := range messages {
		resolvers = append(resolvers, &MessageResolver{m})
	}
	return resolvers, nil
}

func (r *Resolver) SearchUsers(ctx context.Context, args struct{ Username string }) ([]*SearchedUserResolver, error) {
	users, err := r.users.SearchUsers(ctx, r.requestContext(ctx), args.Username)
	if err != nil {
		return nil, r.fail("searchUsers", err)
	}
	resolvers := make([]*SearchedUserResolver, 0, len(users))
	for _, u := range users {
		resolvers = append(resolvers, &SearchedUserResolver{u})
	}
	return resolvers, nil
}

//============================================================================//
//  Mutation                                                                  //
//============================================================================//

func (r *Resolver) CreateConversation(ctx context.Context, args struct{ ParticipantIDs []string }) (*CreateConversationResponse, error) {
	id, err := r.conversations.CreateConversation(ctx, r.requestContext(ctx), args.ParticipantIDs)
	if err != nil {
		return nil, r.fail("createConversation", err)
	}
	return &CreateConversationResponse{id}, nil
}

func (r *Resolver) MarkConversationAsRead(ctx context.Context, args struct {
	UserID         string
	ConversationID string
}) (bool, error) {
	if err := r.conversations.MarkConversationAsRead(ctx, r.requestContext(ctx), args.UserID, args.ConversationID); err != nil {
		return false, r.fail("markConversationAsRead", err)
	}
	return true, nil
}

func (r *Resolver) DeleteConversation(ctx context.Context, args struct{ ConversationID string }) (bool, error) {
	if err := r.conversations.DeleteConversation(ctx, r.requestContext(ctx), args.ConversationID); err != nil {
		return false, r.fail("deleteConversation", err)
	}
	return true, nil
}

func (r *Resolver) SendMessage(ctx context.Context, args struct {
	ID             string
	SenderID       string
	ConversationID string
	Body           string
}) (bool, error) {
	sent, err := r.messages.SendMessage(ctx, r.requestContext(ctx), service.SendMessageInput{
		ID:             args.ID,
		SenderID:       args.SenderID,
		ConversationID: args.ConversationID,
		Body:           args.Body,
	})
	if err != nil {
		return false, r.fail("sendMessage", err)
	}
	return sent, nil
}

func (r *Resolver) CreateUsername(ctx context.Context, args struct{ Username string }) (*CreateUsernameResponse, error) {
	if err := r.users.CreateUsername(ctx, r.requestContext(ctx), args.Username); err != nil {
		return nil, r.fail("createUsername", err)
	}
	return &CreateUsernameResponse{success: true}, nil
}
