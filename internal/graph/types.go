/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package graph

import "github.com/krishna-kudari/chatService/internal/entity"

type SearchedUserResolver struct {
	user *entity.User
}

func (r *SearchedUserResolver) ID() string {
	return r.user.ID
}

func (r *SearchedUserResolver) Username() *string {
	return r.user.Username
}

// userSummary returns a resolver for user, falling back to its bare id when the row was not loaded
func userSummary(user *entity.User, id string) *SearchedUserResolver {
	if user == nil {
		user = &entity.User{ID: id}
	}
	return &SearchedUserResolver{user}
}

type ParticipantResolver struct {
	participant *entity.ConversationParticipant
}

func (r *ParticipantResolver) ID() string {
	return r.participant.ID
}

func (r *ParticipantResolver) User() *SearchedUserResolver {
	return userSummary(r.participant.User, r.participant.UserID)
}

func (r *ParticipantResolver) HasSeenLatestMessage() bool {
	return r.participant.HasSeenLatestMessage
}

type MessageResolver struct {
	message *entity.Message
}

func (r *MessageResolver) ID() string {
	return r.message.ID
}

func (r *MessageResolver) Sender() *SearchedUserResolver {
	return userSummary(r.message.Sender, r.message.SenderID)
}

func (r *MessageResolver) Body() string {
	return r.message.Body
}

func (r *MessageResolver) ConversationID() string {
	return r.message.ConversationID
}

func (r *MessageResolver) CreatedAt() Date {
	return NewDate(r.message.CreatedAt)
}

type ConversationResolver struct {
	conversation *entity.Conversation
}

func (r *ConversationResolver) ID() string {
	return r.conversation.ID
}

func (r *ConversationResolver) LatestMessage() *MessageResolver {
	if r.conversation.LatestMessage == nil {
		return nil
	}
	return &MessageResolver{r.conversation.LatestMessage}
}

func (r *ConversationResolver) Participants() []*ParticipantResolver {
	participants := make([]*ParticipantResolver, 0, len(r.conversation.Participants))
	for _, p := range r.conversation.Participants {
		participants = append(participants, &ParticipantResolver{p})
	}
	return participants
}

func (r *ConversationResolver) CreatedAt() Date {
	return NewDate(r.conversation.CreatedAt)
}

func (r *ConversationResolver) UpdatedAt() Date {
	return NewDate(r.conversation.UpdatedAt)
}

type ConversationUpdatedResolver struct {
	conversation *entity.Conversation
}

func (r *ConversationUpdatedResolver) Conversation() *ConversationResolver {
	return &ConversationResolver{r.conversation}
}

type CreateConversationResponse struct {
	conversationID string
}

func (r *CreateConversationResponse) ConversationID() string {
	return r.conversationID
}

type CreateUsernameResponse struct {
	success bool
}

func (r *CreateUsernameResponse) Success() bool {
	return r.success
}

// Error is always null, failures are returned as GraphQL errors
func (r *CreateUsernameResponse) Error() *string {
	return nil
}
