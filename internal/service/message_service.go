/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"context"
	"strings"

	"github.com/krishna-kudari/chatService/internal/chaterrors"
	"github.com/krishna-kudari/chatService/internal/entity"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/repository"
)

// SendMessageInput is the message the client wants to send, with the id it generated
type SendMessageInput struct {
	ID             string
	SenderID       string
	ConversationID string
	Body           string
}

// Service used to read and send messages
type MessageService interface {
	Messages(ctx context.Context, rc RequestContext, conversationID string) ([]*entity.Message, error) // Returns the messages of a conversation the caller takes part in, newest first
	SendMessage(ctx context.Context, rc RequestContext, input SendMessageInput) (bool, error)          // Sends a message as the caller
}

type localMessageService struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	logger        nlog.Logger
}

func NewMessageService(messages repository.MessageRepository, conversations repository.ConversationRepository, logger nlog.Logger) MessageService {
	return &localMessageService{
		messages:      messages,
		conversations: conversations,
		logger:        logger,
	}
}

func (s *localMessageService) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

func (s *localMessageService) Messages(ctx context.Context, rc RequestContext, conversationID string) ([]*entity.Message, error) {
	caller, err := rc.caller()
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		if chaterrors.IsNotFound(err) {
			return nil, err
		}
		return nil, chaterrors.Fault(chaterrors.QueryFailed, err)
	}
	if !IsParticipant(conversation.Participants, caller.UserID) {
		s.Logf("User %s asked for the messages of conversation %s without being part of it", caller.UserID, conversationID)
		return nil, chaterrors.Unauthorized
	}

	messages, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, chaterrors.Fault(chaterrors.QueryFailed, err)
	}
	return messages, nil
}

// SendMessage stores the message and moves the conversation forward in one transaction,
// then publishes MESSAGE_SENT followed by CONVERSATION_UPDATED.
// Once the transaction commits the call succeeds, even if the populated payloads cannot be reloaded.
func (s *localMessageService) SendMessage(ctx context.Context, rc RequestContext, input SendMessageInput) (bool, error) {
	caller, err := rc.caller()
	if err != nil {
		return false, err
	}
	if input.SenderID != caller.UserID {
		s.Logf("User %s tried to send a message as %s", caller.UserID, input.SenderID)
		return false, chaterrors.Unauthorized
	}
	switch {
	case strings.TrimSpace(input.ID) == "":
		return false, chaterrors.Invalidf("message id is empty")
	case strings.TrimSpace(input.ConversationID) == "":
		return false, chaterrors.Invalidf("conversation id is empty")
	case strings.TrimSpace(input.Body) == "":
		return false, chaterrors.Invalidf("message body is empty")
	}

	message := &entity.Message{
		ID:             input.ID,
		SenderID:       input.SenderID,
		ConversationID: input.ConversationID,
		Body:           input.Body,
	}
	if err := s.messages.Send(ctx, message); err != nil {
		s.Logf("Could not send message %s in conversation %s {%v}", input.ID, input.ConversationID, err)
		return false, chaterrors.Fault(chaterrors.SendFailed, err)
	}

	// The message is committed from here on: read-back failures are logged, never returned.
	sent, err := s.messages.Get(ctx, message.ID)
	if err != nil {
		s.Logf("Could not reload sent message %s {%v}", message.ID, err)
		sent = message
	}
	rc.publish(TopicMessageSent, sent)

	conversation, err := s.conversations.Get(ctx, message.ConversationID)
	if err != nil {
		s.Logf("Could not reload conversation %s after message %s, %s not published {%v}", message.ConversationID, message.ID, TopicConversationUpdated, err)
		return true, nil
	}
	rc.publish(TopicConversationUpdated, conversation)
	return true, nil
}
