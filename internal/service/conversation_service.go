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

// Service used to handle conversations and their read state
type ConversationService interface {
	Conversations(ctx context.Context, rc RequestContext) ([]*entity.Conversation, error)               // Returns every conversation the caller takes part in, populated
	CreateConversation(ctx context.Context, rc RequestContext, participantIDs []string) (string, error) // Creates a conversation between the given users, returning its id
	MarkConversationAsRead(ctx context.Context, rc RequestContext, userID, conversationID string) error // Marks the latest message of the conversation as seen by userID
	DeleteConversation(ctx context.Context, rc RequestContext, conversationID string) error             // Deletes the conversation with its participants and messages
}

type localConversationService struct {
	conversations repository.ConversationRepository
	logger        nlog.Logger
}

func NewConversationService(conversations repository.ConversationRepository, logger nlog.Logger) ConversationService {
	return &localConversationService{
		conversations: conversations,
		logger:        logger,
	}
}

func (s *localConversationService) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

func (s *localConversationService) Conversations(ctx context.Context, rc RequestContext) ([]*entity.Conversation, error) {
	caller, err := rc.caller()
	if err != nil {
		return nil, err
	}

	conversations, err := s.conversations.ListForUser(ctx, caller.UserID)
	if err != nil {
		s.Logf("Could not list the conversations of %s {%v}", caller.UserID, err)
		return nil, chaterrors.Fault(chaterrors.QueryFailed, err)
	}
	return conversations, nil
}

func (s *localConversationService) CreateConversation(ctx context.Context, rc RequestContext, participantIDs []string) (string, error) {
	caller, err := rc.caller()
	if err != nil {
		return "", err
	}

	ids := uniqueIDs(participantIDs)
	if len(ids) == 0 {
		return "", chaterrors.Invalidf("a conversation needs at least one participant")
	}

	conversation := &entity.Conversation{}
	for _, id := range ids {
		conversation.Participants = append(conversation.Participants, &entity.ConversationParticipant{
			UserID:               id,
			HasSeenLatestMessage: id == caller.UserID,
		})
	}

	if err := s.conversations.Create(ctx, conversation); err != nil {
		s.Logf("Could not create a conversation for %v {%v}", ids, err)
		return "", chaterrors.Fault(chaterrors.CreateFailed, err)
	}

	populated, err := s.conversations.Get(ctx, conversation.ID)
	if err != nil {
		s.Logf("Conversation %s was created but could not be read back {%v}", conversation.ID, err)
		return "", chaterrors.Fault(chaterrors.CreateFailed, err)
	}

	s.Logf("User %s created conversation %s with %d participants", caller.UserID, populated.ID, len(ids))
	rc.publish(TopicConversationCreated, populated)

	return populated.ID, nil
}

func (s *localConversationService) MarkConversationAsRead(ctx context.Context, rc RequestContext, userID, conversationID string) error {
	if _, err := rc.caller(); err != nil {
		return err
	}

	participant, err := s.conversations.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if chaterrors.IsNotFound(err) {
			s.Logf("UNEXPECTED: no participant row for user %s in conversation %s", userID, conversationID)
			return err
		}
		return chaterrors.Fault(chaterrors.UpdateFailed, err)
	}

	if err := s.conversations.MarkParticipantRead(ctx, participant.ID); err != nil {
		s.Logf("Could not mark conversation %s as read for %s {%v}", conversationID, userID, err)
		return chaterrors.Fault(chaterrors.UpdateFailed, err)
	}
	return nil
}

func (s *localConversationService) DeleteConversation(ctx context.Context, rc RequestContext, conversationID string) error {
	caller, err := rc.caller()
	if err != nil {
		return err
	}

	snapshot, err := s.conversations.Delete(ctx, conversationID)
	if err != nil {
		s.Logf("Could not delete conversation %s {%v}", conversationID, err)
		return chaterrors.Fault(chaterrors.DeleteFailed, err)
	}

	s.Logf("User %s deleted conversation %s", caller.UserID, conversationID)
	rc.publish(TopicConversationDeleted, snapshot)
	return nil
}

// uniqueIDs trims ids and drops empty and repeated ones, keeping the first occurrence order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
