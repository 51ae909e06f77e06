/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/entity"
)

// IsParticipant tells whether userID owns one of the participant rows
func IsParticipant(participants []*entity.ConversationParticipant, userID string) bool {
	for _, p := range participants {
		if p != nil && p.UserID == userID {
			return true
		}
	}
	return false
}

// ConversationEventVisible decides whether a conversationCreated/Updated/Deleted event reaches the subscriber
// authenticated as s. It never panics: a missing session or payload simply suppresses the delivery.
func ConversationEventVisible(s *auth.Session, conversation *entity.Conversation) bool {
	if s == nil || s.UserID == "" || conversation == nil {
		return false
	}
	return IsParticipant(conversation.Participants, s.UserID)
}

// MessageEventVisible decides whether a messageSent event reaches a subscriber listening on conversationID
func MessageEventVisible(s *auth.Session, message *entity.Message, conversationID string) bool {
	if s == nil || s.UserID == "" || message == nil {
		return false
	}
	return message.ConversationID == conversationID
}
