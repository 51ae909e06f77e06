/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"encoding/json"
	"fmt"

	"github.com/krishna-kudari/chatService/internal/entity"
)

// Topics of the event bus. Conversation topics carry a populated *entity.Conversation,
// TopicMessageSent a *entity.Message with its sender.
const (
	TopicConversationCreated = "CONVERSATION_CREATED"
	TopicConversationUpdated = "CONVERSATION_UPDATED"
	TopicConversationDeleted = "CONVERSATION_DELETED"
	TopicMessageSent         = "MESSAGE_SENT"
)

// Topics lists every topic the chat publishes on
var Topics = []string{TopicConversationCreated, TopicConversationUpdated, TopicConversationDeleted, TopicMessageSent}

// DecodeEvent rebuilds the payload of topic from its JSON form
func DecodeEvent(topic string, payload []byte) (any, error) {
	switch topic {
	case TopicConversationCreated, TopicConversationUpdated, TopicConversationDeleted:
		var conversation entity.Conversation
		if err := json.Unmarshal(payload, &conversation); err != nil {
			return nil, err
		}
		return &conversation, nil
	case TopicMessageSent:
		var message entity.Message
		if err := json.Unmarshal(payload, &message); err != nil {
			return nil, err
		}
		return &message, nil
	}
	return nil, fmt.Errorf("Unknown topic {%s}", topic)
}
