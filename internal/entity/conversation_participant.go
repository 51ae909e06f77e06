/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationParticipant joins a user to a conversation and tracks the unread indicator.
// There is exactly one row per (ConversationID, UserID).
type ConversationParticipant struct {
	ID                   string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID       string    `gorm:"size:36;not null;uniqueIndex:idx_participant_conversation_user" json:"conversationId"`
	UserID               string    `gorm:"size:191;not null;uniqueIndex:idx_participant_conversation_user;index" json:"userId"`
	HasSeenLatestMessage bool      `gorm:"not null" json:"hasSeenLatestMessage"` // False while the user has an unread message
	CreatedAt            time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"not null" json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (p *ConversationParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
