/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Message is a single chat message. It is never updated or deleted on its own,
// only together with its conversation.
type Message struct {
	ID             string    `gorm:"primaryKey;size:191" json:"id"` // Generated by the client
	Body           string    `gorm:"type:text;not null" json:"body"`
	SenderID       string    `gorm:"size:191;not null;index" json:"senderId"`
	ConversationID string    `gorm:"size:36;not null;index" json:"conversationId"`
	CreatedAt      time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"not null" json:"updatedAt"`

	Sender *User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
}
