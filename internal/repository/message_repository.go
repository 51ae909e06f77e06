/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishna-kudari/chatService/internal/chaterrors"
	"github.com/krishna-kudari/chatService/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// This repository is used to manipulate the messages in the system. Messages are only created (Send) and read,
// deletion happens together with their conversation.
type MessageRepository interface {
	Send(ctx context.Context, message *entity.Message) error // Inserts the message and moves the conversation's read state forward, in one transaction

	Get(ctx context.Context, id string) (*entity.Message, error)                               // Retrieves a message with its sender
	ListForConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) // Retrieves the messages of a conversation, newest first
}

// Implementation of the repository on top of gorm
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &GormMessageRepository{db}
}

// Send runs, in a single transaction:
//  1. insert of the message
//  2. lookup of the sender's participant row (ParticipantNotFound rolls the insert back)
//  3. update of the conversation's latest message, the sender's row set as seen and every other row as unseen
//
// The conversation row is locked first, so concurrent sends on the same conversation are serialized
// where the dialect supports row locks.
func (repo *GormMessageRepository) Send(ctx context.Context, message *entity.Message) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation entity.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", message.ConversationID).First(&conversation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("conversation %q: %w", message.ConversationID, chaterrors.ConversationNotFound)
		}
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(message).Error; err != nil {
			return err
		}

		var sender entity.ConversationParticipant
		err = tx.Where("conversation_id = ? AND user_id = ?", message.ConversationID, message.SenderID).First(&sender).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %q in conversation %q: %w", message.SenderID, message.ConversationID, chaterrors.ParticipantNotFound)
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&entity.Conversation{}).Where("id = ?", message.ConversationID).Update("latest_message_id", message.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.ConversationParticipant{}).Where("id = ?", sender.ID).Update("has_seen_latest_message", true).Error; err != nil {
			return err
		}
		return tx.Model(&entity.ConversationParticipant{}).
			Where("conversation_id = ? AND id <> ?", message.ConversationID, sender.ID).
			Update("has_seen_latest_message", false).Error
	})
}

func (repo *GormMessageRepository) Get(ctx context.Context, id string) (*entity.Message, error) {
	var message entity.Message
	err := repo.db.WithContext(ctx).Preload("Sender").Where("id = ?", id).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (repo *GormMessageRepository) ListForConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Find(&messages).Error
	return messages, err
}
