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

// This repository is used to manipulate conversations together with their participants.
// Every read returns "populated" conversations: participants with their user, and the latest message with its sender.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error            // Inserts the conversation and its Participants in one transaction
	Delete(ctx context.Context, id string) (*entity.Conversation, error)            // Deletes the conversation, its participants and its messages in one transaction, returning the state before deletion
	Get(ctx context.Context, id string) (*entity.Conversation, error)               // Retrieves a populated conversation, ConversationNotFound if absent
	ListForUser(ctx context.Context, userID string) ([]*entity.Conversation, error) // Retrieves every conversation the user takes part in

	GetParticipant(ctx context.Context, conversationID, userID string) (*entity.ConversationParticipant, error) // ParticipantNotFound if the user is not in the conversation
	MarkParticipantRead(ctx context.Context, participantID string) error                                        // Sets HasSeenLatestMessage on the participant row
}

// Implementation of the repository on top of gorm
type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &GormConversationRepository{db}
}

// populated adds the preloads every conversation read needs
func populated(db *gorm.DB) *gorm.DB {
	return db.Preload("Participants.User").Preload("LatestMessage.Sender")
}

func (repo *GormConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participants := conversation.Participants

		if err := tx.Omit(clause.Associations).Create(conversation).Error; err != nil {
			return err
		}
		if len(participants) == 0 {
			return nil
		}
		for _, p := range participants {
			p.ConversationID = conversation.ID
		}
		return tx.Omit(clause.Associations).Create(participants).Error
	})
}

func (repo *GormConversationRepository) Delete(ctx context.Context, id string) (*entity.Conversation, error) {
	var snapshot entity.Conversation

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := populated(tx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&snapshot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("conversation %q: %w", id, chaterrors.ConversationNotFound)
		}
		if err != nil {
			return err
		}

		if err := tx.Where("conversation_id = ?", id).Delete(&entity.ConversationParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&entity.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Conversation{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (repo *GormConversationRepository) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := populated(repo.db.WithContext(ctx)).Where("id = ?", id).First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("conversation %q: %w", id, chaterrors.ConversationNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (repo *GormConversationRepository) ListForUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	db := repo.db.WithContext(ctx)
	memberOf := db.Model(&entity.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", userID)

	var conversations []*entity.Conversation
	err := populated(db).Where("id IN (?)", memberOf).Find(&conversations).Error
	return conversations, err
}

func (repo *GormConversationRepository) GetParticipant(ctx context.Context, conversationID, userID string) (*entity.ConversationParticipant, error) {
	var participant entity.ConversationParticipant
	err := repo.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q in conversation %q: %w", userID, conversationID, chaterrors.ParticipantNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (repo *GormConversationRepository) MarkParticipantRead(ctx context.Context, participantID string) error {
	return repo.db.WithContext(ctx).
		Model(&entity.ConversationParticipant{}).
		Where("id = ?", participantID).
		Update("has_seen_latest_message", true).Error
}
