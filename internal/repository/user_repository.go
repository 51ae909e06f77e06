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
	"strings"

	"github.com/krishna-kudari/chatService/internal/chaterrors"
	"github.com/krishna-kudari/chatService/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// This repository reads the accounts created by the identity provider and assigns usernames.
type UserRepository interface {
	Ensure(ctx context.Context, user *entity.User) error // Inserts the user if no row with the same id exists, leaving existing rows untouched

	GetByID(ctx context.Context, id string) (*entity.User, error)             // Retrieves a user by id, UserNotFound if absent
	GetByUsername(ctx context.Context, username string) (*entity.User, error) // Retrieves a user by exact username, UserNotFound if absent

	SearchByUsername(ctx context.Context, fragment, excludeID string) ([]*entity.User, error) // Case-insensitive substring search, skipping the user excludeID
	UpdateUsername(ctx context.Context, id, username string) error                            // Sets the username of the user with the given id
}

// Implementation of the repository on top of gorm, usable with every supported dialect
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db}
}

func (repo *GormUserRepository) Ensure(ctx context.Context, user *entity.User) error {
	return repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user).Error
}

func (repo *GormUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", id, chaterrors.UserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *GormUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := repo.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("username %q: %w", username, chaterrors.UserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *GormUserRepository) SearchByUsername(ctx context.Context, fragment, excludeID string) ([]*entity.User, error) {
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"

	var users []*entity.User
	err := repo.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '!'", pattern).
		Where("id <> ?", excludeID).
		Order("username ASC").
		Find(&users).Error
	return users, err
}

func (repo *GormUserRepository) UpdateUsername(ctx context.Context, id, username string) error {
	res := repo.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update("username", username)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%q: %w", username, chaterrors.UsernameTaken)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %q: %w", id, chaterrors.UserNotFound)
	}
	return nil
}

// escapeLike escapes the LIKE wildcards in s using '!', which every supported dialect accepts as escape character
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
