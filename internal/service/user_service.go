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
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/chaterrors"
	"github.com/krishna-kudari/chatService/internal/entity"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/repository"

	"github.com/juju/errors"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// Service used to look users up and let them pick a username
type UserService interface {
	EnsureUser(ctx context.Context, session *auth.Session) error                                 // Makes sure the authenticated user has a row
	SearchUsers(ctx context.Context, rc RequestContext, username string) ([]*entity.User, error) // Users whose username contains the given text, the caller excluded
	CreateUsername(ctx context.Context, rc RequestContext, username string) error                // Assigns a username to the caller
}

type localUserService struct {
	users  repository.UserRepository
	logger nlog.Logger

	known sync.Map // User ids already ensured by this process
}

func NewUserService(users repository.UserRepository, logger nlog.Logger) UserService {
	return &localUserService{
		users:  users,
		logger: logger,
	}
}

func (s *localUserService) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

func (s *localUserService) EnsureUser(ctx context.Context, session *auth.Session) error {
	if session == nil || session.UserID == "" {
		return nil
	}
	if _, ok := s.known.Load(session.UserID); ok {
		return nil
	}

	user := &entity.User{ID: session.UserID}
	if session.Email != "" {
		user.Email = &session.Email
	}
	if session.Name != "" {
		user.Name = &session.Name
	}
	if session.Image != "" {
		user.Image = &session.Image
	}
	if err := s.users.Ensure(ctx, user); err != nil {
		return errors.Annotatef(err, "ensuring user %s", session.UserID)
	}
	s.known.Store(session.UserID, struct{}{})
	return nil
}

func (s *localUserService) SearchUsers(ctx context.Context, rc RequestContext, username string) ([]*entity.User, error) {
	caller, err := rc.caller()
	if err != nil {
		return nil, err
	}

	users, err := s.users.SearchByUsername(ctx, strings.TrimSpace(username), caller.UserID)
	if err != nil {
		s.Logf("User search {%s} failed {%v}", username, err)
		return nil, chaterrors.Fault(chaterrors.QueryFailed, err)
	}
	return users, nil
}

// CreateUsername fails, like every other mutation, instead of returning the error inside its result
func (s *localUserService) CreateUsername(ctx context.Context, rc RequestContext, username string) error {
	caller, err := rc.caller()
	if err != nil {
		return err
	}

	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return chaterrors.Invalidf("username must be 1 to 32 letters, digits, '_', '.' or '-'")
	}

	owner, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil && owner.ID == caller.UserID:
		return nil
	case err == nil:
		return fmt.Errorf("%q: %w", username, chaterrors.UsernameTaken)
	case !errors.Is(err, chaterrors.UserNotFound):
		return chaterrors.Fault(chaterrors.UpdateFailed, err)
	}

	if err := s.users.UpdateUsername(ctx, caller.UserID, username); err != nil {
		if errors.Is(err, chaterrors.UsernameTaken) {
			return err
		}
		s.Logf("Could not set username of %s {%v}", caller.UserID, err)
		return chaterrors.Fault(chaterrors.UpdateFailed, err)
	}

	s.Logf("User %s is now known as %s", caller.UserID, username)
	return nil
}
