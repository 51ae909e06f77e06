/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package graph

import (
	"context"
	"fmt"

	"github.com/krishna-kudari/chatService/internal/chaterrors"
	"github.com/krishna-kudari/chatService/internal/nlog"

	"github.com/juju/errors"
)

// Codes reported in the "extensions.code" field of GraphQL errors
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUsernameTaken    = "USERNAME_TAKEN"
	CodePersistenceFault = "PERSISTENCE_FAULT"
	CodeInternal         = "INTERNAL"
)

// apiError is a resolver error carrying its code in the GraphQL extensions
type apiError struct {
	err  error
	code string
}

func (e *apiError) Error() string {
	return e.err.Error()
}

func (e *apiError) Unwrap() error {
	return e.err
}

func (e *apiError) Extensions() map[string]any {
	return map[string]any{"code": e.code}
}

// ErrorCode classifies err, most specific kind first
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, chaterrors.Unauthorized):
		return CodeUnauthorized
	case errors.Is(err, chaterrors.ValidationFailed):
		return CodeValidationFailed
	case errors.Is(err, chaterrors.UsernameTaken):
		return CodeUsernameTaken
	case chaterrors.IsNotFound(err):
		return CodeNotFound
	case chaterrors.IsPersistenceFault(err):
		return CodePersistenceFault
	}
	return CodeInternal
}

func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	return &apiError{err: err, code: ErrorCode(err)}
}

// panicLogger reports resolver panics on the graphql subsystem
type panicLogger struct {
	logger nlog.Logger
}

func (p panicLogger) LogPanic(ctx context.Context, value any) {
	p.logger.Logf("PANIC while resolving: %s", fmt.Sprint(value))
}
