/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package chaterrors holds the sentinel errors shared by the storage, service and API layers.
package chaterrors

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// Unauthorized is returned when the request carries no session, or acts on behalf of someone else.
	Unauthorized = errors.ConstError("not authorized")

	// ValidationFailed is returned for malformed input.
	ValidationFailed = errors.ConstError("validation failed")

	ConversationNotFound = errors.ConstError("conversation not found")
	ParticipantNotFound  = errors.ConstError("participant not found")
	UserNotFound         = errors.ConstError("user not found")

	// UsernameTaken is returned when another account already owns the requested username.
	UsernameTaken = errors.ConstError("username already taken")
)

// Persistence fault kinds. Each wraps the store error that caused it.
const (
	QueryFailed  = errors.ConstError("query failed")
	CreateFailed = errors.ConstError("create failed")
	UpdateFailed = errors.ConstError("update failed")
	DeleteFailed = errors.ConstError("delete failed")
	SendFailed   = errors.ConstError("send failed")
)

// Fault wraps err with the given fault kind, keeping the original message text.
// Both kind and err stay reachable through errors.Is.
func Fault(kind errors.ConstError, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Invalidf builds a ValidationFailed error with a description of the offending input.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ValidationFailed, fmt.Sprintf(format, args...))
}

// IsNotFound tells whether err refers to a missing conversation, participant or user.
func IsNotFound(err error) bool {
	return errors.Is(err, ConversationNotFound) ||
		errors.Is(err, ParticipantNotFound) ||
		errors.Is(err, UserNotFound)
}

// IsPersistenceFault tells whether err was raised by the store.
func IsPersistenceFault(err error) bool {
	for _, kind := range []error{QueryFailed, CreateFailed, UpdateFailed, DeleteFailed, SendFailed} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
