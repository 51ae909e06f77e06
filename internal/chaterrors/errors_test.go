/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package chaterrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFaultKeepsBothCauses(t *testing.T) {
	storeErr := errors.New("UNIQUE constraint failed: messages.id")
	err := Fault(SendFailed, storeErr)

	if !errors.Is(err, SendFailed) {
		t.Errorf("Expected the fault to be a SendFailed")
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("Expected the store error to stay reachable")
	}
	if err.Error() != "send failed: UNIQUE constraint failed: messages.id" {
		t.Errorf("Unexpected message {%s}", err.Error())
	}
	if !IsPersistenceFault(err) {
		t.Errorf("Expected a persistence fault")
	}
}

func TestFaultDoesNotWrapTwice(t *testing.T) {
	err := Fault(QueryFailed, Fault(QueryFailed, errors.New("boom")))
	if err.Error() != "query failed: boom" {
		t.Errorf("Unexpected message {%s}", err.Error())
	}
	if Fault(QueryFailed, nil) != nil {
		t.Errorf("Expected nil for a nil cause")
	}
}

func TestNotFoundThroughFault(t *testing.T) {
	err := Fault(SendFailed, fmt.Errorf("user %q in conversation %q: %w", "u1", "c1", ParticipantNotFound))
	if !IsNotFound(err) {
		t.Errorf("Expected a not found error, got {%v}", err)
	}
	if IsNotFound(Invalidf("empty body")) {
		t.Errorf("A validation error is not a not found error")
	}
	if !errors.Is(Invalidf("empty body"), ValidationFailed) {
		t.Errorf("Expected ValidationFailed")
	}
}
