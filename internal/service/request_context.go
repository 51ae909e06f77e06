/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/chaterrors"
	"github.com/krishna-kudari/chatService/internal/eventbus"
)

// RequestContext is what every chat operation receives about the request it serves:
// who is calling (nil when unauthenticated) and where events go.
type RequestContext struct {
	Session *auth.Session
	Events  eventbus.Publisher
}

func NewRequestContext(session *auth.Session, events eventbus.Publisher) RequestContext {
	return RequestContext{Session: session, Events: events}
}

// caller returns the session, or Unauthorized when there is none
func (rc RequestContext) caller() (*auth.Session, error) {
	if rc.Session == nil || rc.Session.UserID == "" {
		return nil, chaterrors.Unauthorized
	}
	return rc.Session, nil
}

// publish hands payload to the event publisher, if any
func (rc RequestContext) publish(topic string, payload any) {
	if rc.Events != nil {
		rc.Events.Publish(topic, payload)
	}
}
