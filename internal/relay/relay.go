/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package relay carries the events of the local bus to the other chat server instances, and back.
// Every instance publishes what its own operations produce and delivers, without forwarding again,
// what the others publish.
package relay

import (
	"context"
	"encoding/json"

	"github.com/krishna-kudari/chatService/internal/service"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// Deliverer is the local side of the relay, it hands remote events to local subscribers only
type Deliverer interface {
	Deliver(topic string, payload any) int
}

// Relay forwards local events to the other instances and delivers theirs
type Relay interface {
	Forward(topic string, payload any)              // Called by the bus for every locally published event
	Run(ctx context.Context, local Deliverer) error // Delivers remote events until ctx is done
	Close() error
}

// envelope is the wire form of a relayed event
type envelope struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// codec stamps outgoing events with the instance id and drops the instance's own events when they come back
type codec struct {
	origin string
}

func newCodec() codec {
	return codec{origin: uuid.NewString()}
}

func (c codec) encode(topic string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Annotatef(err, "encoding %s payload", topic)
	}
	return json.Marshal(envelope{Origin: c.origin, Topic: topic, Payload: raw})
}

// decode returns the topic and typed payload of data. own is true for events this instance sent
func (c codec) decode(data []byte) (topic string, payload any, own bool, err error) {
	var e envelope
	if err = json.Unmarshal(data, &e); err != nil {
		return "", nil, false, errors.Annotate(err, "decoding envelope")
	}
	if e.Origin == c.origin {
		return e.Topic, nil, true, nil
	}
	payload, err = service.DecodeEvent(e.Topic, e.Payload)
	if err != nil {
		return e.Topic, nil, false, errors.Annotatef(err, "decoding %s payload", e.Topic)
	}
	return e.Topic, payload, false, nil
}
