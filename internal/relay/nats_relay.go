/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package relay

import (
	"context"

	"github.com/krishna-kudari/chatService/internal/nlog"

	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
)

// NATSRelay relays events on the subjects "<prefix>.<topic>" of a NATS server
type NATSRelay struct {
	conn   *nats.Conn
	prefix string
	codec  codec
	logger nlog.Logger
}

func NewNATSRelay(url, prefix string, logger nlog.Logger) (*NATSRelay, error) {
	codec := newCodec()
	conn, err := nats.Connect(url,
		nats.Name("chat-"+codec.origin),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Logf("Disconnected from NATS: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Logf("Reconnected to NATS at %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Annotatef(err, "connecting to NATS at %s", url)
	}
	return &NATSRelay{conn: conn, prefix: prefix, codec: codec, logger: logger}, nil
}

func (r *NATSRelay) Forward(topic string, payload any) {
	data, err := r.codec.encode(topic, payload)
	if err != nil {
		r.logger.Logf("Not relaying %s: %v", topic, err)
		return
	}
	if err := r.conn.Publish(r.prefix+"."+topic, data); err != nil {
		r.logger.Logf("Could not publish %s on NATS: %v", topic, err)
	}
}

func (r *NATSRelay) Run(ctx context.Context, local Deliverer) error {
	sub, err := r.conn.Subscribe(r.prefix+".>", func(m *nats.Msg) {
		topic, payload, own, err := r.codec.decode(m.Data)
		switch {
		case err != nil:
			r.logger.Logf("Dropping message on %s: %v", m.Subject, err)
		case !own:
			local.Deliver(topic, payload)
		}
	})
	if err != nil {
		return errors.Annotatef(err, "subscribing to %s.>", r.prefix)
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return errors.Trace(err)
	}
	return nil
}

// Close flushes what is pending and closes the connection
func (r *NATSRelay) Close() error {
	if err := r.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		r.conn.Close()
		return errors.Trace(err)
	}
	return nil
}
