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
	"fmt"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/krishna-kudari/chatService/internal/nlog"

	"github.com/juju/errors"
	zmq "github.com/pebbe/zmq4"
)

// Prepends the prefix `tcp://` to address, unless it already carries a transport
func getFullAddress(address string) string {
	if strings.Contains(address, "://") {
		return address
	}
	return fmt.Sprintf("tcp://%s", address)
}

// ZMQRelay publishes on its own PUB socket and listens to the PUB sockets of its peers.
// Frames are [topic, envelope].
type ZMQRelay struct {
	ctx *zmq.Context
	pub *zmq.Socket
	sub *zmq.Socket

	lock    sync.Mutex // Guards pub, sockets are not safe for concurrent use
	closed  bool
	running chan struct{} // Closed once Run returned
	started bool

	codec  codec
	logger nlog.Logger
}

// NewZMQRelay binds the publisher on bind and connects the subscriber to every peer
func NewZMQRelay(bind string, peers []string, logger nlog.Logger) (*ZMQRelay, error) {
	context, err := zmq.NewContext()
	if err != nil {
		return nil, errors.Annotate(err, "creating ZMQ context")
	}

	pub, err := context.NewSocket(zmq.PUB)
	if err != nil {
		context.Term()
		return nil, errors.Annotate(err, "creating PUB socket")
	}
	pub.SetLinger(0)
	if err := pub.Bind(getFullAddress(bind)); err != nil {
		pub.Close()
		context.Term()
		return nil, errors.Annotatef(err, "binding PUB socket on %s", bind)
	}

	sub, err := context.NewSocket(zmq.SUB)
	if err != nil {
		pub.Close()
		context.Term()
		return nil, errors.Annotate(err, "creating SUB socket")
	}
	sub.SetLinger(0)
	sub.SetRcvtimeo(250 * time.Millisecond)
	sub.SetSubscribe("")
	for _, peer := range peers {
		if err := sub.Connect(getFullAddress(peer)); err != nil {
			sub.Close()
			pub.Close()
			context.Term()
			return nil, errors.Annotatef(err, "connecting to peer %s", peer)
		}
	}

	return &ZMQRelay{
		ctx:     context,
		pub:     pub,
		sub:     sub,
		running: make(chan struct{}),
		codec:   newCodec(),
		logger:  logger,
	}, nil
}

func (r *ZMQRelay) Forward(topic string, payload any) {
	data, err := r.codec.encode(topic, payload)
	if err != nil {
		r.logger.Logf("Not relaying %s: %v", topic, err)
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return
	}
	if _, err := r.pub.SendMessage(topic, data); err != nil {
		r.logger.Logf("Could not publish %s: %v", topic, err)
	}
}

// Run owns the SUB socket, it closes it before returning
func (r *ZMQRelay) Run(ctx context.Context, local Deliverer) error {
	r.lock.Lock()
	if r.started || r.closed {
		r.lock.Unlock()
		return errors.New("relay already started or closed")
	}
	r.started = true
	r.lock.Unlock()

	defer close(r.running)
	defer r.sub.Close()

	for ctx.Err() == nil && !r.isClosed() {
		frames, err := r.sub.RecvMessageBytes(0)
		if err != nil {
			if isRecvNotReadyError(err) {
				continue
			}
			if zmq.AsErrno(err) == zmq.ETERM {
				return nil
			}
			return errors.Annotate(err, "receiving from peers")
		}
		if len(frames) != 2 {
			r.logger.Logf("Dropping message of %d frames", len(frames))
			continue
		}

		topic, payload, own, err := r.codec.decode(frames[1])
		switch {
		case err != nil:
			r.logger.Logf("Dropping message on %s: %v", frames[0], err)
		case !own:
			local.Deliver(topic, payload)
		}
	}
	return nil
}

func (r *ZMQRelay) isClosed() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.closed
}

// Close closes the sockets, waiting for Run to give the SUB socket back first
func (r *ZMQRelay) Close() error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.pub.Close()
	r.lock.Unlock()

	if started {
		<-r.running
	} else {
		r.sub.Close()
	}
	return errors.Trace(r.ctx.Term())
}

// isRecvNotReadyError tells whether the receive only timed out
func isRecvNotReadyError(err error) bool {
	return zmq.AsErrno(err) == zmq.AsErrno(syscall.EAGAIN)
}
