/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package eventbus is the in-process broadcast registry the chat publishes its events on.
//
// Every topic maps to the subscriptions attached to it, in attach order. Publish takes a snapshot of
// that list and hands the event to each subscription's buffer before returning, so subscribers that
// attach or leave during a publish never disturb it. A subscription whose buffer is full loses the event.
package eventbus

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/krishna-kudari/chatService/internal/nlog"
)

const DefaultBuffer = 64

// Event is a payload published on a topic
type Event struct {
	Topic   string
	Payload any
}

// Publisher is the side of the bus the chat operations see
type Publisher interface {
	Publish(topic string, payload any) int
}

// Forwarder receives every event published locally, to hand it to other processes
type Forwarder interface {
	Forward(topic string, payload any)
}

// Bus is safe to share amongst goroutines
type Bus struct {
	lock        sync.RWMutex
	subscribers map[string][]*Subscription // Topic => subscriptions, in attach order
	nextID      uint64

	buffer    int
	logger    nlog.Logger
	forwarder atomic.Pointer[forwarderBox]
}

type forwarderBox struct{ f Forwarder }

// NewBus creates a bus whose subscriptions buffer up to buffer events each
func NewBus(buffer int, logger nlog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = nlog.Discard
	}
	return &Bus{
		subscribers: make(map[string][]*Subscription),
		buffer:      buffer,
		logger:      logger,
	}
}

// SetForwarder installs f as the receiver of locally published events. nil removes it
func (b *Bus) SetForwarder(f Forwarder) {
	if f == nil {
		b.forwarder.Store(nil)
		return
	}
	b.forwarder.Store(&forwarderBox{f})
}

// Subscribe attaches a new subscription to the given topics.
// It only sees events published after this call returns.
func (b *Bus) Subscribe(topics ...string) *Subscription {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.nextID++
	s := &Subscription{
		id:     b.nextID,
		topics: slices.Compact(slices.Sorted(slices.Values(topics))),
		events: make(chan Event, b.buffer),
		done:   make(chan struct{}),
		bus:    b,
	}
	for _, topic := range s.topics {
		b.subscribers[topic] = append(b.subscribers[topic], s)
	}
	return s
}

// Publish delivers payload to the current subscribers of topic, then hands it to the forwarder.
// It returns how many subscriptions received it.
func (b *Bus) Publish(topic string, payload any) int {
	delivered := b.Deliver(topic, payload)
	if box := b.forwarder.Load(); box != nil {
		box.f.Forward(topic, payload)
	}
	return delivered
}

// Deliver is Publish without forwarding, used for events coming from other processes
func (b *Bus) Deliver(topic string, payload any) int {
	b.lock.RLock()
	snapshot := slices.Clone(b.subscribers[topic])
	b.lock.RUnlock()

	event := Event{Topic: topic, Payload: payload}
	delivered := 0
	for _, s := range snapshot {
		if s.offer(event) {
			delivered++
		} else if !s.Closed() {
			b.logger.Logf("Subscription %d is not keeping up, dropped an event on %s", s.id, topic)
		}
	}
	return delivered
}

// SubscriberCount returns how many subscriptions are attached to topic
func (b *Bus) SubscriberCount(topic string) int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.subscribers[topic])
}

// detach removes s from every topic it was attached to
func (b *Bus) detach(s *Subscription) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, topic := range s.topics {
		remaining := slices.DeleteFunc(b.subscribers[topic], func(other *Subscription) bool {
			return other == s
		})
		if len(remaining) == 0 {
			delete(b.subscribers, topic)
		} else {
			b.subscribers[topic] = remaining
		}
	}
}

// Subscription is the cancellable handle returned by Subscribe
type Subscription struct {
	id     uint64
	topics []string
	events chan Event
	done   chan struct{}
	once   sync.Once
	bus    *Bus

	dropped atomic.Uint64
}

// Events is the live sequence of events. It is never closed, wait on Done as well
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed once the subscription is closed
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Closed tells whether Close was called
func (s *Subscription) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Dropped returns how many events this subscription lost because its buffer was full
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the bus. It can be called more than once
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.detach(s)
		close(s.done)
	})
}

// offer puts e in the buffer without blocking
func (s *Subscription) offer(e Event) bool {
	if s.Closed() {
		return false
	}
	select {
	case s.events <- e:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}
