package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/trust-graph/pkg/logging"
)

// ErrClosed is returned by Publish and Subscribe once the publisher is closed.
var ErrClosed = errors.New("publisher is closed")

// subscriberQueue is the channel capacity of every subscription.
const subscriberQueue = 100

// SnapshotFunc describes the current state of a topic as a single event.
// ok is false when there is nothing to send yet.
type SnapshotFunc func() (eventType string, data any, ok bool)

// TopicConfig controls what a new subscriber receives before live events.
type TopicConfig struct {
	// BufferSize is how many published events the topic keeps (0 keeps none).
	BufferSize int
	// ReplayAll replays the whole buffer instead of only its newest event.
	ReplayAll bool
	// Snapshot, when set, replaces buffer replay: a new subscriber is sent
	// the current state instead of past events.
	Snapshot SnapshotFunc
}

// topic holds the per-topic state of an SSEPublisher.
type topic struct {
	config  TopicConfig
	version int
	backlog []Event
	subs    map[*sseSubscription]struct{}
}

// replay returns the buffered events a new subscriber should see.
func (t *topic) replay() []Event {
	if len(t.backlog) == 0 {
		return nil
	}
	if t.config.ReplayAll {
		return append([]Event(nil), t.backlog...)
	}
	return []Event{t.backlog[len(t.backlog)-1]}
}

// remember appends event to the backlog, keeping the newest BufferSize events.
func (t *topic) remember(event Event) {
	size := t.config.BufferSize
	if size <= 0 {
		return
	}
	t.backlog = append(t.backlog, event)
	if over := len(t.backlog) - size; over > 0 {
		t.backlog = append(t.backlog[:0], t.backlog[over:]...)
	}
}

// SSEPublisher fans events out to subscribers per topic. Each topic has its
// own version counter, backlog and optional snapshot source.
type SSEPublisher struct {
	mu     sync.RWMutex
	topics map[string]*topic
	closed bool
}

// NewSSEPublisher creates a publisher with no topics configured.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topic)}
}

// lookup returns the state for name, creating it if needed. Callers hold mu.
func (p *SSEPublisher) lookup(name string) *topic {
	t, ok := p.topics[name]
	if !ok {
		t = &topic{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets the replay behavior of a topic. It may be called again
// later, for example to attach a snapshot source once it exists.
func (p *SSEPublisher) ConfigureTopic(name string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.lookup(name)
	t.config = config
	if config.BufferSize <= 0 {
		t.backlog = nil
	} else if over := len(t.backlog) - config.BufferSize; over > 0 {
		t.backlog = t.backlog[over:]
	}
}

// Subscribe registers a subscriber on a topic. Before any live event it
// receives either the topic snapshot or the configured replay from the
// backlog. The subscription is removed when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	t := p.lookup(name)
	t.subs[sub] = struct{}{}

	snapshot := t.config.Snapshot
	version := t.version
	var backlog []Event
	if snapshot == nil {
		backlog = t.replay()
	}
	p.mu.Unlock()

	// The snapshot source may take its own locks and publish, so it runs
	// without mu held. Anything published after registration is queued
	// behind it and is never older than the snapshot.
	if snapshot != nil {
		if event, ok := p.snapshotEvent(name, version, snapshot); ok {
			backlog = []Event{event}
		}
	}
	p.mu.RLock()
	if !p.closed {
		for _, event := range backlog {
			sub.offer(event)
		}
	}
	p.mu.RUnlock()
	if len(backlog) > 0 {
		logging.Debug("sent initial events to subscriber", "topic", name, "count", len(backlog))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

func (p *SSEPublisher) snapshotEvent(name string, version int, snapshot SnapshotFunc) (Event, bool) {
	eventType, data, ok := snapshot()
	if !ok {
		return Event{}, false
	}
	payload, err := json.Marshal(data)
	if err != nil {
		logging.Warn("could not encode topic snapshot", "topic", name, "error", err)
		return Event{}, false
	}
	return Event{Topic: name, Type: eventType, Data: payload, Version: version}, true
}

// Publish encodes data as the next version of a topic and delivers it to
// every subscriber. A subscriber whose queue is full misses the event.
func (p *SSEPublisher) Publish(name string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event on %s: %w", eventType, name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.lookup(name)
	t.version++
	event := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.remember(event)

	for sub := range t.subs {
		sub.offer(event)
	}
	return nil
}

// Close ends every subscription and rejects further use of the publisher.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

// subscribers reports how many subscriptions a topic has.
func (p *SSEPublisher) subscribers(name string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if t, ok := p.topics[name]; ok {
		return len(t.subs)
	}
	return 0
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher

	mu     sync.Mutex
	closed bool
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription. The events channel is left open; readers
// stop on their own context.
func (s *sseSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.publisher.unsubscribe(s)
	return nil
}

// offer queues event without blocking the publisher.
func (s *sseSubscription) offer(event Event) {
	select {
	case s.events <- event:
	default:
		logging.Warn("subscriber queue full, dropping event", "topic", s.topic, "type", event.Type, "version", event.Version)
	}
}

// WriteSSE writes event as one SSE message: "data: {json}\n\n".
func WriteSSE(w io.Writer, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
