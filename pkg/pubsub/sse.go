package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ritzau/archscope/pkg/logging"
)

var logger = logging.New("pubsub")

// ErrClosed is returned by a publisher after Close
var ErrClosed = errors.New("publisher is closed")

// subscriberBuffer is the channel capacity of one subscription
const subscriberBuffer = 100

// TopicConfig configures replay for a topic. Buffers are kept per event key, so a new
// subscriber sees the recent history of every project, not just the busiest one.
type TopicConfig struct {
	BufferSize int  // Events kept per key (0 = no replay)
	ReplayAll  bool // Replay every buffered event; otherwise only the latest per key
}

type topicState struct {
	config  TopicConfig
	version int
	subs    map[*sseSubscription]struct{}
	history map[string][]Event // key -> most recent events
}

// SSEPublisher implements Publisher for Server-Sent Events streams
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topicState)}
}

// topic returns the state of a topic, creating it on first use. Callers hold p.mu.
func (p *SSEPublisher) topic(name string) *topicState {
	t, ok := p.topics[name]
	if !ok {
		t = &topicState{
			subs:    make(map[*sseSubscription]struct{}),
			history: make(map[string][]Event),
		}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets the replay configuration of a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(topic).config = config
}

// Subscribe registers a subscription and queues the replayed history on it.
// The subscription is closed when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	t := p.topic(topic)
	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	replay := t.replay()
	// Queue the replay before registering so live events cannot overtake it
	for _, event := range replay {
		select {
		case sub.events <- event:
		default:
			logger.Warn("could not replay event to new subscriber", "topic", topic, "version", event.Version)
		}
	}
	t.subs[sub] = struct{}{}
	p.mu.Unlock()

	if len(replay) > 0 {
		logger.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// replay returns the buffered events to send to a new subscriber in version order
func (t *topicState) replay() []Event {
	var events []Event
	for _, history := range t.history {
		if t.config.ReplayAll {
			events = append(events, history...)
		} else if len(history) > 0 {
			events = append(events, history[len(history)-1])
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Version < events[j].Version })
	return events
}

// Publish sends an event for a key (project id) to all subscribers of a topic.
// Slow subscribers whose buffer is full miss the event instead of blocking the publisher.
func (p *SSEPublisher) Publish(topic, key, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	t := p.topic(topic)
	t.version++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Key:     key,
		Data:    payload,
		Version: t.version,
	}

	if size := t.config.BufferSize; size > 0 {
		history := append(t.history[key], event)
		if len(history) > size {
			history = history[len(history)-size:]
		}
		t.history[key] = history
	}

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			logger.Warn("subscription channel full, dropping event", "topic", topic, "version", event.Version)
		}
	}
	return nil
}

// Close shuts down the publisher and closes every subscription channel
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

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	once      sync.Once
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close stops delivery. The events channel stays open; readers should also watch their
// own context.
func (s *sseSubscription) Close() error {
	s.once.Do(func() { s.publisher.unsubscribe(s) })
	return nil
}

// WriteSSE writes one event frame: "id: {version}\nevent: {type}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Type, frame)
	return err
}
