package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sinkBuffer is the per-sink queue depth. A sink that falls this far behind
// cannot be given a complete in-order stream anymore, so the broker tears it
// down instead of leaving a silent gap; the client reconnects and re-snapshots.
const sinkBuffer = 64

// Sink is one subscriber's live output channel, attached to exactly one topic.
type Sink struct {
	ID     string
	topic  string
	ch     chan Envelope
	closed atomic.Bool
}

// Topic returns the topic this sink is attached to.
func (s *Sink) Topic() string {
	return s.topic
}

// Events returns the sink's receive channel. The channel is closed when the
// sink is torn down.
func (s *Sink) Events() <-chan Envelope {
	return s.ch
}

// Closed reports whether the sink has been torn down.
func (s *Sink) Closed() bool {
	return s.closed.Load()
}

// Broker is the process-wide topic registry. One instance is constructed in
// main and shared by every publisher and every connection handler; callers must
// only go through Subscribe/Unsubscribe/Publish.
type Broker struct {
	mu     sync.Mutex
	topics map[string]map[*Sink]bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]map[*Sink]bool),
	}
}

// Subscribe attaches a new sink to topic, creating the topic set on first use.
// The handshake frame is queued before the sink joins the set, so it is always
// the first event the subscriber receives.
func (b *Broker) Subscribe(topic string) *Sink {
	s := &Sink{
		ID:    uuid.NewString(),
		topic: topic,
		ch:    make(chan Envelope, sinkBuffer),
	}
	s.ch <- Envelope{
		Topic:       topic,
		Name:        EventReady,
		Payload:     ReadyPayload{OK: true},
		PublishedAt: time.Now(),
	}

	b.mu.Lock()
	set, ok := b.topics[topic]
	if !ok {
		set = make(map[*Sink]bool)
		b.topics[topic] = set
	}
	set[s] = true
	total := len(set)
	b.mu.Unlock()

	log.Info().
		Str("topic", topic).
		Str("sink_id", s.ID).
		Int("subscribers", total).
		Msg("sink subscribed")

	return s
}

// Unsubscribe detaches the sink from its topic and closes its channel. It is
// idempotent: repeated calls, or a call racing the broker's own slow-sink
// teardown, are no-ops.
func (b *Broker) Unsubscribe(s *Sink) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	var remaining int
	if set, ok := b.topics[s.topic]; ok {
		delete(set, s)
		remaining = len(set)
		if remaining == 0 {
			delete(b.topics, s.topic)
		}
	}
	close(s.ch)
	b.mu.Unlock()

	log.Info().
		Str("topic", s.topic).
		Str("sink_id", s.ID).
		Int("subscribers", remaining).
		Msg("sink unsubscribed")
}

// Publish serializes name/payload into one envelope and fans it out to every
// sink attached to topic. Publishing to a topic with no subscribers is the
// normal case and a no-op. A sink whose buffer is full is torn down; that never
// affects delivery to the other sinks.
func (b *Broker) Publish(topic, name string, payload any) {
	env := Envelope{
		Topic:       topic,
		Name:        name,
		Payload:     payload,
		PublishedAt: time.Now(),
	}

	var stalled []*Sink

	b.mu.Lock()
	set := b.topics[topic]
	for s := range set {
		if s.closed.Load() {
			// Detachment in flight; its Unsubscribe will remove it.
			continue
		}
		select {
		case s.ch <- env:
		default:
			stalled = append(stalled, s)
		}
	}
	for _, s := range stalled {
		if s.closed.CompareAndSwap(false, true) {
			delete(set, s)
			close(s.ch)
		}
	}
	if len(set) == 0 && set != nil {
		delete(b.topics, topic)
	}
	b.mu.Unlock()

	for _, s := range stalled {
		log.Warn().
			Str("topic", topic).
			Str("sink_id", s.ID).
			Str("event", name).
			Msg("sink buffer full, dropping slow subscriber")
	}
}

// Subscribers returns the number of sinks currently attached to topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
