// Package bus implements the in-process typed publish/subscribe
// surface carrying tournament lifecycle events to the live state
// aggregator and the dashboard. Modeled on a websocket hub's
// register/unregister/broadcast channels guarded by a mutex, generalized
// to typed, per-topic fan-out.
package bus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Topic identifies an event stream. Per-topic FIFO is guaranteed;
// no ordering is promised across topics.
type Topic string

const (
	TopicTournamentStarted    Topic = "TournamentStarted"
	TopicTournamentCompleted  Topic = "TournamentCompleted"
	TopicEventStarted         Topic = "EventStarted"
	TopicEventCompleted       Topic = "EventCompleted"
	TopicEventStageChanged    Topic = "EventStageChanged"
	TopicMatchCompleted       Topic = "MatchCompleted"
	TopicStandingsUpdated     Topic = "StandingsUpdated"
	TopicGroupStandingsUpdate Topic = "GroupStandingsUpdated"
	TopicRoundStarted         Topic = "RoundStarted"
	TopicSeriesStarted        Topic = "SeriesStarted"
	TopicSeriesCompleted      Topic = "SeriesCompleted"
	TopicStateSnapshot        Topic = "StateSnapshot"
)

// lossyTopics may be coalesced under backpressure: a slow subscriber's
// queue has intermediate values dropped rather than blocking the
// publisher. All other topics are lossless (bounded queue, producer
// blocks on backpressure).
var lossyTopics = map[Topic]bool{
	TopicStandingsUpdated: true,
	TopicStateSnapshot:    true,
}

// Event is one message delivered to subscribers of Topic.
type Event struct {
	Topic   Topic
	Seq     uint64
	Payload interface{}
}

const defaultQueueSize = 256

// Bus is the typed pub/sub surface. Publishing is non-blocking except
// under backpressure on a lossless topic; subscribers run on their own
// goroutine and must not block the publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic]map[string]*subscription
	nextID  uint64
	seq     uint64
	logger  *zap.SugaredLogger
}

// subscription's mu guards closed/ch together: a send must observe
// closed==false and perform its channel op atomically with that check, so
// Cancel can never close ch while a Publish is still sending on it.
// done is closed first by Cancel, without taking mu, to release a
// lossless send blocked on a full queue.
type subscription struct {
	id       string
	topic    Topic
	ch       chan Event
	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
}

func New(logger *zap.SugaredLogger) *Bus {
	return &Bus{
		subs:   make(map[Topic]map[string]*subscription),
		logger: logger,
	}
}

// Subscription is a live subscription handle. Events arrives in
// publish order for this topic only. Cancel stops delivery and
// releases the channel.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

func (s *Subscription) Cancel() { s.cancel() }

// Subscribe opens a subscription to topic with a bounded, per-subscriber
// queue of queueSize (defaultQueueSize if <= 0).
func (b *Bus) Subscribe(topic Topic, queueSize int) *Subscription {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	id := atomic.AddUint64(&b.nextID, 1)
	sub := &subscription{
		id:    formatID(id),
		topic: topic,
		ch:    make(chan Event, queueSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*subscription)
	}
	b.subs[topic][sub.id] = sub
	b.mu.Unlock()

	return &Subscription{
		Events: sub.ch,
		cancel: func() {
			b.mu.Lock()
			if m, ok := b.subs[topic]; ok {
				delete(m, sub.id)
			}
			b.mu.Unlock()

			sub.doneOnce.Do(func() { close(sub.done) })
			sub.mu.Lock()
			defer sub.mu.Unlock()
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		},
	}
}

// Publish delivers payload to every current subscriber of topic. For
// lossless topics the call blocks on a full subscriber queue
// (backpressure); for lossy topics a full queue is coalesced by
// dropping the oldest queued value and enqueuing the new one.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	seq := atomic.AddUint64(&b.seq, 1)
	evt := Event{Topic: topic, Seq: seq, Payload: payload}

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	lossy := lossyTopics[topic]
	for _, s := range subs {
		if lossy {
			b.sendLossy(s, evt)
		} else {
			b.sendLossless(s, evt)
		}
	}
}

// sendLossless sends evt on s.ch, blocking on backpressure. Held under
// s.mu so Cancel cannot close s.ch while this send is in flight; a
// send still blocked when Cancel runs is abandoned via s.done.
func (b *Bus) sendLossless(s *subscription, evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- evt:
	case <-s.done:
	}
}

func (b *Bus) sendLossy(s *subscription, evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- evt:
		return
	default:
	}

	// Queue full: drop the oldest queued value and retry once so the
	// subscriber always observes the freshest snapshot rather than a
	// stale one.
	select {
	case <-s.ch:
		if b.logger != nil {
			b.logger.Debugw("bus: coalesced event, dropped oldest", "topic", evt.Topic)
		}
	default:
	}

	select {
	case s.ch <- evt:
	default:
		if b.logger != nil {
			b.logger.Debugw("bus: dropped event after coalesce retry", "topic", evt.Topic)
		}
	}
}

func formatID(n uint64) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%16]
		n /= 16
	}
	return "sub-" + string(buf[i:])
}
