package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_DeliversPublishedEventToMatchingTopic(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe(TopicMatchCompleted, 4)
	defer sub.Cancel()

	b.Publish(TopicMatchCompleted, "payload")

	select {
	case evt := <-sub.Events:
		assert.Equal(t, "payload", evt.Payload)
		assert.Equal(t, TopicMatchCompleted, evt.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribe_DoesNotReceiveOtherTopics(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe(TopicMatchCompleted, 4)
	defer sub.Cancel()

	b.Publish(TopicRoundStarted, "unrelated")

	select {
	case evt := <-sub.Events:
		t.Fatalf("unexpected event on unrelated topic: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_SequenceNumbersIncreaseMonotonically(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe(TopicRoundStarted, 4)
	defer sub.Cancel()

	b.Publish(TopicRoundStarted, 1)
	b.Publish(TopicRoundStarted, 2)

	first := <-sub.Events
	second := <-sub.Events
	assert.Less(t, first.Seq, second.Seq)
}

func TestCancel_ClosesChannelAndStopsDelivery(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe(TopicMatchCompleted, 4)
	sub.Cancel()

	_, ok := <-sub.Events
	assert.False(t, ok, "channel should be closed after Cancel")
}

func TestPublish_LossyTopicCoalescesUnderBackpressure(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe(TopicStandingsUpdated, 1)
	defer sub.Cancel()

	// fill the single-slot queue, then publish twice more without
	// draining: the lossy coalescing path must never block.
	done := make(chan struct{})
	go func() {
		b.Publish(TopicStandingsUpdated, "a")
		b.Publish(TopicStandingsUpdated, "b")
		b.Publish(TopicStandingsUpdated, "c")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lossy publish blocked instead of coalescing")
	}

	evt := <-sub.Events
	assert.Equal(t, "c", evt.Payload, "subscriber should observe the freshest value")
}

func TestPublish_ConcurrentWithCancelNeverPanics(t *testing.T) {
	b := New(nil)

	for i := 0; i < 200; i++ {
		sub := b.Subscribe(TopicMatchCompleted, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				b.Publish(TopicMatchCompleted, j)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Cancel()
		}()
		wg.Wait()

		// drain whatever was queued before Cancel closed the channel;
		// the range ends once the closed channel is empty.
		for range sub.Events {
		}
	}
}

func TestMultipleSubscribersToSameTopicEachReceiveEvent(t *testing.T) {
	b := New(nil)
	sub1 := b.Subscribe(TopicEventStarted, 4)
	sub2 := b.Subscribe(TopicEventStarted, 4)
	defer sub1.Cancel()
	defer sub2.Cancel()

	b.Publish(TopicEventStarted, "go")

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case evt := <-sub.Events:
			require.Equal(t, "go", evt.Payload)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}
