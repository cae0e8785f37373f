package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe([]Topic{TopicCommandResult}, "", 10)
	if sub == nil {
		t.Fatal("Subscribe() returned nil")
	}
	if cap(sub.Channel) != 10 {
		t.Errorf("Expected channel buffer size 10, got %d", cap(sub.Channel))
	}
	if count := ps.SubscriberCount(TopicCommandResult); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}

	other := ps.Subscribe([]Topic{TopicCommandResult}, "", 1)
	if other.ID == sub.ID {
		t.Errorf("subscriber ids should be unique, both %q", sub.ID)
	}
}

func TestSubscribe_MultipleTopics(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(AllTopics, "", 10)

	ps.Publish(TopicWindow, "", "w")
	ps.Publish(TopicVideo, "", "v")

	for _, want := range []Topic{TopicWindow, TopicVideo} {
		select {
		case ev := <-sub.Channel:
			if ev.Topic != want {
				t.Errorf("got topic %s, want %s", ev.Topic, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no event for %s", want)
		}
	}

	ps.Unsubscribe(sub)
	for _, topic := range AllTopics {
		if n := ps.SubscriberCount(topic); n != 0 {
			t.Errorf("topic %s still has %d subscribers", topic, n)
		}
	}
	if _, ok := <-sub.Channel; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestPublish_Filter(t *testing.T) {
	ps := New()
	video := ps.Subscribe([]Topic{TopicWindow}, "video", 5)
	all := ps.Subscribe([]Topic{TopicWindow}, "", 5)

	ps.Publish(TopicWindow, "cues", "opened")

	if len(video.Channel) != 0 {
		t.Error("filtered subscriber should not receive other filters")
	}
	if len(all.Channel) != 1 {
		t.Error("unfiltered subscriber should receive everything")
	}
}

func TestPublish_FullBufferDoesNotBlock(t *testing.T) {
	ps := New()
	sub := ps.Subscribe([]Topic{TopicConsoleState}, "", 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			ps.Publish(TopicConsoleState, "", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if ev := <-sub.Channel; ev.Payload != 0 {
		t.Errorf("first payload = %v, want 0", ev.Payload)
	}
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	ps := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub := ps.Subscribe([]Topic{TopicCommandResult}, "", 1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			ps.Publish(TopicCommandResult, "", "x")
		}()
		go func() {
			defer wg.Done()
			ps.Unsubscribe(sub)
		}()
	}
	wg.Wait()
	if n := ps.SubscriberCount(TopicCommandResult); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}
