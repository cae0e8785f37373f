// Package pubsub fans console events out to WebSocket and MQTT observers.
package pubsub

import (
	"strconv"
	"sync"
)

// Topic represents a subscription topic.
type Topic string

const (
	TopicCommandResult Topic = "COMMAND_RESULT"
	TopicConsoleState  Topic = "CONSOLE_STATE_CHANGED"
	TopicWindow        Topic = "WINDOW_CHANGED"
	TopicVideo         Topic = "VIDEO_CHANGED"
	TopicOutputConfig  Topic = "OUTPUT_CONFIG_CHANGED"
)

// AllTopics lists every topic, for observers that want everything.
var AllTopics = []Topic{TopicCommandResult, TopicConsoleState, TopicWindow, TopicVideo, TopicOutputConfig}

// Event is what a subscriber receives.
type Event struct {
	Topic   Topic       `json:"topic"`
	Payload interface{} `json:"payload"`
}

// Subscriber receives events for one or more topics on Channel.
type Subscriber struct {
	ID      string
	Topics  []Topic
	Filter  string // Optional filter value (e.g., window name)
	Channel chan Event
}

// PubSub manages subscriptions and message distribution.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*Subscriber
	nextID      int
}

// New creates a new PubSub instance.
func New() *PubSub {
	return &PubSub{
		subscribers: make(map[Topic][]*Subscriber),
	}
}

// Subscribe creates a subscription covering the given topics.
func (ps *PubSub) Subscribe(topics []Topic, filter string, bufferSize int) *Subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &Subscriber{
		ID:      strconv.Itoa(ps.nextID),
		Topics:  append([]Topic(nil), topics...),
		Filter:  filter,
		Channel: make(chan Event, bufferSize),
	}
	for _, topic := range topics {
		ps.subscribers[topic] = append(ps.subscribers[topic], sub)
	}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (ps *PubSub) Unsubscribe(sub *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	found := false
	for _, topic := range sub.Topics {
		subs := ps.subscribers[topic]
		for i, s := range subs {
			if s.ID == sub.ID {
				ps.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
	}
	if found {
		close(sub.Channel)
	}
}

// Publish sends a message to the topic's subscribers without blocking.
// If filter is non-empty, only subscribers with a matching or empty filter
// receive it. Subscribers with a full buffer miss the message.
func (ps *PubSub) Publish(topic Topic, filter string, message interface{}) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	event := Event{Topic: topic, Payload: message}
	for _, sub := range ps.subscribers[topic] {
		if sub.Filter == "" || filter == "" || sub.Filter == filter {
			select {
			case sub.Channel <- event:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}
