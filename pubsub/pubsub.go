// Package pubsub provides the core functionalities to handle
// publication/subscription pipelines, used to broadcast connection
// events to interested observers.
package pubsub

import (
	"fmt"
	"sync"
)

// CancelFunc removes a subscription. Safe to call more than once.
type CancelFunc func()

// PubSub wraps the core pubsub functionalities.
type PubSub struct {
	// QueueSize is the number of messages a slow subscriber may
	// lag behind before publications to it get dropped.
	QueueSize int

	sync.Mutex
	registry map[string]*topic
}

type topic struct {
	sync.Mutex
	name string
	subs map[int]*subscriber
	next int // next subscriber key
}

type subscriber struct {
	ch   chan interface{}
	once sync.Once
}

// New returns a new PubSub instance.
func New() *PubSub {
	return &PubSub{
		QueueSize: 10,
		registry:  make(map[string]*topic),
	}
}

// Sub subscribes f to tname, creating the topic if needed. f is called
// sequentially, in its own goroutine, with each message published on
// the topic.
func (ps *PubSub) Sub(tname string, f func(interface{})) (CancelFunc, error) {
	if f == nil {
		return nil, fmt.Errorf("pubsub: sub on [%v]: nil receiver", tname)
	}

	t := ps.topic(tname)

	sub := &subscriber{ch: make(chan interface{}, ps.QueueSize)}

	t.Lock()
	key := t.next
	t.next++
	t.subs[key] = sub
	t.Unlock()

	go func() {
		for m := range sub.ch {
			f(m)
		}
	}()

	cancel := func() {
		t.Lock()
		if _, ok := t.subs[key]; ok {
			delete(t.subs, key)
		}
		t.Unlock()

		sub.once.Do(func() { close(sub.ch) })
	}

	return cancel, nil
}

// Pub publishes message to every subscriber of topic. Subscribers that
// cannot keep up miss the message instead of blocking the publisher.
// Publishing on a topic nobody subscribed to is not an error.
func (ps *PubSub) Pub(message interface{}, tname string) error {
	ps.Lock()
	t, ok := ps.registry[tname]
	ps.Unlock()
	if !ok {
		return nil
	}

	t.Lock()
	defer t.Unlock()

	for _, sub := range t.subs {
		select {
		case sub.ch <- message:
		default:
		}
	}

	return nil
}

// Close removes a topic and cancels its subscriptions.
func (ps *PubSub) Close(tname string) error {
	ps.Lock()
	t, ok := ps.registry[tname]
	delete(ps.registry, tname)
	ps.Unlock()
	if !ok {
		return fmt.Errorf("pubsub: close: topic [%v] not found", tname)
	}

	t.Lock()
	defer t.Unlock()
	for key, sub := range t.subs {
		delete(t.subs, key)
		sub.once.Do(func() { close(sub.ch) })
	}

	return nil
}

func (ps *PubSub) topic(tname string) *topic {
	ps.Lock()
	defer ps.Unlock()

	t, ok := ps.registry[tname]
	if !ok {
		t = &topic{
			name: tname,
			subs: make(map[int]*subscriber),
		}
		ps.registry[tname] = t
	}

	return t
}
