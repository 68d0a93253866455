package bus

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Forwarder owns a subscription to one widget topic and hands decoded
// envelopes to a callback, in order.
type Forwarder struct {
	topic      string
	subscriber message.Subscriber
	onMessage  func(Envelope)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

func NewForwarder(subscriber message.Subscriber, topic string, onMessage func(Envelope)) *Forwarder {
	return &Forwarder{
		topic:      topic,
		subscriber: subscriber,
		onMessage:  onMessage,
	}
}

// Start subscribes before returning, so messages published afterwards are
// not missed.
func (f *Forwarder) Start(ctx context.Context) error {
	if f == nil || f.subscriber == nil {
		return errors.New("forwarder has no subscriber")
	}
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	ch, err := f.subscriber.Subscribe(runCtx, f.topic)
	if err != nil {
		f.mu.Unlock()
		cancel()
		return errors.Wrapf(err, "subscribe to %s", f.topic)
	}
	f.cancel = cancel
	f.running = true
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	go f.consume(ch, done)
	return nil
}

func (f *Forwarder) Stop() {
	if f == nil {
		return
	}
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = nil
	f.mu.Unlock()
}

// Wait blocks until the consume loop has exited.
func (f *Forwarder) Wait() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (f *Forwarder) IsRunning() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *Forwarder) consume(ch <-chan *message.Message, done chan struct{}) {
	defer close(done)
	log.Debug().Str("component", "bus").Str("topic", f.topic).Msg("forwarder started")
	for msg := range ch {
		env, err := UnmarshalEnvelope(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("component", "bus").Str("topic", f.topic).Msg("forwarder: failed to decode envelope")
			msg.Ack()
			continue
		}
		if f.onMessage != nil {
			f.onMessage(env)
		}
		msg.Ack()
	}
	log.Debug().Str("component", "bus").Str("topic", f.topic).Msg("forwarder stopped")
	f.mu.Lock()
	f.running = false
	f.cancel = nil
	f.mu.Unlock()
}
