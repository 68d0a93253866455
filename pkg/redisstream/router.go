package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PubSub bundles the publisher and subscriber of one transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	client redis.UniversalClient
	group  string
}

// Client returns the redis client, or nil for the in-memory transport.
func (p *PubSub) Client() redis.UniversalClient {
	return p.client
}

// Group is the consumer group the subscriber reads with. Empty for the
// in-memory transport.
func (p *PubSub) Group() string {
	return p.group
}

// EnsureConsumerGroup pre-creates the subscriber's consumer group on topic at
// the stream tail. It does nothing for the in-memory transport.
func (p *PubSub) EnsureConsumerGroup(ctx context.Context, topic string) error {
	if p.client == nil {
		return nil
	}
	return EnsureGroupAtTail(ctx, p.client, topic, p.group)
}

func (p *PubSub) Close() error {
	var firstErr error
	if p.Publisher != nil {
		firstErr = p.Publisher.Close()
	}
	if p.Subscriber != nil && any(p.Subscriber) != any(p.Publisher) {
		if err := p.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build returns a Redis Streams transport when enabled and an in-process
// go channel otherwise. The in-process publisher blocks until subscribers
// have acknowledged, which keeps delivery in publish order.
func Build(s Settings, logger watermill.LoggerAdapter) (*PubSub, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if !s.Enabled {
		gc := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		return &PubSub{Publisher: gc, Subscriber: gc}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "create redis stream publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "create redis stream subscriber")
	}

	log.Debug().Str("component", "redisstream").Str("addr", s.Addr).Str("group", s.Group).Msg("redis streams transport ready")
	return &PubSub{Publisher: pub, Subscriber: sub, client: client, group: s.Group}, nil
}

// EnsureGroupAtTail creates the consumer group for a given stream at the tail ($) if it doesn't exist.
// This prevents full historical replay on first subscribe.
func EnsureGroupAtTail(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	if client == nil {
		return errors.New("nil redis client")
	}
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		// Ignore BUSYGROUP errors (group already exists)
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return err
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}
