package redisstream

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, Settings{}.Validate())
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.Enabled = true
	require.NoError(t, s.Validate())

	s.Addr = ""
	require.Error(t, s.Validate())

	s = DefaultSettings()
	s.Enabled = true
	s.Consumer = ""
	require.Error(t, s.Validate())

	_, err := Build(Settings{Enabled: true}, nil)
	require.Error(t, err)
}

func TestBuild_InMemory(t *testing.T) {
	ps, err := Build(Settings{}, nil)
	require.NoError(t, err)
	require.Nil(t, ps.Client())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := ps.Subscriber.Subscribe(ctx, "topic")
	require.NoError(t, err)

	go func() {
		_ = ps.Publisher.Publish("topic", message.NewMessage(watermill.NewUUID(), []byte("one")))
	}()

	select {
	case msg := <-ch:
		require.Equal(t, "one", string(msg.Payload))
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	require.Empty(t, ps.Group())
	require.NoError(t, ps.EnsureConsumerGroup(ctx, "topic"))
	require.NoError(t, ps.Close())
}

func TestEnsureGroupAtTail(t *testing.T) {
	require.Error(t, EnsureGroupAtTail(context.Background(), nil, "s", "g"))

	addr := os.Getenv("CHATBOX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATBOX_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	stream := "chatbox.test." + watermill.NewShortUUID()
	t.Cleanup(func() { client.Del(ctx, stream) })

	require.NoError(t, EnsureGroupAtTail(ctx, client, stream, "ui"))
	require.NoError(t, EnsureGroupAtTail(ctx, client, stream, "ui"))
}

func TestEnsureConsumerGroup_UsesConfiguredGroup(t *testing.T) {
	addr := os.Getenv("CHATBOX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATBOX_TEST_REDIS_ADDR not set")
	}
	s := DefaultSettings()
	s.Enabled = true
	s.Addr = addr
	s.Group = "custom-ui"
	ps, err := Build(s, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	require.Equal(t, "custom-ui", ps.Group())

	ctx := context.Background()
	stream := "chatbox.test." + watermill.NewShortUUID()
	t.Cleanup(func() { ps.Client().Del(ctx, stream) })

	require.NoError(t, ps.EnsureConsumerGroup(ctx, stream))
	groups, err := ps.Client().XInfoGroups(ctx, stream).Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "custom-ui", groups[0].Name)
}
