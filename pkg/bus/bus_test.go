package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/redisstream"
)

type stubSubscriber struct {
	ch chan *message.Message
}

func (s *stubSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	return s.ch, nil
}

func (s *stubSubscriber) Close() error {
	close(s.ch)
	return nil
}

func TestPublishingSinkToForwarder_InOrder(t *testing.T) {
	ps, err := redisstream.Build(redisstream.Settings{}, NewZerologAdapter(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	sink := NewPublishingSink(ps.Publisher, "w1")

	var mu sync.Mutex
	var got []Envelope
	fwd := NewForwarder(ps.Subscriber, sink.Topic(), func(e Envelope) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fwd.Start(ctx))
	require.True(t, fwd.IsRunning())

	sink.Emit(chatbox.NewMessage(chatbox.MessageCommand, "hi"))
	sink.Emit(chatbox.NewMessage(chatbox.MessageResponse, "h"))
	sink.Emit(chatbox.NewMessage(chatbox.MessageResponse, "he"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, e := range got {
		require.Equal(t, "w1", e.WidgetID)
		require.Equal(t, uint64(i+1), e.Seq)
	}
	require.Equal(t, "he", got[2].Message.Content)
}

func TestForwarder_SkipsUndecodableMessages(t *testing.T) {
	ch := make(chan *message.Message, 2)
	sub := &stubSubscriber{ch: ch}
	got := make(chan Envelope, 2)
	fwd := NewForwarder(sub, "t", func(e Envelope) { got <- e })
	require.NoError(t, fwd.Start(context.Background()))

	ch <- message.NewMessage("1", []byte("not json"))
	ch <- message.NewMessage("2", []byte(`{"widgetId":"w","seq":7,"message":{"type":"info","content":"x"}}`))
	close(ch)

	select {
	case e := <-got:
		require.Equal(t, uint64(7), e.Seq)
		require.Equal(t, chatbox.MessageInfo, e.Message.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for forwarded message")
	}
	fwd.Wait()
	require.False(t, fwd.IsRunning())
}

func TestUnmarshalEnvelope_RequiresType(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte(`{"widgetId":"w"}`))
	require.Error(t, err)
}
