package bus

import (
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

// PublishingSink is a chatbox.Sink that publishes every message to the
// widget's topic. Publish failures are logged and the message is dropped.
type PublishingSink struct {
	publisher message.Publisher
	widgetID  string
	topic     string
	seq       atomic.Uint64
}

var _ chatbox.Sink = (*PublishingSink)(nil)

func NewPublishingSink(publisher message.Publisher, widgetID string) *PublishingSink {
	return &PublishingSink{
		publisher: publisher,
		widgetID:  widgetID,
		topic:     TopicForWidget(widgetID),
	}
}

func (s *PublishingSink) Topic() string { return s.topic }

func (s *PublishingSink) Emit(m chatbox.Message) {
	if s == nil || s.publisher == nil {
		return
	}
	env := Envelope{WidgetID: s.widgetID, Seq: s.seq.Add(1), Message: m}
	payload, err := env.Marshal()
	if err != nil {
		log.Warn().Err(err).Str("component", "bus").Str("widget_id", s.widgetID).Msg("dropping message")
		return
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("widget_id", s.widgetID)
	msg.Metadata.Set("type", string(m.Type))
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		log.Warn().Err(err).Str("component", "bus").Str("topic", s.topic).Msg("publish failed")
	}
}
