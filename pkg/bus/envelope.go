package bus

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

const topicPrefix = "chatbox."

// TopicForWidget names the topic carrying one widget's messages.
func TopicForWidget(widgetID string) string {
	return topicPrefix + widgetID
}

// Envelope is the wire form of a transcript message on the bus.
type Envelope struct {
	WidgetID string          `json:"widgetId"`
	Seq      uint64          `json:"seq"`
	Message  chatbox.Message `json:"message"`
}

func (e Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	return b, errors.Wrap(err, "marshal envelope")
}

func UnmarshalEnvelope(payload []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "unmarshal envelope")
	}
	if e.Message.Type == "" {
		return Envelope{}, errors.New("envelope has no message type")
	}
	return e, nil
}
