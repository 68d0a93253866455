package chatbox

// MessageType classifies a chat transcript entry.
type MessageType string

const (
	MessageInfo     MessageType = "info"
	MessageCommand  MessageType = "command"
	MessageResponse MessageType = "response"
	MessageError    MessageType = "error"
	MessageWarn     MessageType = "warn"
)

// SessionStorageKey is the fixed name under which the session id is persisted.
const SessionStorageKey = "chatbox_chat_token"

// Message is one entry of the chat transcript. Messages are values and are
// never mutated after being emitted.
type Message struct {
	Type    MessageType `json:"type" yaml:"type"`
	Content string      `json:"content" yaml:"content"`
}

func NewMessage(t MessageType, content string) Message {
	return Message{Type: t, Content: content}
}

// HistoryItem is one user/assistant exchange returned by the history endpoint.
type HistoryItem struct {
	UserMessage string `json:"userMessage" yaml:"userMessage"`
	AIResponse  string `json:"aiResponse" yaml:"aiResponse"`
}

// Sink receives messages as they are produced by the core.
type Sink interface {
	Emit(Message)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Message)

func (f SinkFunc) Emit(m Message) {
	if f != nil {
		f(m)
	}
}

// MultiSink fans a message out to several sinks, in order.
type MultiSink []Sink

func (ms MultiSink) Emit(m Message) {
	for _, s := range ms {
		if s != nil {
			s.Emit(m)
		}
	}
}
