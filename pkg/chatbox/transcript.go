package chatbox

import "sync"

// Transcript is the ordered message log shown by a chat skin. It applies the
// response coalescing rule: within one turn the assembler emits the growing
// response repeatedly, and the transcript keeps a single entry for it.
//
// A turn starts with a command message. After Close, every write is dropped.
type Transcript struct {
	mu          sync.RWMutex
	messages    []Message
	responseIdx int
	closed      bool
	onChange    func()
}

func NewTranscript() *Transcript {
	return &Transcript{responseIdx: -1}
}

var _ Sink = (*Transcript)(nil)

// OnChange registers a callback fired after every accepted mutation. It is
// called without the transcript lock held.
func (t *Transcript) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Emit appends m, or replaces the last entry when both m and that entry are
// the current turn's response. Any other message ends the run, so a response
// after an error gets a new entry below it.
func (t *Transcript) Emit(m Message) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	switch m.Type {
	case MessageCommand:
		t.responseIdx = -1
		t.messages = append(t.messages, m)
	case MessageResponse:
		if t.responseIdx >= 0 && t.responseIdx == len(t.messages)-1 {
			t.messages[t.responseIdx] = m
		} else {
			t.messages = append(t.messages, m)
			t.responseIdx = len(t.messages) - 1
		}
	default:
		t.responseIdx = -1
		t.messages = append(t.messages, m)
	}
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// AppendHistory replays past exchanges as command/response pairs. Replayed
// responses are never coalesced with later turns.
func (t *Transcript) AppendHistory(items []HistoryItem) {
	if len(items) == 0 {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	for _, it := range items {
		t.messages = append(t.messages,
			NewMessage(MessageCommand, it.UserMessage),
			NewMessage(MessageResponse, it.AIResponse),
		)
	}
	t.responseIdx = -1
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Reset replaces the log with the given messages.
func (t *Transcript) Reset(initial ...Message) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.messages = append([]Message(nil), initial...)
	t.responseIdx = -1
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Messages returns a copy of the log.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastResponse returns the newest response entry, if any.
func (t *Transcript) LastResponse() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Type == MessageResponse {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// Close marks the transcript as disposed. Later writes are no-ops.
func (t *Transcript) Close() {
	t.mu.Lock()
	t.closed = true
	t.onChange = nil
	t.mu.Unlock()
}

func (t *Transcript) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
