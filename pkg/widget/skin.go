package widget

// Skin selects how the transcript is presented. It does not change behavior.
type Skin string

const (
	SkinTerminal Skin = "terminal"
	SkinChatbox  Skin = "chatbox"
)

const terminalPrompt = "guest@chatbox:~$ "

// Prompt returns the prefix shown before user commands.
func (s Skin) Prompt() string {
	if s == SkinChatbox {
		return "You: "
	}
	return terminalPrompt
}

func (s Skin) Toggle() Skin {
	if s == SkinChatbox {
		return SkinTerminal
	}
	return SkinChatbox
}

func (w *Widget) Skin() Skin {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skin
}

// ToggleSkin switches between the terminal and chatbox skins.
func (w *Widget) ToggleSkin() Skin {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skin = w.skin.Toggle()
	return w.skin
}
