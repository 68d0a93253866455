package widget

import (
	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/inactivity"
	"github.com/jamerly/chatbox/pkg/session"
	"github.com/jamerly/chatbox/pkg/useraction"
)

type Option func(*Widget)

// WithSessionStore sets where the session id is persisted. The default is
// an in-memory store.
func WithSessionStore(store session.Store) Option {
	return func(w *Widget) { w.store = store }
}

// WithStorageKey overrides the key the session id is stored under.
func WithStorageKey(key string) Option {
	return func(w *Widget) { w.storageKey = key }
}

// WithInactivity configures the inactivity monitor. A disabled config turns
// auto-close off.
func WithInactivity(cfg inactivity.Config, opts ...inactivity.Option) Option {
	return func(w *Widget) {
		w.inactivity = cfg
		w.inactivityOpts = append(w.inactivityOpts, opts...)
	}
}

// WithSink adds a sink that receives every message alongside the transcript.
func WithSink(sink chatbox.Sink) Option {
	return func(w *Widget) { w.sinks = append(w.sinks, sink) }
}

// WithID sets the widget id used to tag published messages.
func WithID(id string) Option {
	return func(w *Widget) {
		if id != "" {
			w.id = id
		}
	}
}

func WithSkin(skin Skin) Option {
	return func(w *Widget) { w.skin = skin }
}

// OnInit is called once the widget is ready. It receives the welcome text
// when the session has history and an empty string otherwise.
func OnInit(fn func(welcome string)) Option {
	return func(w *Widget) { w.onInit = fn }
}

func OnInitError(fn func(err error)) Option {
	return func(w *Widget) { w.onInitError = fn }
}

// OnDestroy is called exactly once, when the widget is torn down by
// EndChat, by inactivity or by Teardown.
func OnDestroy(fn func()) Option {
	return func(w *Widget) { w.onDestroy = fn }
}

func OnMinimize(fn func(minimized bool)) Option {
	return func(w *Widget) { w.onMinimize = fn }
}

// OnUserAction receives the operations found in each completed response.
func OnUserAction(fn func(op useraction.Operation)) Option {
	return func(w *Widget) { w.onUserAction = fn }
}

// OnAlert receives the inactivity warning text, and an empty string when
// the warning is cleared.
func OnAlert(fn func(text string)) Option {
	return func(w *Widget) { w.onAlert = fn }
}

// OnChange is called after every transcript change.
func OnChange(fn func()) Option {
	return func(w *Widget) { w.onChange = fn }
}
