package stream

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultReadSize = 4096

// Reader turns a response body into a lazy, ordered sequence of frames.
//
// Frames are delivered on the channel returned by Frames. The channel is
// closed when the stream ends, either on the end-of-stream marker, on EOF or
// on a read error; Err reports the latter once the channel is closed.
type Reader struct {
	body     io.ReadCloser
	frames   chan Frame
	readSize int

	mu   sync.Mutex
	err  error
	done bool

	closeOnce sync.Once
	cancel    context.CancelFunc
}

type ReaderOption func(*Reader)

// WithReadSize sets the size of each read from the body.
func WithReadSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.readSize = n
		}
	}
}

// WithBuffer sets the frame channel capacity.
func WithBuffer(n int) ReaderOption {
	return func(r *Reader) {
		if n >= 0 {
			r.frames = make(chan Frame, n)
		}
	}
}

// NewReader starts consuming body. Cancelling ctx stops the reader and closes
// the body.
func NewReader(ctx context.Context, body io.ReadCloser, opts ...ReaderOption) *Reader {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &Reader{
		body:     body,
		frames:   make(chan Frame, 16),
		readSize: defaultReadSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go r.consume(runCtx)
	return r
}

// Failed returns a reader that yields no frames and terminates with err.
func Failed(err error) *Reader {
	r := &Reader{frames: make(chan Frame), err: err, cancel: func() {}}
	close(r.frames)
	return r
}

// Frames returns the frame channel. It is not restartable.
func (r *Reader) Frames() <-chan Frame {
	return r.frames
}

// Err returns the terminal error, if any. It is only meaningful after the
// frame channel has been closed.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// SawDone reports whether the stream ended on the end-of-stream marker.
func (r *Reader) SawDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Close cancels the reader and releases the body.
func (r *Reader) Close() error {
	r.cancel()
	return r.closeBody()
}

func (r *Reader) closeBody() error {
	var err error
	r.closeOnce.Do(func() {
		if r.body != nil {
			err = r.body.Close()
		}
	})
	return err
}

func (r *Reader) finish(err error, done bool) {
	r.mu.Lock()
	r.err = err
	r.done = done
	r.mu.Unlock()
	close(r.frames)
}

func (r *Reader) consume(ctx context.Context) {
	defer func() {
		if err := r.closeBody(); err != nil {
			log.Debug().Err(err).Str("component", "stream").Msg("closing response body failed")
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = r.closeBody()
	})
	defer stop()

	dec := NewDecoder()
	buf := make([]byte, r.readSize)
	for {
		n, readErr := r.body.Read(buf)
		if n > 0 {
			frames, done := dec.Write(string(buf[:n]))
			if !r.send(ctx, frames) {
				r.finish(errors.Wrap(ctx.Err(), "stream cancelled"), false)
				return
			}
			if done {
				r.finish(nil, true)
				return
			}
		}
		if readErr == nil {
			continue
		}
		if ctx.Err() != nil {
			r.finish(errors.Wrap(ctx.Err(), "stream cancelled"), false)
			return
		}
		if readErr != io.EOF {
			r.finish(errors.Wrap(readErr, "reading chat stream"), false)
			return
		}
		frames, done := dec.Flush()
		if !r.send(ctx, frames) {
			r.finish(errors.Wrap(ctx.Err(), "stream cancelled"), false)
			return
		}
		r.finish(nil, done)
		return
	}
}

func (r *Reader) send(ctx context.Context, frames []Frame) bool {
	for _, f := range frames {
		select {
		case r.frames <- f:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
