package client

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"
)

// TokenSource supplies the bearer token attached to every request. An empty
// token means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// PromptTokenSource asks for the token on the terminal the first time it is
// needed and remembers the answer.
type PromptTokenSource struct {
	Query string
	UI    *input.UI

	once  sync.Once
	token string
	err   error
}

func NewPromptTokenSource() *PromptTokenSource {
	return &PromptTokenSource{
		Query: "User token (leave empty for anonymous)",
		UI: &input.UI{
			Writer: os.Stderr,
			Reader: os.Stdin,
		},
	}
}

func (p *PromptTokenSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.once.Do(func() {
		answer, err := p.UI.Ask(p.Query, &input.Options{
			Default:  "",
			Required: false,
			Loop:     false,
			Mask:     true,
		})
		if err != nil && err != input.ErrEmpty {
			p.err = errors.Wrap(err, "reading user token")
			return
		}
		p.token = strings.TrimSpace(answer)
	})
	return p.token, p.err
}
