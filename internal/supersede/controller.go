// Package supersede makes sure a client applies only the newest response for
// the view it renders into.
//
// Each request runs under a Token. Beginning a request cancels every token
// that renders into the same view, and a response is applied only if its
// token is still the active one. Cancellation is advisory for whatever is in
// flight; it is authoritative for what gets applied.
package supersede

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultView is the view every kind renders into unless configured otherwise.
const DefaultView = "panel"

// Token identifies one request.
type Token struct {
	id     string
	kind   string
	view   string
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the token's unique id.
func (t *Token) ID() string { return t.id }

// Kind returns the request kind the token was issued for.
func (t *Token) Kind() string { return t.kind }

// Context is cancelled when the token is superseded or done.
func (t *Token) Context() context.Context { return t.ctx }

// Cancelled reports whether the token was cancelled.
func (t *Token) Cancelled() bool { return t.ctx.Err() != nil }

// Controller tracks at most one active token per kind.
type Controller struct {
	mu     sync.Mutex
	active map[string]*Token
	viewOf func(kind string) string
}

// Option configures a Controller.
type Option func(*Controller)

// WithViews maps kinds to views. Kinds missing from views render into
// DefaultView.
func WithViews(views map[string]string) Option {
	return func(c *Controller) {
		c.viewOf = func(kind string) string {
			if v, ok := views[kind]; ok {
				return v
			}
			return DefaultView
		}
	}
}

// NewController returns a Controller where, by default, all kinds share one view.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		active: make(map[string]*Token),
		viewOf: func(string) string { return DefaultView },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin cancels every active token sharing kind's view, including one for
// kind itself, and returns the new active token for kind.
func (c *Controller) Begin(parent context.Context, kind string) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	tok := &Token{
		id:     uuid.NewString(),
		kind:   kind,
		view:   c.viewOf(kind),
		ctx:    ctx,
		cancel: cancel,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, prev := range c.active {
		if prev.view == tok.view {
			prev.cancel()
			delete(c.active, k)
		}
	}
	c.active[kind] = tok
	return tok
}

// Active reports whether tok is still the active token for its kind.
func (c *Controller) Active(tok *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isActive(tok)
}

func (c *Controller) isActive(tok *Token) bool {
	return tok != nil && c.active[tok.kind] == tok && tok.ctx.Err() == nil
}

// Apply runs fn only if tok is still active, holding the controller lock so a
// concurrent Begin cannot interleave. It reports whether fn ran.
func (c *Controller) Apply(tok *Token, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isActive(tok) {
		return false
	}
	fn()
	return true
}

// Cancel cancels the active token for kind, if any.
func (c *Controller) Cancel(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok, ok := c.active[kind]; ok {
		tok.cancel()
		delete(c.active, kind)
	}
}

// Done releases tok. It stops being active if it still was.
func (c *Controller) Done(tok *Token) {
	if tok == nil {
		return
	}
	c.mu.Lock()
	if c.active[tok.kind] == tok {
		delete(c.active, tok.kind)
	}
	c.mu.Unlock()
	tok.cancel()
}
