package command

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyReplied is returned by a ReplyOnce wrapper on the second reply.
var ErrAlreadyReplied = errors.New("command already replied")

// Replier delivers a finished reply to whoever sent the command.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, text string) error

func (f ReplierFunc) Reply(ctx context.Context, text string) error {
	return f(ctx, text)
}

// ReplyOnce passes the first reply through and rejects the rest.
type ReplyOnce struct {
	next Replier

	mu      sync.Mutex
	replied bool
}

func NewReplyOnce(next Replier) *ReplyOnce {
	return &ReplyOnce{next: next}
}

func (r *ReplyOnce) Reply(ctx context.Context, text string) error {
	r.mu.Lock()
	if r.replied {
		r.mu.Unlock()
		return ErrAlreadyReplied
	}
	r.replied = true
	r.mu.Unlock()

	return r.next.Reply(ctx, text)
}

// Replied reports whether a reply went out.
func (r *ReplyOnce) Replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replied
}

// BufferReplier collects the reply text, for callers that answer
// synchronously such as the HTTP API.
type BufferReplier struct {
	mu   sync.Mutex
	text string
}

func (b *BufferReplier) Reply(_ context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	return nil
}

func (b *BufferReplier) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}
