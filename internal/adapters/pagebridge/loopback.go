package pagebridge

import (
	"context"
	"sync"
)

// LoopbackTransport is an in-process transport pair. One end backs the
// bridge, the other stands in for the page-context fetcher. Used by tests and
// the dev CLI.
type LoopbackTransport struct {
	peer *LoopbackTransport

	messages chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewLoopbackPair() (*LoopbackTransport, *LoopbackTransport) {
	a := &LoopbackTransport{
		messages: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	b := &LoopbackTransport{
		messages: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *LoopbackTransport) Send(ctx context.Context, payload []byte) error {
	select {
	case t.peer.messages <- payload:
		return nil
	case <-t.peer.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *LoopbackTransport) Messages() <-chan []byte {
	return t.messages
}

func (t *LoopbackTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	return nil
}
