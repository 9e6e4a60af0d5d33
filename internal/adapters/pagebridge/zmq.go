package pagebridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// zmqTransport speaks to the page-context fetcher over a zeromq PAIR socket.
type zmqTransport struct {
	socket   zmq4.Socket
	logger   *slog.Logger
	messages chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewZMQTransport(ctx context.Context, endpoint string, logger *slog.Logger) (Transport, error) {
	socket := zmq4.NewPair(ctx)
	if err := socket.Dial(endpoint); err != nil {
		return nil, fmt.Errorf("failed to dial bridge endpoint %s: %w", endpoint, err)
	}

	t := &zmqTransport{
		socket:   socket,
		logger:   logger,
		messages: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	go t.recvLoop()
	return t, nil
}

func (t *zmqTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.socket.Send(zmq4.NewMsg(payload)); err != nil {
		return fmt.Errorf("failed to send on bridge socket: %w", err)
	}
	return nil
}

func (t *zmqTransport) Messages() <-chan []byte {
	return t.messages
}

func (t *zmqTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.socket.Close()
	})
	return err
}

func (t *zmqTransport) recvLoop() {
	defer close(t.messages)
	for {
		msg, err := t.socket.Recv()
		if err != nil {
			select {
			case <-t.done:
			default:
				if !errors.Is(err, context.Canceled) {
					t.logger.Warn("Bridge socket receive failed", "error", err.Error())
				}
			}
			return
		}

		select {
		case t.messages <- msg.Bytes():
		case <-t.done:
			return
		}
	}
}
