package pagebridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/matshaug/flagline/internal/reporting"
)

const responseTimeout = 10 * time.Second

// Transport moves opaque payloads between this process and the page-context
// fetcher.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Messages() <-chan []byte
	Close() error
}

type pendingRequest struct {
	handle string
	result chan domain.LookupResult
}

// Bridge correlates fetch requests with responses from the page-context
// fetcher. A request that gets no response within the timeout resolves with a
// nil location rather than an error; no response is "no data", not a failure.
type Bridge struct {
	transport Transport
	window    *ratelimiting.Window
	logger    *slog.Logger

	timeout      time.Duration
	afterFunc    func(time.Duration) <-chan time.Time
	nowFunc      func() time.Time
	newRequestID func() string

	mu      sync.Mutex
	pending map[string]pendingRequest

	done chan struct{}
}

func New(
	transport Transport,
	window *ratelimiting.Window,
	logger *slog.Logger,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *Bridge {
	b := &Bridge{
		transport:    transport,
		window:       window,
		logger:       logger,
		timeout:      responseTimeout,
		afterFunc:    afterFunc,
		nowFunc:      nowFunc,
		newRequestID: func() string { return uuid.New().String() },
		pending:      make(map[string]pendingRequest),
		done:         make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *Bridge) Close() error {
	close(b.done)
	return b.transport.Close()
}

// FetchLocation posts a correlated request into the page context and waits
// for the matching response.
func (b *Bridge) FetchLocation(ctx context.Context, handle string) (domain.LookupResult, error) {
	requestID := b.newRequestID()

	payload, err := json.Marshal(fetchLocationMessage{
		Type:       msgTypeFetchLocation,
		ScreenName: handle,
		RequestID:  requestID,
	})
	if err != nil {
		err := fmt.Errorf("failed to marshal fetch request: %w", err)
		reporting.Report(ctx, err)
		return domain.LookupResult{}, err
	}

	result := make(chan domain.LookupResult, 1)
	b.mu.Lock()
	b.pending[requestID] = pendingRequest{handle: handle, result: result}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, requestID)
		b.mu.Unlock()
	}()

	start := b.nowFunc()
	if err := b.transport.Send(ctx, payload); err != nil {
		err := fmt.Errorf("failed to send fetch request: %w", err)
		reporting.Report(ctx, err)
		return domain.LookupResult{}, err
	}

	logger := logging.FromContext(ctx)
	select {
	case res := <-result:
		logger.InfoContext(ctx, "bridge request completed",
			"rateLimited", res.RateLimited,
			"hasLocation", res.Location != nil,
			"duration", b.nowFunc().Sub(start).String(),
		)
		return res, nil
	case <-b.afterFunc(b.timeout):
		logger.InfoContext(ctx, "bridge request timed out")
		return domain.LookupResult{}, nil
	case <-ctx.Done():
		return domain.LookupResult{}, ctx.Err()
	}
}

func (b *Bridge) readLoop() {
	for {
		select {
		case payload, ok := <-b.transport.Messages():
			if !ok {
				return
			}
			b.handleMessage(payload)
		case <-b.done:
			return
		}
	}
}

func (b *Bridge) handleMessage(payload []byte) {
	msgType, err := messageType(payload)
	if err != nil {
		b.logger.Warn("Dropping unparsable bridge message", "error", err.Error())
		return
	}

	switch msgType {
	case msgTypeLocationResponse:
		var msg locationResponseMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Warn("Dropping malformed location response", "error", err.Error())
			return
		}
		b.resolve(msg)
	case msgTypeRateLimitInfo:
		var msg rateLimitInfoMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Warn("Dropping malformed rate limit info", "error", err.Error())
			return
		}
		b.updateWindow(msg)
	default:
		b.logger.Warn("Dropping bridge message of unknown type", "type", msgType)
	}
}

// resolve matches a response by request ID and handle. A response whose
// handle does not match its correlation ID is dropped.
func (b *Bridge) resolve(msg locationResponseMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	req, ok := b.pending[msg.RequestID]
	if !ok {
		// Late response after timeout; nothing to do.
		return
	}
	if req.handle != msg.ScreenName {
		b.logger.Warn("Dropping response with mismatched handle", "requestId", msg.RequestID)
		return
	}

	delete(b.pending, msg.RequestID)
	req.result <- domain.LookupResult{
		Location:    msg.Location,
		RateLimited: msg.IsRateLimited,
	}
}

func (b *Bridge) updateWindow(msg rateLimitInfoMessage) {
	switch {
	case msg.ResetTime > 0:
		resetTime := time.Unix(msg.ResetTime, 0)
		b.window.Set(resetTime)
		b.logger.Info("Upstream cool-down declared", "resetTime", resetTime.String())
	case msg.WaitTime > 0:
		resetTime := b.nowFunc().Add(time.Duration(msg.WaitTime) * time.Millisecond)
		b.window.Set(resetTime)
		b.logger.Info("Upstream cool-down declared", "resetTime", resetTime.String())
	default:
		b.window.Clear()
	}
}
