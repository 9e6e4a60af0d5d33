// Package dispatch serializes location lookups: requests queue in FIFO
// submission order and are fired through the page bridge only as fast as the
// dispatch limiter allows.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/matshaug/flagline/internal/telemetry"
)

type LocationFetcher interface {
	FetchLocation(ctx context.Context, handle string) (domain.LookupResult, error)
}

type outcome struct {
	result domain.LookupResult
	err    error
}

type queuedRequest struct {
	ctx      context.Context
	handle   string
	response chan outcome
}

type Queue struct {
	fetcher     LocationFetcher
	limiter     *ratelimiting.DispatchLimiter
	window      *ratelimiting.Window
	instruments *telemetry.Instruments
	nowFunc     func() time.Time

	mu      sync.Mutex
	pending []queuedRequest
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func NewQueue(
	fetcher LocationFetcher,
	limiter *ratelimiting.DispatchLimiter,
	window *ratelimiting.Window,
	instruments *telemetry.Instruments,
	nowFunc func() time.Time,
) *Queue {
	q := &Queue{
		fetcher:     fetcher,
		limiter:     limiter,
		window:      window,
		instruments: instruments,
		nowFunc:     nowFunc,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go q.dispatchLoop()
	return q
}

// RequestLocation enqueues a lookup and blocks until it completes. A bridge
// timeout surfaces as a nil location, not an error.
func (q *Queue) RequestLocation(ctx context.Context, handle string) (domain.LookupResult, error) {
	response := make(chan outcome, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.LookupResult{}, domain.ErrQueueClosed
	}
	q.pending = append(q.pending, queuedRequest{ctx: ctx, handle: handle, response: response})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case out := <-response:
		return out.result, out.err
	case <-ctx.Done():
		// The dispatcher drops the stale entry when it reaches it.
		return domain.LookupResult{}, ctx.Err()
	}
}

// Depth reports the number of requests waiting for dispatch.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects all queued requests and stops the dispatcher. In-flight
// bridge calls run to completion.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	close(q.done)
	for _, req := range pending {
		req.response <- outcome{err: domain.ErrQueueClosed}
	}
}

func (q *Queue) dispatchLoop() {
	for {
		req, ok := q.peek()
		if !ok {
			return
		}

		if req.ctx.Err() != nil {
			if q.take() {
				req.response <- outcome{err: req.ctx.Err()}
			}
			continue
		}

		if q.window.Active(q.nowFunc()) {
			q.instruments.RecordRateLimitDeferral(req.ctx)
			logging.FromContext(req.ctx).InfoContext(req.ctx, "Deferring dispatch for cool-down window")
		}

		// The head stays queued while we wait for a slot, so Depth counts it
		// and Close can still reject it.
		release, err := q.limiter.Acquire(q.closeAware(req.ctx))
		if err != nil {
			if q.take() {
				req.response <- outcome{err: err}
			}
			continue
		}

		if !q.take() {
			// Close rejected the request while we waited for the slot.
			release()
			return
		}

		q.instruments.RecordBridgeDispatch(req.ctx)
		go func(req queuedRequest) {
			defer release()
			result, err := q.fetcher.FetchLocation(req.ctx, req.handle)
			req.response <- outcome{result: result, err: err}
		}(req)
	}
}

// peek blocks until a request is available or the queue closes. The head is
// left in pending until take pops it.
func (q *Queue) peek() (queuedRequest, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return queuedRequest{}, false
		}
		if len(q.pending) > 0 {
			req := q.pending[0]
			q.mu.Unlock()
			return req, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.done:
			return queuedRequest{}, false
		}
	}
}

// take pops the head the dispatcher peeked at. A false return means Close
// already drained the queue and rejected the request.
func (q *Queue) take() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = q.pending[1:]
	return true
}

// closeAware derives a context that is also canceled when the queue closes,
// so the dispatcher does not sit in Acquire past Close.
func (q *Queue) closeAware(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-q.done:
		case <-ctx.Done():
		}
		cancel()
	}()
	return ctx
}
