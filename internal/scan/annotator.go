package scan

import (
	"context"
	"sync"

	"github.com/matshaug/flagline/internal/dom"
	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/logging"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/matshaug/flagline/internal/telemetry"
)

// ResolveFunc resolves a handle to a location through the cache, queue and
// bridge. A nil location means no data.
type ResolveFunc func(ctx context.Context, handle string) (*string, error)

// Annotator decorates username elements with flag glyphs. It guarantees at
// most one in-flight resolution per handle; duplicate elements enter a
// waiting state and are re-driven once the resolution completes.
type Annotator struct {
	resolve     ResolveFunc
	retry       ratelimiting.RetryLimiter
	instruments *telemetry.Instruments

	mu       sync.Mutex
	inFlight map[string][]*dom.Node
	wg       sync.WaitGroup
}

func NewAnnotator(resolve ResolveFunc, retry ratelimiting.RetryLimiter, instruments *telemetry.Instruments) *Annotator {
	return &Annotator{
		resolve:     resolve,
		retry:       retry,
		instruments: instruments,
		inFlight:    make(map[string][]*dom.Node),
	}
}

// Scan runs one annotation pass over the document. Resolutions complete
// asynchronously; a second pass over an unchanged document mutates nothing.
func (a *Annotator) Scan(ctx context.Context, doc *dom.Document) {
	// All tree access is serialized on a.mu; in-flight completions mutate
	// the document from their own goroutines.
	a.mu.Lock()
	containers := doc.Root().FindAll(func(n *dom.Node) bool {
		testID, _ := n.Attr(attrTestID)
		return testID == testIDTweet || testID == testIDUserCell
	})
	a.mu.Unlock()

	for _, container := range containers {
		a.annotate(ctx, container)
	}
}

// Strip removes the document's decorations through the annotator's lock so
// it cannot race with in-flight completions.
func (a *Annotator) Strip(doc *dom.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	Strip(doc)
}

// WaitIdle blocks until every in-flight resolution has completed.
func (a *Annotator) WaitIdle() {
	a.wg.Wait()
}

func (a *Annotator) annotate(ctx context.Context, container *dom.Node) {
	a.mu.Lock()

	stateValue, _ := container.Attr(attrState)
	state := domain.ProcessingState(stateValue)
	if !state.Eligible() {
		a.mu.Unlock()
		return
	}

	handle, anchor, ok := extractHandle(container)
	if !ok {
		a.mu.Unlock()
		return
	}

	if state == domain.StateFailed && a.retry != nil && !a.retry.Consume(handle) {
		a.mu.Unlock()
		return
	}

	if _, busy := a.inFlight[handle]; busy {
		container.SetAttr(attrState, string(domain.StateWaiting))
		a.inFlight[handle] = append(a.inFlight[handle], container)
		a.mu.Unlock()
		return
	}

	a.inFlight[handle] = []*dom.Node{}
	container.SetAttr(attrState, string(domain.StateProcessing))

	shimmer := dom.NewNode("span")
	shimmer.SetAttr(attrShimmer, "true")
	insertMarker(container, anchor, shimmer)

	a.wg.Add(1)
	a.mu.Unlock()

	go a.complete(ctx, container, handle, anchor, shimmer)
}

// complete finishes one resolution: removes the shimmer, decorates or marks
// failure, and re-drives any waiting elements for the same handle. The
// in-flight entry is cleared on every path.
func (a *Annotator) complete(ctx context.Context, container *dom.Node, handle string, anchor, shimmer *dom.Node) {
	defer a.wg.Done()

	location, err := a.resolve(ctx, handle)

	a.mu.Lock()
	if parent := shimmer.Parent(); parent != nil {
		_ = parent.RemoveChild(shimmer)
	}

	waiters := a.inFlight[handle]
	delete(a.inFlight, handle)

	// A toggle-off strip clears the state attributes while we resolve. Only
	// decorate containers still marked processing, and only re-drive waiters
	// still marked waiting; stripped elements stay bare until the next scan.
	redrive := waiters[:0]
	for _, waiter := range waiters {
		if stateValue, _ := waiter.Attr(attrState); domain.ProcessingState(stateValue) == domain.StateWaiting {
			waiter.SetAttr(attrState, string(domain.StateAbsent))
			redrive = append(redrive, waiter)
		}
	}

	if stateValue, _ := container.Attr(attrState); domain.ProcessingState(stateValue) == domain.StateProcessing {
		a.decorate(ctx, container, handle, anchor, location, err)
	}
	a.mu.Unlock()

	// Cache is warm now, so waiters resolve without another bridge send.
	for _, waiter := range redrive {
		a.annotate(ctx, waiter)
	}
}

func (a *Annotator) decorate(ctx context.Context, container *dom.Node, handle string, anchor *dom.Node, location *string, err error) {
	logger := logging.FromContext(ctx)

	if err != nil || location == nil {
		container.SetAttr(attrState, string(domain.StateFailed))
		a.instruments.RecordAnnotationFailure(ctx)
		return
	}

	flag, found := domain.FlagForLocation(*location)
	if !found {
		container.SetAttr(attrState, string(domain.StateFailed))
		a.instruments.RecordAnnotationFailure(ctx)
		return
	}

	if !hasFlag(container) {
		flagNode := dom.NewNode("span")
		flagNode.SetAttr(attrFlag, "true")
		flagNode.SetText(flag + " ")
		if !insertMarker(container, anchor, flagNode) {
			container.SetAttr(attrState, string(domain.StateFailed))
			a.instruments.RecordAnnotationFailure(ctx)
			return
		}
	}

	container.SetAttr(attrState, string(domain.StateDone))
	a.instruments.RecordAnnotation(ctx)
	logger.DebugContext(ctx, "Annotated element", "handle", handle, "flag", flag)
}

// insertMarker places node immediately before the @handle anchor, falling
// back to the anchor's grandparent slot and finally to appending at the end
// of the container.
func insertMarker(container, anchor, node *dom.Node) bool {
	if anchor != nil {
		if parent := anchor.Parent(); parent != nil {
			if err := parent.InsertBefore(node, anchor); err == nil {
				return true
			}
			if grandparent := parent.Parent(); grandparent != nil {
				if err := grandparent.InsertBefore(node, parent); err == nil {
					return true
				}
			}
		}
	}
	if container != nil {
		container.AppendChild(node)
		return true
	}
	return false
}

func hasFlag(container *dom.Node) bool {
	return container.Find(func(n *dom.Node) bool {
		_, ok := n.Attr(attrFlag)
		return ok
	}) != nil
}

// Strip removes every flag and shimmer node and clears all annotation state
// attributes. Used on toggle-off.
func Strip(doc *dom.Document) {
	markers := doc.Root().FindAll(func(n *dom.Node) bool {
		if _, ok := n.Attr(attrFlag); ok {
			return true
		}
		_, ok := n.Attr(attrShimmer)
		return ok
	})
	for _, marker := range markers {
		if parent := marker.Parent(); parent != nil {
			_ = parent.RemoveChild(marker)
		}
	}

	for _, marked := range doc.Root().FindAll(func(n *dom.Node) bool {
		_, ok := n.Attr(attrState)
		return ok
	}) {
		marked.RemoveAttr(attrState)
	}
}
