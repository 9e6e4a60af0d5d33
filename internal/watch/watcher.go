// Package watch re-triggers document scans as the host page lazily renders
// content: added nodes schedule a debounced re-scan and client-side
// navigations schedule a delayed one.
package watch

import (
	"sync"
	"time"

	"github.com/matshaug/flagline/internal/dom"
)

const (
	// MutationDebounce coalesces bursts of added nodes into one re-scan.
	MutationDebounce = 500 * time.Millisecond
	// URLChangeDelay gives the new view time to render before re-scanning.
	URLChangeDelay = 2 * time.Second
)

type Watcher struct {
	scan      func()
	afterFunc func(time.Duration) <-chan time.Time

	mu         sync.Mutex
	enabled    bool
	generation uint64
}

// NewWatcher returns an enabled watcher that calls scan on re-scan triggers.
func NewWatcher(scan func(), afterFunc func(time.Duration) <-chan time.Time) *Watcher {
	return &Watcher{
		scan:      scan,
		afterFunc: afterFunc,
		enabled:   true,
	}
}

// Attach subscribes the watcher to the document's mutation and URL streams.
// Subscriptions stay live while disabled; notifications are simply ignored,
// so re-enabling needs no re-initialization.
func (w *Watcher) Attach(doc *dom.Document) {
	doc.Subscribe(w.onMutation)
	doc.SubscribeURL(w.onURLChange)
}

func (w *Watcher) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

func (w *Watcher) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// onMutation schedules a trailing-edge debounced re-scan: every batch with
// added nodes resets the timer, and only the latest one fires.
func (w *Watcher) onMutation(mutation dom.Mutation) {
	if len(mutation.Added) == 0 {
		return
	}

	w.mu.Lock()
	if !w.enabled {
		w.mu.Unlock()
		return
	}
	w.generation++
	generation := w.generation
	timer := w.afterFunc(MutationDebounce)
	w.mu.Unlock()

	go func() {
		<-timer
		w.mu.Lock()
		fire := w.enabled && generation == w.generation
		w.mu.Unlock()
		if fire {
			w.scan()
		}
	}()
}

func (w *Watcher) onURLChange(string) {
	w.mu.Lock()
	if !w.enabled {
		w.mu.Unlock()
		return
	}
	timer := w.afterFunc(URLChangeDelay)
	w.mu.Unlock()

	go func() {
		<-timer
		if w.Enabled() {
			w.scan()
		}
	}()
}
