package dom

import "sync"

// Mutation describes a single tree change. Watchers care about whether a
// batch added nodes, mirroring a mutation-observer record.
type Mutation struct {
	Added   []*Node
	Removed []*Node
}

type Document struct {
	root *Node

	mu           sync.Mutex
	url          string
	mutationSubs []func(Mutation)
	urlSubs      []func(string)
}

func NewDocument(url string) *Document {
	doc := &Document{url: url}
	root := NewNode("body")
	root.doc = doc
	doc.root = root
	return doc
}

func (d *Document) Root() *Node {
	return d.root
}

func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// SetURL records a client-side navigation and notifies URL subscribers when
// the value actually changed.
func (d *Document) SetURL(url string) {
	d.mu.Lock()
	if d.url == url {
		d.mu.Unlock()
		return
	}
	d.url = url
	subs := append([]func(string){}, d.urlSubs...)
	d.mu.Unlock()

	for _, sub := range subs {
		sub(url)
	}
}

// Subscribe registers a callback fired synchronously on every insertion or
// removal in the document's tree.
func (d *Document) Subscribe(fn func(Mutation)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutationSubs = append(d.mutationSubs, fn)
}

// SubscribeURL registers a callback fired on URL changes.
func (d *Document) SubscribeURL(fn func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlSubs = append(d.urlSubs, fn)
}

func (d *Document) notifyMutation(mutation Mutation) {
	d.mu.Lock()
	subs := append([]func(Mutation){}, d.mutationSubs...)
	d.mu.Unlock()

	for _, sub := range subs {
		sub(mutation)
	}
}
