// Package dom provides a minimal mutable node tree standing in for the host
// page's document. The annotation logic only needs find/insert/remove
// capabilities and data attributes, so nodes carry a tag, attributes, text
// and children.
//
// The tree itself is not synchronized; callers serialize access (the
// annotator owns the documents it decorates). Only subscription delivery is
// locked here.
package dom

import "fmt"

type Node struct {
	tag      string
	attrs    map[string]string
	text     string
	children []*Node
	parent   *Node
	doc      *Document
}

func NewNode(tag string) *Node {
	return &Node{tag: tag, attrs: map[string]string{}}
}

func (n *Node) Tag() string {
	return n.tag
}

func (n *Node) Text() string {
	return n.text
}

func (n *Node) SetText(text string) {
	n.text = text
}

func (n *Node) Attr(name string) (string, bool) {
	value, ok := n.attrs[name]
	return value, ok
}

func (n *Node) SetAttr(name, value string) {
	n.attrs[name] = value
}

func (n *Node) RemoveAttr(name string) {
	delete(n.attrs, name)
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return append([]*Node{}, n.children...)
}

// AppendChild adds child as the last child of n, detaching it from any
// previous parent first.
func (n *Node) AppendChild(child *Node) {
	child.detach()
	child.parent = n
	n.children = append(n.children, child)
	n.adopt(child)
}

// InsertBefore inserts newChild immediately before ref among n's children.
// A nil ref appends.
func (n *Node) InsertBefore(newChild, ref *Node) error {
	if ref == nil {
		n.AppendChild(newChild)
		return nil
	}
	idx := n.childIndex(ref)
	if idx < 0 {
		return fmt.Errorf("reference node is not a child of <%s>", n.tag)
	}

	newChild.detach()
	newChild.parent = n
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = newChild
	n.adopt(newChild)
	return nil
}

func (n *Node) RemoveChild(child *Node) error {
	idx := n.childIndex(child)
	if idx < 0 {
		return fmt.Errorf("node is not a child of <%s>", n.tag)
	}
	n.children = append(n.children[:idx], n.children[idx+1:]...)
	child.parent = nil

	if n.doc != nil {
		child.setDocument(nil)
		n.doc.notifyMutation(Mutation{Removed: []*Node{child}})
	}
	return nil
}

// Walk visits n and its descendants in document order. Returning false from
// visit prunes that node's subtree.
func (n *Node) Walk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, child := range n.children {
		child.Walk(visit)
	}
}

// Find returns the first node in document order matching pred, or nil.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if found != nil {
			return false
		}
		if pred(node) {
			found = node
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node in document order matching pred.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var found []*Node
	n.Walk(func(node *Node) bool {
		if pred(node) {
			found = append(found, node)
		}
		return true
	})
	return found
}

func (n *Node) childIndex(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) detach() {
	if n.parent != nil {
		// Moves between parents do not fire removal notifications.
		idx := n.parent.childIndex(n)
		if idx >= 0 {
			n.parent.children = append(n.parent.children[:idx], n.parent.children[idx+1:]...)
		}
		n.parent = nil
	}
}

// adopt propagates the document reference into the attached subtree and
// fires the insertion notification.
func (n *Node) adopt(child *Node) {
	if n.doc == nil {
		return
	}
	child.setDocument(n.doc)
	n.doc.notifyMutation(Mutation{Added: []*Node{child}})
}

func (n *Node) setDocument(doc *Document) {
	n.doc = doc
	for _, child := range n.children {
		child.setDocument(doc)
	}
}
