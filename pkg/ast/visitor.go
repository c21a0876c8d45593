package ast

// Visitor receives nodes during double-dispatch traversal. Accept on a node
// calls Visit with the node's concrete type; the visitor type-switches on
// what it cares about and uses VisitChildren for the rest.
type Visitor interface {
	Visit(Node)
}

// BaseVisitor provides the default traversal step. Embed it (or call
// VisitChildren directly) so a visitor only handles the node kinds it needs.
type BaseVisitor struct{}

// VisitChildren dispatches the visitor to each child in attachment order.
func (BaseVisitor) VisitChildren(v Visitor, n Node) {
	for _, c := range n.Children() {
		c.Accept(v)
	}
}

// Walk traverses the whole tree rooted at root in pre-order, calling fn for
// each node. Traversal descends into a node's children only if fn returns
// true for it.
func Walk(root Node, fn func(Node) bool) {
	if root == nil || !fn(root) {
		return
	}
	for _, c := range root.Children() {
		Walk(c, fn)
	}
}
