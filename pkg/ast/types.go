package ast

import "fmt"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Noodle programs
// ---------------------------------------------------------------------------

// NodeType tags every node with its syntactic kind.
type NodeType int

const (
	NodeProgram NodeType = iota
	NodeExpressionStmt
	NodeLiteral
	NodeBinaryOp
	NodeUnaryOp
	NodeCall
	NodeVariable
	NodeAssignment
	NodeFunctionDef
	NodeParameter
	NodeIf
	NodeElif
	NodeWhile
	NodeFor
	NodeReturn
	NodeList
	NodeMatrix
	NodeTensor
	NodeIndex
	NodeSlice
	NodeImport
	NodeClassDef
)

var nodeTypeNames = map[NodeType]string{
	NodeProgram:        "PROGRAM",
	NodeExpressionStmt: "EXPRESSION_STMT",
	NodeLiteral:        "LITERAL",
	NodeBinaryOp:       "BINARY_OP",
	NodeUnaryOp:        "UNARY_OP",
	NodeCall:           "CALL",
	NodeVariable:       "VARIABLE",
	NodeAssignment:     "ASSIGNMENT",
	NodeFunctionDef:    "FUNCTION_DEF",
	NodeParameter:      "PARAMETER",
	NodeIf:             "IF",
	NodeElif:           "ELIF",
	NodeWhile:          "WHILE",
	NodeFor:            "FOR",
	NodeReturn:         "RETURN",
	NodeList:           "LIST",
	NodeMatrix:         "MATRIX",
	NodeTensor:         "TENSOR",
	NodeIndex:          "INDEX",
	NodeSlice:          "SLICE",
	NodeImport:         "IMPORT",
	NodeClassDef:       "CLASS_DEF",
}

// String returns the node type's canonical name.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Position represents a source location.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // byte offset
}

// NoPos is the zero position, used for synthesized nodes.
var NoPos = Position{}

// IsValid reports whether the position carries real source information.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is the interface implemented by all AST nodes.
//
// Children holds exactly the sub-nodes that were attached, in attachment
// order. Parent is a non-owning back-reference set when the child is
// attached; a node belongs to at most one parent.
type Node interface {
	Type() NodeType
	Pos() Position
	Parent() Node
	Children() []Node
	Accept(Visitor)

	setParent(Node)
	appendChild(Node)
}

// base carries the structure shared by every node. Concrete nodes embed it.
type base struct {
	typ      NodeType
	pos      Position
	parent   Node
	children []Node
}

func (b *base) Type() NodeType   { return b.typ }
func (b *base) Pos() Position    { return b.pos }
func (b *base) Parent() Node     { return b.parent }
func (b *base) Children() []Node { return b.children }

func (b *base) setParent(p Node)    { b.parent = p }
func (b *base) appendChild(c Node)  { b.children = append(b.children, c) }

// Attach links child under parent: the child is appended to the parent's
// children and its parent back-reference is set. The child must not already
// be attached elsewhere; callers guarantee single ownership.
func Attach(parent, child Node) {
	if child == nil {
		return
	}
	child.setParent(parent)
	parent.appendChild(child)
}

// attachAll attaches each non-nil child in order. Constructor helper.
func attachAll(parent Node, children ...Node) {
	for _, c := range children {
		if c != nil {
			Attach(parent, c)
		}
	}
}

// FindNodes walks the tree rooted at root in depth-first pre-order and
// returns every node whose type equals t, in traversal order.
func FindNodes(root Node, t NodeType) []Node {
	var found []Node
	var walk func(Node)
	walk = func(n Node) {
		if n.Type() == t {
			found = append(found, n)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return found
}
