package psd

// Tree is the logical layer tree (component L): an arena of nodes,
// indexed by position, built by folding the flat layer-record list on
// its section-divider bounding markers. An arena keeps the tree
// relocatable and cheap to copy, unlike the teacher's raw *Node graph.
type Tree struct {
	nodes []treeNode
}

type treeNode struct {
	typ       NodeType
	name      string
	layer     *Layer // nil for the synthetic root
	parent    int    // -1 for the root
	children  []int
	visible   bool
	opacity   byte
	blendMode string
	bounds    Rectangle
}

// Node is a lightweight view of one arena entry; it is safe to copy and
// compare by (tree, idx).
type Node struct {
	tree *Tree
	idx  int
}

func (n Node) valid() bool { return n.tree != nil && n.idx >= 0 && n.idx < len(n.tree.nodes) }
func (n Node) entry() *treeNode { return &n.tree.nodes[n.idx] }

func (n Node) Type() NodeType     { return n.entry().typ }
func (n Node) Name() string       { return n.entry().name }
func (n Node) Layer() *Layer      { return n.entry().layer }
func (n Node) Visible() bool      { return n.entry().visible }
func (n Node) Opacity() byte      { return n.entry().opacity }
func (n Node) BlendMode() string  { return n.entry().blendMode }
func (n Node) Bounds() Rectangle  { return n.entry().bounds }
func (n Node) Width() int32       { b := n.entry().bounds; return b.Right - b.Left }
func (n Node) Height() int32      { b := n.entry().bounds; return b.Bottom - b.Top }
func (n Node) IsEmpty() bool      { return n.Width() == 0 || n.Height() == 0 }
func (n Node) IsRoot() bool       { return n.entry().parent == -1 }
func (n Node) IsGroup() bool      { return n.entry().typ == NodeTypeGroup }
func (n Node) IsLayer() bool      { return n.entry().typ == NodeTypeLayer }
func (n Node) HasChildren() bool  { return len(n.entry().children) > 0 }

// Parent returns the parent node, or the zero Node (invalid) at the root.
func (n Node) Parent() (Node, bool) {
	p := n.entry().parent
	if p == -1 {
		return Node{}, false
	}
	return Node{tree: n.tree, idx: p}, true
}

// Children returns the immediate children, in on-disk top-to-bottom order.
func (n Node) Children() []Node {
	idxs := n.entry().children
	out := make([]Node, len(idxs))
	for i, c := range idxs {
		out[i] = Node{tree: n.tree, idx: c}
	}
	return out
}

// Descendants returns every node below this one, depth-first.
func (n Node) Descendants() []Node {
	var out []Node
	for _, c := range n.Children() {
		out = append(out, c)
		out = append(out, c.Descendants()...)
	}
	return out
}

// Subtree returns this node followed by all its descendants.
func (n Node) Subtree() []Node {
	return append([]Node{n}, n.Descendants()...)
}

func (n Node) DescendantLayers() []Node {
	var out []Node
	for _, d := range n.Descendants() {
		if d.IsLayer() {
			out = append(out, d)
		}
	}
	return out
}

func (n Node) DescendantGroups() []Node {
	var out []Node
	for _, d := range n.Descendants() {
		if d.IsGroup() {
			out = append(out, d)
		}
	}
	return out
}

// Siblings returns this node's siblings including itself, or just itself
// at the root.
func (n Node) Siblings() []Node {
	parent, ok := n.Parent()
	if !ok {
		return []Node{n}
	}
	return parent.Children()
}

// Depth returns the distance from the root (root is 0).
func (n Node) Depth() int {
	depth := 0
	cur := n
	for {
		p, ok := cur.Parent()
		if !ok {
			return depth
		}
		depth++
		cur = p
	}
}

// Path returns the slash-joined chain of node names from just below the
// root down to this node.
func (n Node) Path() string {
	parts := n.PathParts()
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

func (n Node) PathParts() []string {
	var parts []string
	cur := n
	for {
		p, ok := cur.Parent()
		if !ok {
			break
		}
		parts = append([]string{cur.Name()}, parts...)
		cur = p
	}
	return parts
}

// Root returns the tree's root node.
func (t *Tree) Root() Node { return Node{tree: t, idx: 0} }

// BuildTree folds a flat layer-record list into a Tree, using each
// layer's section-divider classification (component L). This mirrors the
// teacher's LayerMask.buildTree stack-folding algorithm, generalized to
// the arena representation and to the new SectionDividerInfo-driven
// NodeType instead of the teacher's string-based Layer.IsFolder/IsFolderEnd.
func BuildTree(layers []*Layer, canvasWidth, canvasHeight int) *Tree {
	t := &Tree{nodes: []treeNode{{
		typ:     NodeTypeGroup,
		name:    "Root",
		parent:  -1,
		visible: true,
		opacity: 255,
		bounds:  Rectangle{Top: 0, Left: 0, Bottom: int32(canvasHeight), Right: int32(canvasWidth)},
	}}}

	stack := []int{0}

	for _, layer := range layers {
		switch layer.NodeType() {
		case NodeTypeGroupEnd:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case NodeTypeGroup:
			idx := t.newNode(layer, NodeTypeGroup, stack[len(stack)-1])
			stack = append(stack, idx)
		default:
			t.newNode(layer, NodeTypeLayer, stack[len(stack)-1])
		}
	}

	t.updateDimensions(0)
	return t
}

func (t *Tree) newNode(layer *Layer, typ NodeType, parent int) int {
	name := layer.UnicodeName
	if name == "" {
		name = layer.Name
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{
		typ:       typ,
		name:      name,
		layer:     layer,
		parent:    parent,
		visible:   layer.Visible(),
		opacity:   layer.Opacity,
		blendMode: layer.BlendMode,
		bounds:    layer.Bounds,
	})
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// updateDimensions recomputes a group's bounds as the union of its
// non-empty children's bounds, bottom-up. Leaf layers keep their own
// on-disk bounds.
func (t *Tree) updateDimensions(idx int) {
	n := &t.nodes[idx]
	if n.typ != NodeTypeGroup {
		return
	}
	for _, c := range n.children {
		t.updateDimensions(c)
	}
	if idx == 0 {
		return // root bounds are the canvas, fixed
	}

	var minL, minT, maxR, maxB int32
	first := true
	for _, c := range n.children {
		child := &t.nodes[c]
		w := child.bounds.Right - child.bounds.Left
		h := child.bounds.Bottom - child.bounds.Top
		if w == 0 || h == 0 {
			continue
		}
		if first {
			minL, minT, maxR, maxB = child.bounds.Left, child.bounds.Top, child.bounds.Right, child.bounds.Bottom
			first = false
			continue
		}
		if child.bounds.Left < minL {
			minL = child.bounds.Left
		}
		if child.bounds.Top < minT {
			minT = child.bounds.Top
		}
		if child.bounds.Right > maxR {
			maxR = child.bounds.Right
		}
		if child.bounds.Bottom > maxB {
			maxB = child.bounds.Bottom
		}
	}
	if first {
		n.bounds = Rectangle{}
		return
	}
	n.bounds = Rectangle{Top: minT, Left: minL, Bottom: maxB, Right: maxR}
}

// ClippingStack groups a base layer with the non-base layers clipped to
// it, in on-disk order, per spec.md's clipping-layer algorithm: a run of
// consecutive Clipping!=0 layers attaches to the nearest preceding
// Clipping==0 layer within the same parent.
func ClippingStack(siblings []Node) [][]Node {
	var stacks [][]Node
	for _, n := range siblings {
		isBase := n.Layer() == nil || n.Layer().Clipping == 0
		if isBase || len(stacks) == 0 {
			stacks = append(stacks, []Node{n})
			continue
		}
		last := &stacks[len(stacks)-1]
		*last = append(*last, n)
	}
	return stacks
}
