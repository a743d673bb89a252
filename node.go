package psd

// ChildrenAtPath resolves a "/"-separated name path (as produced by
// Node.Path) against this node's descendants. Adapted from the teacher's
// Node.ChildrenAtPath/findAtPath, rebuilt against the arena-indexed Tree
// instead of following raw *Node.Parent/.Children pointers.
func (n Node) ChildrenAtPath(path string) []Node {
	parts := splitPath(path)
	return n.findAtPath(parts)
}

func splitPath(path string) []string {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if path == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

func (n Node) findAtPath(parts []string) []Node {
	if len(parts) == 0 {
		return []Node{n}
	}
	target, remaining := parts[0], parts[1:]
	var results []Node
	for _, child := range n.Children() {
		if child.Name() != target {
			continue
		}
		if len(remaining) == 0 {
			results = append(results, child)
		} else {
			results = append(results, child.findAtPath(remaining)...)
		}
	}
	return results
}

// FilterByComp returns the subtree visibility implied by a layer comp: the
// set of node paths whose Visible flag the comp overrides to true.
// Grounded on original_source's layer comp "Lr16"/layer-comp descriptor
// semantics (the comp's Descriptor carries a "layer" list of per-layer
// visibility/position/style records); here we only resolve the visibility
// axis, which is what every caller of the teacher's stubbed-out
// FilterByComp actually needed.
func FilterByComp(comp LayerComp) map[int32]bool {
	visibility := make(map[int32]bool)
	items, ok := comp.Desc.Get("Lr  ") // LayerComp's nested layer-state list
	if !ok {
		return visibility
	}
	list, ok := items.(VList)
	if !ok {
		return visibility
	}
	for _, item := range list {
		layerDesc, ok := item.(VDescriptor)
		if !ok {
			continue
		}
		id, idOK := layerDesc.Get("LyrI")
		vis, visOK := layerDesc.Get("Vsbl")
		if !idOK || !visOK {
			continue
		}
		layerID, _ := id.(VInteger)
		visible, _ := vis.(VBool)
		visibility[int32(layerID)] = bool(visible)
	}
	return visibility
}

// NodeSummary is a flattened, serialization-friendly snapshot of a Node,
// replacing the teacher's map[string]interface{}-returning Node.ToHash
// with a typed structure per the descriptor design note's spirit.
type NodeSummary struct {
	Type      NodeType
	Name      string
	Visible   bool
	Opacity   float64
	BlendMode string
	Bounds    Rectangle
	Children  []NodeSummary
}

// Summarize builds a NodeSummary for this node and its whole subtree.
func (n Node) Summarize() NodeSummary {
	s := NodeSummary{
		Type:      n.Type(),
		Name:      n.Name(),
		Visible:   n.Visible(),
		Opacity:   float64(n.Opacity()) / 255.0,
		BlendMode: n.BlendMode(),
		Bounds:    n.Bounds(),
	}
	for _, c := range n.Children() {
		s.Children = append(s.Children, c.Summarize())
	}
	return s
}
