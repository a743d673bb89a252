package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupLayer(name string, divider SectionDividerType) *Layer {
	return &Layer{
		Name:           name,
		UnicodeName:    name,
		Opacity:        255,
		BlendMode:      "norm",
		SectionDivider: &SectionDividerInfo{Type: divider},
	}
}

func plainLayer(name string, bounds Rectangle) *Layer {
	return &Layer{
		Name:        name,
		UnicodeName: name,
		Opacity:     255,
		BlendMode:   "norm",
		Bounds:      bounds,
	}
}

// BuildTree treats an open/closed-folder record as opening a group (its
// members follow immediately after) and a bounding-section-divider record
// as closing the nearest open group.
func TestBuildTreeGroupsAndLayers(t *testing.T) {
	layers := []*Layer{
		groupLayer("Version A", SectionDividerOpenFolder),
		plainLayer("Matte", Rectangle{Top: 0, Left: 0, Bottom: 10, Right: 10}),
		plainLayer("Logo", Rectangle{Top: 5, Left: 5, Bottom: 15, Right: 20}),
		groupLayer("bounding", SectionDividerBoundingSection),
		plainLayer("Background", Rectangle{Top: 0, Left: 0, Bottom: 100, Right: 100}),
	}

	tree := BuildTree(layers, 200, 200)
	root := tree.Root()

	assert.True(t, root.IsRoot())
	assert.Len(t, root.Children(), 2)

	group := root.Children()[0]
	assert.True(t, group.IsGroup())
	assert.Equal(t, "Version A", group.Name())
	assert.Len(t, group.Children(), 2)

	members := group.Children()
	assert.Equal(t, "Matte", members[0].Name())
	assert.Equal(t, "Logo", members[1].Name())
	assert.True(t, members[0].IsLayer())

	bg := root.Children()[1]
	assert.Equal(t, "Background", bg.Name())
	assert.Equal(t, 1, bg.Depth())
	assert.Equal(t, 2, members[0].Depth())

	assert.Equal(t, "Version A/Matte", members[0].Path())
}

func TestNodeDescendantsAndSubtree(t *testing.T) {
	layers := []*Layer{
		groupLayer("Group", SectionDividerOpenFolder),
		plainLayer("Child", Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 1}),
		groupLayer("bounding", SectionDividerBoundingSection),
	}
	tree := BuildTree(layers, 10, 10)
	root := tree.Root()

	descendants := root.Descendants()
	require.Len(t, descendants, 2)

	layerNodes := root.DescendantLayers()
	require.Len(t, layerNodes, 1)
	assert.Equal(t, "Child", layerNodes[0].Name())

	groupNodes := root.DescendantGroups()
	require.Len(t, groupNodes, 1)

	subtree := root.Subtree()
	assert.Len(t, subtree, 3) // root + group + child
}

func TestNodeGroupBoundsUnion(t *testing.T) {
	layers := []*Layer{
		groupLayer("Group", SectionDividerOpenFolder),
		plainLayer("A", Rectangle{Top: 10, Left: 10, Bottom: 20, Right: 20}),
		plainLayer("B", Rectangle{Top: 0, Left: 0, Bottom: 5, Right: 5}),
		groupLayer("bounding", SectionDividerBoundingSection),
	}
	tree := BuildTree(layers, 50, 50)
	group := tree.Root().Children()[0]

	assert.Equal(t, Rectangle{Top: 0, Left: 0, Bottom: 20, Right: 20}, group.Bounds())
}

func TestNodeEmptyLayerIsEmpty(t *testing.T) {
	layers := []*Layer{
		plainLayer("Zero size", Rectangle{Top: 5, Left: 5, Bottom: 5, Right: 5}),
	}
	tree := BuildTree(layers, 10, 10)
	node := tree.Root().Children()[0]
	assert.True(t, node.IsEmpty())
}

func TestClippingStack(t *testing.T) {
	base := plainLayer("base", Rectangle{})
	clipped1 := plainLayer("clip1", Rectangle{})
	clipped1.Clipping = 1
	clipped2 := plainLayer("clip2", Rectangle{})
	clipped2.Clipping = 1
	other := plainLayer("other", Rectangle{})

	tree := BuildTree([]*Layer{other, clipped2, clipped1, base}, 10, 10)
	siblings := tree.Root().Children()

	stacks := ClippingStack(siblings)
	require.Len(t, stacks, 2)
	assert.Len(t, stacks[0], 3)
	assert.Len(t, stacks[1], 1)
}

func TestChildrenAtPath(t *testing.T) {
	layers := []*Layer{
		groupLayer("Version A", SectionDividerOpenFolder),
		plainLayer("Matte", Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 1}),
		groupLayer("bounding", SectionDividerBoundingSection),
	}
	tree := BuildTree(layers, 10, 10)
	root := tree.Root()

	nodes := root.ChildrenAtPath("Version A/Matte")
	require.Len(t, nodes, 1)
	assert.Equal(t, "Matte", nodes[0].Name())

	nodes = root.ChildrenAtPath("/Version A/Matte")
	require.Len(t, nodes, 1)

	assert.Empty(t, root.ChildrenAtPath("nope"))
}
