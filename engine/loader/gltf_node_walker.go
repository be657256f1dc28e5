package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// gltfNodeInstance is a mesh reference found in the node hierarchy with its composed world transform.
type gltfNodeInstance struct {
	node      string
	mesh      int
	transform [16]float32
}

// walkNodes flattens the default scene's hierarchy into world-space mesh references, in depth-first order.
// Without a default scene the first scene is used; without scenes every root node is walked.
//
// Parameters:
//   - doc: the parsed document
//
// Returns:
//   - []gltfNodeInstance: one entry per node that references a mesh
//   - error: error if a node index is out of range or the hierarchy has a cycle
func walkNodes(doc *gltfDocument) ([]gltfNodeInstance, error) {
	roots, err := rootNodes(doc)
	if err != nil {
		return nil, err
	}

	var out []gltfNodeInstance
	visiting := make([]bool, len(doc.Nodes))
	var walk func(index int, parent [16]float32) error
	walk = func(index int, parent [16]float32) error {
		if index < 0 || index >= len(doc.Nodes) {
			return fmt.Errorf("node %d out of range", index)
		}
		if visiting[index] {
			return fmt.Errorf("node %d is its own ancestor", index)
		}
		visiting[index] = true
		defer func() { visiting[index] = false }()

		node := &doc.Nodes[index]
		local := localTransform(node)
		var world [16]float32
		common.Mul4(world[:], parent[:], local[:])

		if node.Mesh != nil {
			if *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
				return fmt.Errorf("node %d: mesh %d out of range", index, *node.Mesh)
			}
			name := node.Name
			if name == "" {
				name = fmt.Sprintf("node_%d", index)
			}
			out = append(out, gltfNodeInstance{node: name, mesh: *node.Mesh, transform: world})
		}
		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	var identity [16]float32
	common.Identity(identity[:])
	for _, root := range roots {
		if err := walk(root, identity); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rootNodes picks the nodes to walk.
func rootNodes(doc *gltfDocument) ([]int, error) {
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil {
			scene = *doc.Scene
		}
		if scene < 0 || scene >= len(doc.Scenes) {
			return nil, fmt.Errorf("scene %d out of range", scene)
		}
		return doc.Scenes[scene].Nodes, nil
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

// localTransform returns a node's matrix, or composes T * R * S from its TRS properties.
func localTransform(n *gltfNode) [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	t := common.Vec3{}
	r := [4]float32{0, 0, 0, 1}
	s := common.Vec3{1, 1, 1}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		r = *n.Rotation
	}
	if n.Scale != nil {
		s = *n.Scale
	}
	return common.TRS(t, r, s)
}
