package scene

import "github.com/pkg/errors"

// ErrNoWorkspace is returned when the document has no root of the requested name.
var ErrNoWorkspace = errors.New("root instance not found")

// Mesh part property names.
const (
	TextureID = "TextureID"
	MeshID    = "MeshId"
)

// Root returns the first top-level instance named exactly name.
func (d *Document) Root(name string) (*Instance, error) {
	for _, inst := range d.Instances {
		if inst != nil && inst.Name == name {
			return inst, nil
		}
	}
	return nil, errors.Wrapf(ErrNoWorkspace, "%q", name)
}

// Descendants returns every instance below root in pre-order, root excluded.
func Descendants(root *Instance) []*Instance {
	if root == nil {
		return nil
	}
	var out []*Instance
	stack := make([]*Instance, 0, len(root.Children))
	for i := len(root.Children) - 1; i >= 0; i-- {
		stack = append(stack, root.Children[i])
	}
	for len(stack) > 0 {
		inst := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if inst == nil {
			continue
		}
		out = append(out, inst)
		for i := len(inst.Children) - 1; i >= 0; i-- {
			stack = append(stack, inst.Children[i])
		}
	}
	return out
}

// MeshParts returns the descendants of root that carry both a texture and a
// mesh reference.
func MeshParts(root *Instance) []*Instance {
	var parts []*Instance
	for _, inst := range Descendants(root) {
		if inst.Has(TextureID) && inst.Has(MeshID) {
			parts = append(parts, inst)
		}
	}
	return parts
}
