// Package export writes decoded meshes and deduplicated scenes as glTF.
package export

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshdedup/pkg/formats"
	"github.com/Faultbox/meshdedup/pkg/math"
)

// Instance is one placed copy of a mesh.
type Instance struct {
	Name    string
	AssetID string
	Mesh    *formats.Mesh
	CFrame  math.CFrame
	Size    math.Vec3
}

// WriteMesh writes a single mesh with an identity node.
func WriteMesh(w io.Writer, name string, mesh *formats.Mesh, binary bool) error {
	doc := newDocument()
	idx := addMesh(doc, name, mesh)
	origin := math.CFrameIdentity()
	addNode(doc, &gltf.Node{
		Name:        name,
		Mesh:        gltf.Index(idx),
		Translation: origin.Position.Array(),
		Rotation:    rotation(origin),
		Scale:       [3]float32{1, 1, 1},
	})
	return encode(w, doc, binary)
}

// WriteScene writes one glTF mesh per distinct asset and one node per instance.
func WriteScene(w io.Writer, instances []Instance, binary bool) error {
	doc, err := SceneDocument(instances)
	if err != nil {
		return err
	}
	return encode(w, doc, binary)
}

// SceneDocument builds the glTF document for WriteScene.
func SceneDocument(instances []Instance) (*gltf.Document, error) {
	doc := newDocument()
	meshes := make(map[string]uint32)

	for _, inst := range instances {
		if inst.Mesh == nil {
			return nil, fmt.Errorf("instance %s: no mesh for %s", inst.Name, inst.AssetID)
		}
		idx, ok := meshes[inst.AssetID]
		if !ok {
			idx = addMesh(doc, inst.AssetID, inst.Mesh)
			meshes[inst.AssetID] = idx
		}

		addNode(doc, &gltf.Node{
			Name:        inst.Name,
			Mesh:        gltf.Index(idx),
			Translation: inst.CFrame.Position.Array(),
			Rotation:    rotation(inst.CFrame),
			Scale:       scale(inst.Size, inst.Mesh.Bounds.Size()),
		})
	}
	return doc, nil
}

func newDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "default",
		DoubleSided: true,
	})
	return doc
}

func addNode(doc *gltf.Document, node *gltf.Node) {
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, node)
}

// addMesh writes the vertex streams of mesh and returns its mesh index.
func addMesh(doc *gltf.Document, name string, mesh *formats.Mesh) uint32 {
	count := len(mesh.Vertices)
	positions := make([][3]float32, count)
	normals := make([][3]float32, count)
	uvs := make([][2]float32, count)
	colors := make([][4]uint8, count)
	for i, v := range mesh.Vertices {
		positions[i] = v.Position.Array()
		normals[i] = v.Normal.Array()
		uvs[i] = [2]float32{v.UV.X, v.UV.Y}
		c := uint32(v.Color)
		colors[i] = [4]uint8{uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)}
	}

	indices := make([]uint32, 0, len(mesh.Faces)*3)
	for _, f := range mesh.Faces {
		indices = append(indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(doc, positions),
		"NORMAL":     modeler.WriteNormal(doc, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(doc, uvs),
		"COLOR_0":    modeler.WriteColor(doc, colors),
	}

	if mesh.HasBones() {
		joints := make([][4]uint16, count)
		weights := make([][4]float32, count)
		for i, v := range mesh.Vertices {
			for j := 0; j < 4; j++ {
				joints[i][j] = uint16(v.Weights.Bones[j])
				weights[i][j] = float32(v.Weights.Weights[j]) / 255
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}

	indicesAccessor := modeler.WriteIndices(doc, indices)
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{
			{
				Indices:    &indicesAccessor,
				Attributes: attributes,
				Material:   gltf.Index(0),
			},
		},
	})
	return uint32(len(doc.Meshes) - 1)
}

// rotation converts the rotation part of cf to an x, y, z, w quaternion.
func rotation(cf math.CFrame) [4]float32 {
	q := mgl32.Mat4ToQuat(mgl32.Mat4(cf.Mat4())).Normalize()
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// scale maps mesh extents onto the object size. Flat axes keep scale 1.
func scale(size, extents math.Vec3) [3]float32 {
	s := [3]float32{1, 1, 1}
	sz, ex := size.Array(), extents.Array()
	for i := range s {
		if ex[i] > 0 && sz[i] > 0 {
			s[i] = sz[i] / ex[i]
		}
	}
	return s
}

func encode(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		for _, b := range doc.Buffers {
			b.EmbeddedResource()
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding gltf: %w", err)
	}
	return nil
}
