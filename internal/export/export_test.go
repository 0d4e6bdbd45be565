package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshdedup/pkg/formats"
	"github.com/Faultbox/meshdedup/pkg/math"
)

// testMesh returns a two-triangle quad spanning [-1, 1] on X and Z.
func testMesh(t *testing.T, bones bool) *formats.Mesh {
	t.Helper()
	corners := []math.Vec3{{X: -1, Z: -1}, {X: 1, Z: -1}, {X: 1, Z: 1}, {X: -1, Z: 1}}
	m := &formats.Mesh{
		Header: formats.MeshHeader{NumMeshes: 1, NumVerts: 4, NumFaces: 2, NumLODs: 2},
		Faces:  []formats.MeshFace{{0, 1, 2}, {0, 2, 3}},
		LODs:   []int32{0, 2},
	}
	if bones {
		m.Header.NumBones = 1
	}
	for i, p := range corners {
		m.Vertices = append(m.Vertices, formats.MeshVertex{
			Position: p,
			Normal:   math.Up,
			UV:       math.Vec3{X: float32(i) / 4, Y: 0.5},
			Color:    int32(0x7f102030),
			Weights:  formats.BoneWeights{Bones: [4]uint8{0}, Weights: [4]uint8{255}},
		})
	}
	require.NoError(t, m.Recompute())
	return m
}

func decode(t *testing.T, data []byte) *gltf.Document {
	t.Helper()
	doc := &gltf.Document{}
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(data)).Decode(doc))
	return doc
}

func TestWriteMeshBinary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMesh(&buf, "quad", testMesh(t, false), true))
	assert.Equal(t, "glTF", buf.String()[:4])

	doc := decode(t, buf.Bytes())
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)

	prim := doc.Meshes[0].Primitives[0]
	for _, attr := range []string{"POSITION", "NORMAL", "TEXCOORD_0", "COLOR_0"} {
		assert.Contains(t, prim.Attributes, attr)
	}
	assert.NotContains(t, prim.Attributes, "JOINTS_0")

	positions, err := modeler.ReadPosition(doc, doc.Accessors[prim.Attributes["POSITION"]], nil)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}}, positions)

	indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)
}

func TestWriteMeshBones(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMesh(&buf, "skinned", testMesh(t, true), true))

	doc := decode(t, buf.Bytes())
	prim := doc.Meshes[0].Primitives[0]
	assert.Contains(t, prim.Attributes, "JOINTS_0")
	assert.Contains(t, prim.Attributes, "WEIGHTS_0")
}

func TestWriteMeshText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMesh(&buf, "quad", testMesh(t, false), false))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
	assert.Contains(t, buf.String(), "data:application/octet-stream;base64,")

	doc := decode(t, buf.Bytes())
	assert.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, [3]float32{0, 0, 0}, doc.Nodes[0].Translation)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, doc.Nodes[0].Rotation)
}

func TestWriteScene(t *testing.T) {
	quad := testMesh(t, false)
	other := testMesh(t, false)

	turned := math.Angles(0, math32.Pi/2, 0)
	turned.Position = math.Vec3{X: 5, Y: 1, Z: -2}

	instances := []Instance{
		{Name: "A", AssetID: "rbxassetid://111", Mesh: quad, CFrame: math.NewCFrame(0, 0, 0), Size: math.Vec3{X: 2, Y: 2, Z: 2}},
		{Name: "B", AssetID: "rbxassetid://111", Mesh: quad, CFrame: turned, Size: math.Vec3{X: 4, Y: 1, Z: 1}},
		{Name: "C", AssetID: "rbxassetid://333", Mesh: other, CFrame: math.NewCFrame(1, 1, 1), Size: math.Vec3{X: 2, Y: 2, Z: 2}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScene(&buf, instances, true))

	doc := decode(t, buf.Bytes())
	assert.Len(t, doc.Meshes, 2)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, []uint32{0, 1, 2}, doc.Scenes[0].Nodes)

	b := doc.Nodes[1]
	assert.Equal(t, "B", b.Name)
	require.NotNil(t, b.Mesh)
	assert.Equal(t, uint32(0), *b.Mesh)
	assert.Equal(t, [3]float32{5, 1, -2}, b.Translation)

	half := math32.Sqrt(2) / 2
	assert.InDelta(t, 0, b.Rotation[0], 1e-5)
	assert.InDelta(t, half, b.Rotation[1], 1e-5)
	assert.InDelta(t, 0, b.Rotation[2], 1e-5)
	assert.InDelta(t, half, b.Rotation[3], 1e-5)

	// Quad is 2 wide on X and Z and flat on Y.
	assert.Equal(t, [3]float32{2, 1, 0.5}, b.Scale)

	require.NotNil(t, doc.Nodes[2].Mesh)
	assert.Equal(t, uint32(1), *doc.Nodes[2].Mesh)
}

func TestSceneDocumentMissingMesh(t *testing.T) {
	_, err := SceneDocument([]Instance{{Name: "A", AssetID: "rbxassetid://1"}})
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	tests := []struct {
		name    string
		size    math.Vec3
		extents math.Vec3
		want    [3]float32
	}{
		{"uniform", math.Vec3{X: 4, Y: 4, Z: 4}, math.Vec3{X: 2, Y: 2, Z: 2}, [3]float32{2, 2, 2}},
		{"flat axis", math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: 2, Y: 0, Z: 4}, [3]float32{0.5, 1, 0.25}},
		{"zero size", math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1}, [3]float32{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scale(tt.size, tt.extents))
		})
	}
}

func TestRotationIdentity(t *testing.T) {
	assert.Equal(t, [4]float32{0, 0, 0, 1}, rotation(math.CFrameIdentity()))
}
