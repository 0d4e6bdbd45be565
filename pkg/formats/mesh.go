// Package formats provides parsers for binary mesh assets.
// Mesh v4.00 format parser and encoder.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"
	"os"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshdedup/pkg/math"
)

// MeshVersion is the only version banner this package understands.
const MeshVersion = "version 4.00\n"

// Fixed record sizes in bytes.
const (
	meshHeaderSize       = 24
	vertexRecordSize     = 40
	boneWeightRecordSize = 8
	faceRecordSize       = 12
	lodRecordSize        = 4
)

// Mesh format errors.
var (
	ErrBadMeshFormat     = errors.New("bad mesh format")
	ErrTruncatedMeshData = errors.New("truncated mesh data")
	ErrEmptyMesh         = errors.New("mesh has no vertices")
)

// MeshHeader is the fixed header following the version banner.
// Field order matches the on-disk layout.
type MeshHeader struct {
	NumMeshes     uint16
	NumVerts      int32
	NumFaces      int32
	NumLODs       uint16
	NumBones      uint16
	NameTableSize int32
	NumSkinData   uint16
	Stub          uint16
}

// BoneWeights holds up to four bone influences for a vertex.
type BoneWeights struct {
	Bones   [4]uint8
	Weights [4]uint8
}

// MeshVertex is a decoded vertex. Weights is zero unless the mesh has bones.
type MeshVertex struct {
	Position math.Vec3
	Normal   math.Vec3
	UV       math.Vec3 // Z is unused by this format
	Color    int32     // packed RGBA
	Weights  BoneWeights
}

// MeshFace holds three indices into the vertex array.
type MeshFace [3]int32

// BoundingBox is the component-wise min and max of all vertex positions.
type BoundingBox struct {
	Min math.Vec3
	Max math.Vec3
}

// Size returns the extents of the box.
func (b BoundingBox) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Extremes are the outermost vertex positions along X and Z.
// Each is picked from the vertices not already chosen, in field order.
type Extremes struct {
	MinX math.Vec3
	MaxX math.Vec3
	MinZ math.Vec3
	MaxZ math.Vec3
}

// Mesh represents a decoded mesh asset.
type Mesh struct {
	Header   MeshHeader
	Vertices []MeshVertex
	Faces    []MeshFace
	LODs     []int32 // face-index offsets, non-decreasing

	// Trailing holds the bone, name-table and skin sections after the LOD
	// block. They are kept verbatim so EncodeMesh reproduces the input.
	Trailing []byte

	// Derived by Recompute.
	Bounds    BoundingBox
	Extremes  Extremes
	Triangles int32
	Key       int32
}

// HasBones returns true if vertices carry bone weights.
func (m *Mesh) HasBones() bool {
	return m.Header.NumBones > 0
}

// Summary returns a one-line description of the header and derived values.
func (m *Mesh) Summary() string {
	h := m.Header
	return fmt.Sprintf("meshes=%d verts=%d faces=%d lods=%d bones=%d name_table=%d skin_data=%d stub=%d triangles=%d key=%d",
		h.NumMeshes, h.NumVerts, h.NumFaces, h.NumLODs, h.NumBones, h.NameTableSize, h.NumSkinData, h.Stub,
		m.Triangles, m.Key)
}

// vertexRecord is the on-disk vertex layout.
type vertexRecord struct {
	Position [3]float32
	Normal   [3]float32
	UV       [3]float32
	Color    int32
}

// ParseMesh parses a v4.00 mesh from raw bytes.
func ParseMesh(data []byte) (*Mesh, error) {
	if len(data) < len(MeshVersion) {
		return nil, fmt.Errorf("%w: reading version banner", ErrTruncatedMeshData)
	}
	if string(data[:len(MeshVersion)]) != MeshVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrBadMeshFormat, data[:len(MeshVersion)])
	}

	r := bytes.NewReader(data[len(MeshVersion):])

	header, err := parseMeshHeader(r)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{Header: header}

	if mesh.Vertices, err = parseVertices(r, header); err != nil {
		return nil, err
	}
	if mesh.Faces, err = parseFaces(r, header); err != nil {
		return nil, err
	}
	if mesh.LODs, err = parseLODs(r, header); err != nil {
		return nil, err
	}

	if r.Len() > 0 {
		mesh.Trailing = make([]byte, r.Len())
		r.Read(mesh.Trailing)
	}

	if err := mesh.Recompute(); err != nil {
		return nil, err
	}

	return mesh, nil
}

// ParseMeshFile parses a mesh file from disk.
func ParseMeshFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return ParseMesh(data)
}

// need fails with ErrTruncatedMeshData if fewer than count*size bytes remain.
func need(r *bytes.Reader, count int64, size int64, what string) error {
	if int64(r.Len()) < count*size {
		return fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncatedMeshData, what, count*size, r.Len())
	}
	return nil
}

func parseMeshHeader(r *bytes.Reader) (MeshHeader, error) {
	var header MeshHeader

	if err := need(r, 1, meshHeaderSize, "header"); err != nil {
		return header, err
	}

	var headerSize int16
	binary.Read(r, binary.LittleEndian, &headerSize)
	if headerSize != meshHeaderSize {
		return header, fmt.Errorf("%w: header size %d, expected %d", ErrBadMeshFormat, headerSize, meshHeaderSize)
	}

	binary.Read(r, binary.LittleEndian, &header)

	if header.NumVerts < 0 || header.NumFaces < 0 || header.NameTableSize < 0 {
		return header, fmt.Errorf("%w: negative count (verts=%d faces=%d name_table=%d)",
			ErrBadMeshFormat, header.NumVerts, header.NumFaces, header.NameTableSize)
	}

	return header, nil
}

// parseVertices reads the vertex block and, for skinned meshes, the bone
// weight block that trails it.
func parseVertices(r *bytes.Reader, header MeshHeader) ([]MeshVertex, error) {
	count := int64(header.NumVerts)
	if err := need(r, count, vertexRecordSize, "vertices"); err != nil {
		return nil, err
	}

	records := make([]vertexRecord, count)
	binary.Read(r, binary.LittleEndian, records)

	vertices := make([]MeshVertex, count)
	for i, rec := range records {
		vertices[i] = MeshVertex{
			Position: vec3(rec.Position),
			Normal:   vec3(rec.Normal),
			UV:       vec3(rec.UV),
			Color:    rec.Color,
		}
	}

	if header.NumBones == 0 {
		return vertices, nil
	}

	if err := need(r, count, boneWeightRecordSize, "bone weights"); err != nil {
		return nil, err
	}
	weights := make([]BoneWeights, count)
	binary.Read(r, binary.LittleEndian, weights)
	for i := range vertices {
		vertices[i].Weights = weights[i]
	}

	return vertices, nil
}

func parseFaces(r *bytes.Reader, header MeshHeader) ([]MeshFace, error) {
	count := int64(header.NumFaces)
	if err := need(r, count, faceRecordSize, "faces"); err != nil {
		return nil, err
	}

	faces := make([]MeshFace, count)
	binary.Read(r, binary.LittleEndian, faces)

	for i, face := range faces {
		for _, idx := range face {
			if idx < 0 || idx >= header.NumVerts {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d",
					ErrBadMeshFormat, i, idx, header.NumVerts)
			}
		}
	}

	return faces, nil
}

func parseLODs(r *bytes.Reader, header MeshHeader) ([]int32, error) {
	count := int64(header.NumLODs)
	if err := need(r, count, lodRecordSize, "lod boundaries"); err != nil {
		return nil, err
	}

	lods := make([]int32, count)
	binary.Read(r, binary.LittleEndian, lods)

	for i, lod := range lods {
		if lod < 0 || lod > header.NumFaces {
			return nil, fmt.Errorf("%w: lod boundary %d (%d) outside [0, %d]",
				ErrBadMeshFormat, i, lod, header.NumFaces)
		}
	}
	for i := 1; i < len(lods); i++ {
		if lods[i] < lods[i-1] {
			return nil, fmt.Errorf("%w: lod boundary %d (%d) is below boundary %d (%d)",
				ErrBadMeshFormat, i, lods[i], i-1, lods[i-1])
		}
	}

	return lods, nil
}

// Recompute refreshes the derived fields after the vertex or LOD data changed.
func (m *Mesh) Recompute() error {
	if len(m.Vertices) == 0 {
		return ErrEmptyMesh
	}
	for i, v := range m.Vertices {
		if !v.Position.IsFinite() {
			return fmt.Errorf("%w: vertex %d has non-finite position %v", ErrBadMeshFormat, i, v.Position)
		}
	}

	m.Bounds = computeBounds(m.Vertices)
	m.Extremes = computeExtremes(m.Vertices)

	m.Triangles = 0
	if len(m.LODs) > 1 {
		m.Triangles = m.LODs[1] - m.LODs[0]
	}

	m.Key = GeometryKey(m.Triangles, m.Bounds)
	return nil
}

// GeometryKey is the approximate fingerprint used to group duplicate meshes:
// triangles + floor(|min.x+min.y+min.z| + (max.x+max.y+max.z)).
// Different meshes may share a key.
func GeometryKey(triangles int32, bounds BoundingBox) int32 {
	extent := math32.Abs(bounds.Min.Sum()) + bounds.Max.Sum()
	return saturatingAdd(triangles, saturateInt32(math32.Floor(extent)))
}

// saturateInt32 converts f to int32, clamping out-of-range values and
// mapping NaN to 0.
func saturateInt32(f float32) int32 {
	switch {
	case math32.IsNaN(f):
		return 0
	case f >= stdmath.MaxInt32:
		return stdmath.MaxInt32
	case f <= stdmath.MinInt32:
		return stdmath.MinInt32
	}
	return int32(f)
}

func saturatingAdd(a, b int32) int32 {
	sum := int64(a) + int64(b)
	switch {
	case sum > stdmath.MaxInt32:
		return stdmath.MaxInt32
	case sum < stdmath.MinInt32:
		return stdmath.MinInt32
	}
	return int32(sum)
}

func computeBounds(vertices []MeshVertex) BoundingBox {
	box := BoundingBox{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		box.Min = box.Min.Min(v.Position)
		box.Max = box.Max.Max(v.Position)
	}
	return box
}

func computeExtremes(vertices []MeshVertex) Extremes {
	all := make([]math.Vec3, len(vertices))
	for i, v := range vertices {
		all[i] = v.Position
	}
	pool := append([]math.Vec3(nil), all...)

	take := func(better func(a, b math.Vec3) bool) math.Vec3 {
		if len(pool) == 0 {
			pool = append(pool, all...)
		}
		best := 0
		for i := range pool {
			if better(pool[i], pool[best]) {
				best = i
			}
		}
		p := pool[best]
		pool = append(pool[:best], pool[best+1:]...)
		return p
	}

	var e Extremes
	e.MinX = take(func(a, b math.Vec3) bool { return a.X < b.X })
	e.MaxX = take(func(a, b math.Vec3) bool { return a.X > b.X })
	e.MinZ = take(func(a, b math.Vec3) bool { return a.Z < b.Z })
	e.MaxZ = take(func(a, b math.Vec3) bool { return a.Z > b.Z })
	return e
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// EncodeMesh writes m back into the v4.00 layout.
// Header counts must agree with the slice lengths.
func EncodeMesh(m *Mesh) ([]byte, error) {
	h := m.Header
	if int(h.NumVerts) != len(m.Vertices) || int(h.NumFaces) != len(m.Faces) || int(h.NumLODs) != len(m.LODs) {
		return nil, fmt.Errorf("%w: header counts (verts=%d faces=%d lods=%d) do not match data (%d, %d, %d)",
			ErrBadMeshFormat, h.NumVerts, h.NumFaces, h.NumLODs, len(m.Vertices), len(m.Faces), len(m.LODs))
	}

	buf := new(bytes.Buffer)
	buf.Grow(len(MeshVersion) + meshHeaderSize +
		len(m.Vertices)*(vertexRecordSize+boneWeightRecordSize) +
		len(m.Faces)*faceRecordSize + len(m.LODs)*lodRecordSize + len(m.Trailing))

	buf.WriteString(MeshVersion)
	binary.Write(buf, binary.LittleEndian, int16(meshHeaderSize))
	binary.Write(buf, binary.LittleEndian, h)

	records := make([]vertexRecord, len(m.Vertices))
	for i, v := range m.Vertices {
		records[i] = vertexRecord{
			Position: v.Position.Array(),
			Normal:   v.Normal.Array(),
			UV:       v.UV.Array(),
			Color:    v.Color,
		}
	}
	binary.Write(buf, binary.LittleEndian, records)

	if m.HasBones() {
		weights := make([]BoneWeights, len(m.Vertices))
		for i, v := range m.Vertices {
			weights[i] = v.Weights
		}
		binary.Write(buf, binary.LittleEndian, weights)
	}

	binary.Write(buf, binary.LittleEndian, m.Faces)
	binary.Write(buf, binary.LittleEndian, m.LODs)
	buf.Write(m.Trailing)

	return buf.Bytes(), nil
}
