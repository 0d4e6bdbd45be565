package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshdedup/internal/config"
	"github.com/Faultbox/meshdedup/internal/scene"
	"github.com/Faultbox/meshdedup/pkg/formats"
	"github.com/Faultbox/meshdedup/pkg/math"
)

const place = `
instances:
  - name: Workspace
    children:
      - name: Crate
        class: MeshPart
        properties:
          TextureID: {content: "rbxassetid://900"}
          MeshId: {content: "rbxassetid://111"}
          Size: {vector3: [2, 2, 2]}
          InitialSize: {vector3: [1, 1, 1]}
          CFrame: {cframe: [0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1]}
      - name: Crate2
        class: MeshPart
        properties:
          TextureID: {content: "rbxassetid://901"}
          MeshId: {content: "rbxassetid://222"}
          Size: {vector3: [3, 3, 3]}
          InitialSize: {vector3: [1.5, 1.5, 1.5]}
          CFrame: {cframe: [4, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1]}
`

func cubeMesh(t *testing.T) []byte {
	t.Helper()
	m := &formats.Mesh{
		Header: formats.MeshHeader{NumMeshes: 1, NumVerts: 8, NumFaces: 12, NumLODs: 2},
		LODs:   []int32{0, 12},
	}
	for i := 0; i < 8; i++ {
		p := math.Vec3{X: -1, Y: -1, Z: -1}
		if i&1 != 0 {
			p.X = 1
		}
		if i&2 != 0 {
			p.Y = 1
		}
		if i&4 != 0 {
			p.Z = 1
		}
		m.Vertices = append(m.Vertices, formats.MeshVertex{Position: p, Normal: math.Up})
	}
	for i := 0; i < 12; i++ {
		m.Faces = append(m.Faces, formats.MeshFace{0, int32(1 + i%6), int32(2 + i%6)})
	}
	data, err := formats.EncodeMesh(m)
	require.NoError(t, err)
	return data
}

func setup(t *testing.T, missing ...string) (*config.Config, string) {
	t.Helper()
	mesh := cubeMesh(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		for _, m := range missing {
			if m == id {
				http.NotFound(w, r)
				return
			}
		}
		w.Write(mesh)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	input := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(input, []byte(place), 0644))

	cfg := config.Default()
	cfg.Assets.CacheDir = filepath.Join(dir, "cache")
	cfg.Assets.Endpoint = srv.URL + "/{id}"
	return cfg, dir
}

func TestRun(t *testing.T) {
	cfg, dir := setup(t)
	output := filepath.Join(dir, "out.yaml")
	cfg.Export.GLTF = filepath.Join(dir, "preview.glb")

	report, err := run(context.Background(), cfg, filepath.Join(dir, "in.yaml"), output)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rewritten)

	doc, err := scene.Load(output)
	require.NoError(t, err)
	ws, err := doc.Root("Workspace")
	require.NoError(t, err)

	crate2 := ws.Children[1]
	mesh, err := crate2.Content("MeshId")
	require.NoError(t, err)
	assert.Equal(t, "rbxassetid://111", mesh)
	size, err := crate2.Vector3("Size")
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{X: 2, Y: 2, Z: 2}, size)

	preview, err := os.ReadFile(cfg.Export.GLTF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(preview, []byte("glTF")))

	assert.FileExists(t, filepath.Join(cfg.Assets.CacheDir, "111"))
	assert.FileExists(t, filepath.Join(cfg.Assets.CacheDir, "222"))

	var out bytes.Buffer
	printReport(&out, report, output)
	assert.Contains(t, out.String(), "Rewritten:  1")
	assert.Contains(t, out.String(), "Crate2: rbxassetid://222 -> rbxassetid://111")
}

func TestRunFetchFailureWritesNothing(t *testing.T) {
	cfg, dir := setup(t, "222")
	output := filepath.Join(dir, "out.yaml")

	_, err := run(context.Background(), cfg, filepath.Join(dir, "in.yaml"), output)
	assert.Error(t, err)
	assert.NoFileExists(t, output)
}

func TestRunPreviewFailureWritesNothing(t *testing.T) {
	cfg, dir := setup(t)
	output := filepath.Join(dir, "out.yaml")
	cfg.Export.GLTF = filepath.Join(dir, "missing", "preview.glb")

	_, err := run(context.Background(), cfg, filepath.Join(dir, "in.yaml"), output)
	assert.Error(t, err)
	assert.NoFileExists(t, output)
	assert.NoFileExists(t, cfg.Export.GLTF)
}

func TestRunMissingRoot(t *testing.T) {
	cfg, dir := setup(t)
	cfg.Dedup.Root = "Level"

	_, err := run(context.Background(), cfg, filepath.Join(dir, "in.yaml"), filepath.Join(dir, "out.yaml"))
	assert.ErrorIs(t, err, scene.ErrNoWorkspace)
}

func TestRunMissingInput(t *testing.T) {
	cfg, dir := setup(t)

	_, err := run(context.Background(), cfg, filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "out.yaml"))
	assert.Error(t, err)
}
