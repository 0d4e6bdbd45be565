// Package dedup finds scene objects whose meshes are geometric duplicates
// and points them all at one canonical mesh asset.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshdedup/internal/logger"
	"github.com/Faultbox/meshdedup/pkg/formats"
	"github.com/Faultbox/meshdedup/pkg/math"
)

// Property names read from and written to candidate objects.
const (
	PropTextureID   = "TextureID"
	PropMeshID      = "MeshId"
	PropInitialSize = "InitialSize"
	PropSize        = "Size"
	PropCFrame      = "CFrame"
)

// Object is a scene object exposing typed property access.
type Object interface {
	String() string
	Content(field string) (string, error)
	SetContent(field, value string) error
	Vector3(field string) (math.Vec3, error)
	SetVector3(field string, v math.Vec3) error
	CFrame(field string) (math.CFrame, error)
	SetCFrame(field string, cf math.CFrame) error
}

// Fetcher supplies mesh bytes by asset identifier.
type Fetcher interface {
	FetchAll(ctx context.Context, assetIDs []string) error
	Fetch(ctx context.Context, assetID string) ([]byte, error)
}

// CachedMesh is the canonical representative of a geometry key.
type CachedMesh struct {
	Mesh        *formats.Mesh
	AssetID     string
	CFrame      math.CFrame
	InitialSize math.Vec3
	Size        math.Vec3
}

// Rewrite records one duplicate redirected to a canonical mesh.
type Rewrite struct {
	Object string
	From   string
	To     string
	Key    int32
	Angle  float32
}

// Placement is the final state of one processed object.
type Placement struct {
	Object    string
	AssetID   string
	CFrame    math.CFrame
	Size      math.Vec3
	Canonical bool
}

// Report summarizes a run.
type Report struct {
	Candidates int
	Skipped    int
	Canonical  int
	Rewritten  int

	Rewrites   []Rewrite
	Placements []Placement
}

// Option configures an Engine.
type Option func(*Engine)

// WithRotation sets the rotation correction for duplicates.
func WithRotation(r RotationStrategy) Option {
	return func(e *Engine) {
		e.rotation = r
	}
}

// Engine runs deduplication over a list of objects.
type Engine struct {
	fetcher  Fetcher
	rotation RotationStrategy

	cache   map[int32]*CachedMesh
	byAsset map[string]*formats.Mesh
}

// New creates an engine.
func New(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:  fetcher,
		rotation: ZeroRotation,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// candidate is an object that passed planning.
type candidate struct {
	obj         Object
	meshID      string
	initialSize math.Vec3
	size        math.Vec3
	cframe      math.CFrame
}

// Run deduplicates objects in order. The first object seen for a key
// becomes canonical. Any fetch, decode or write failure aborts the run;
// objects may then be partially rewritten and must not be persisted.
func (e *Engine) Run(ctx context.Context, objects []Object) (*Report, error) {
	e.cache = make(map[int32]*CachedMesh)
	e.byAsset = make(map[string]*formats.Mesh)

	report := &Report{Candidates: len(objects)}

	planned, err := e.plan(objects, report)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(planned))
	for i, c := range planned {
		ids[i] = c.meshID
	}
	logger.Info("fetching meshes", zap.Int("objects", len(planned)))
	if err := e.fetcher.FetchAll(ctx, ids); err != nil {
		return nil, fmt.Errorf("downloading meshes: %w", err)
	}

	for _, c := range planned {
		if err := e.process(ctx, c, report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (e *Engine) plan(objects []Object, report *Report) ([]candidate, error) {
	planned := make([]candidate, 0, len(objects))
	for _, obj := range objects {
		texture, err := obj.Content(PropTextureID)
		if err != nil {
			logger.Warn("skipping object", logger.Object(obj), zap.Error(err))
			report.Skipped++
			continue
		}
		meshID, err := obj.Content(PropMeshID)
		if err != nil {
			logger.Warn("skipping object", logger.Object(obj), zap.Error(err))
			report.Skipped++
			continue
		}
		if strings.TrimSpace(texture) == "" || strings.TrimSpace(meshID) == "" {
			logger.Warn("skipping object without texture or mesh", logger.Object(obj))
			report.Skipped++
			continue
		}

		c := candidate{obj: obj, meshID: meshID}
		if c.initialSize, err = obj.Vector3(PropInitialSize); err != nil {
			return nil, err
		}
		if c.size, err = obj.Vector3(PropSize); err != nil {
			return nil, err
		}
		if c.cframe, err = obj.CFrame(PropCFrame); err != nil {
			return nil, err
		}
		planned = append(planned, c)
	}
	return planned, nil
}

func (e *Engine) process(ctx context.Context, c candidate, report *Report) error {
	data, err := e.fetcher.Fetch(ctx, c.meshID)
	if err != nil {
		return fmt.Errorf("loading mesh for %s: %w", c.obj, err)
	}
	mesh, err := formats.ParseMesh(data)
	if err != nil {
		return fmt.Errorf("decoding mesh %s for %s: %w", c.meshID, c.obj, err)
	}

	log := logger.With(logger.Object(c.obj), logger.Asset(c.meshID), logger.Key(mesh.Key))
	log.Debug("decoded mesh", zap.String("summary", mesh.Summary()))
	logger.DebugDump("mesh bounds", "bounds", mesh.Bounds, logger.Asset(c.meshID))

	canon, ok := e.cache[mesh.Key]
	if !ok {
		e.cache[mesh.Key] = &CachedMesh{
			Mesh:        mesh,
			AssetID:     c.meshID,
			CFrame:      c.cframe,
			InitialSize: c.initialSize,
			Size:        c.size,
		}
		e.byAsset[c.meshID] = mesh
		report.Canonical++
		report.Placements = append(report.Placements, Placement{
			Object:    c.obj.String(),
			AssetID:   c.meshID,
			CFrame:    c.cframe,
			Size:      c.size,
			Canonical: true,
		})
		log.Info("cached mesh")
		return nil
	}

	angle := e.rotation.Angle(canon.Mesh, mesh)
	cframe := c.cframe.Mul(math.Angles(0, angle, 0))

	if err := c.obj.SetContent(PropMeshID, canon.AssetID); err != nil {
		return err
	}
	if err := c.obj.SetVector3(PropSize, canon.Size); err != nil {
		return err
	}
	if err := c.obj.SetVector3(PropInitialSize, canon.InitialSize); err != nil {
		return err
	}
	if err := c.obj.SetCFrame(PropCFrame, cframe); err != nil {
		return err
	}

	report.Rewritten++
	report.Rewrites = append(report.Rewrites, Rewrite{
		Object: c.obj.String(),
		From:   c.meshID,
		To:     canon.AssetID,
		Key:    mesh.Key,
		Angle:  angle,
	})
	report.Placements = append(report.Placements, Placement{
		Object:  c.obj.String(),
		AssetID: canon.AssetID,
		CFrame:  cframe,
		Size:    canon.Size,
	})
	log.Info("rewrote mesh", zap.String("to", canon.AssetID), zap.Float32("angle", angle))
	return nil
}

// Mesh returns the decoded mesh of a canonical asset from the last run.
func (e *Engine) Mesh(assetID string) (*formats.Mesh, bool) {
	m, ok := e.byAsset[assetID]
	return m, ok
}

// Canonical returns the representative cached for key in the last run.
func (e *Engine) Canonical(key int32) (*CachedMesh, bool) {
	c, ok := e.cache[key]
	return c, ok
}
