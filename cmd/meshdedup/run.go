package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshdedup/internal/assets"
	"github.com/Faultbox/meshdedup/internal/config"
	"github.com/Faultbox/meshdedup/internal/dedup"
	"github.com/Faultbox/meshdedup/internal/export"
	"github.com/Faultbox/meshdedup/internal/logger"
	"github.com/Faultbox/meshdedup/internal/scene"
)

// run deduplicates the place at input and writes it to output. Nothing is
// written when any step fails.
func run(ctx context.Context, cfg *config.Config, input, output string) (*dedup.Report, error) {
	logger.Info("opening place", zap.String("path", input))
	doc, err := scene.Load(input)
	if err != nil {
		return nil, err
	}

	root, err := doc.Root(cfg.Dedup.Root)
	if err != nil {
		return nil, err
	}
	parts := scene.MeshParts(root)
	logger.Info("found mesh parts", zap.Int("count", len(parts)))

	fetcher, err := assets.NewFetcher(assets.Options{
		CacheDir:    cfg.Assets.CacheDir,
		Endpoint:    cfg.Assets.Endpoint,
		Concurrency: cfg.Assets.Concurrency,
		Timeout:     cfg.Assets.Timeout,
		UserAgent:   cfg.Assets.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	rotation, err := dedup.RotationByName(cfg.Dedup.Rotation)
	if err != nil {
		return nil, err
	}
	engine := dedup.New(fetcher, dedup.WithRotation(rotation))

	objects := make([]dedup.Object, len(parts))
	for i, p := range parts {
		objects[i] = p
	}

	report, err := engine.Run(ctx, objects)
	if err != nil {
		return nil, err
	}

	// Nothing is saved when the preview fails.
	if cfg.Export.GLTF != "" {
		if err := writePreview(cfg.Export.GLTF, cfg.Export.Binary, engine, report); err != nil {
			return nil, err
		}
		logger.Info("wrote preview", zap.String("path", cfg.Export.GLTF))
	}

	if err := doc.Save(output); err != nil {
		return nil, err
	}
	logger.Info("saved place", zap.String("path", output))

	hits, misses := fetcher.Stats()
	logger.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))

	return report, nil
}

func writePreview(path string, binary bool, engine *dedup.Engine, report *dedup.Report) error {
	instances := make([]export.Instance, 0, len(report.Placements))
	for _, p := range report.Placements {
		mesh, ok := engine.Mesh(p.AssetID)
		if !ok {
			return fmt.Errorf("preview: no decoded mesh for %s", p.AssetID)
		}
		instances = append(instances, export.Instance{
			Name:    p.Object,
			AssetID: p.AssetID,
			Mesh:    mesh,
			CFrame:  p.CFrame,
			Size:    p.Size,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := export.WriteScene(f, instances, binary); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

func printReport(w io.Writer, report *dedup.Report, output string) {
	fmt.Fprintf(w, "Candidates: %d\n", report.Candidates)
	fmt.Fprintf(w, "Skipped:    %d\n", report.Skipped)
	fmt.Fprintf(w, "Canonical:  %d\n", report.Canonical)
	fmt.Fprintf(w, "Rewritten:  %d\n", report.Rewritten)
	for _, r := range report.Rewrites {
		fmt.Fprintf(w, "  %s: %s -> %s (key %d, angle %.3f)\n", r.Object, r.From, r.To, r.Key, r.Angle)
	}
	fmt.Fprintf(w, "Saved to %s\n", output)
}
