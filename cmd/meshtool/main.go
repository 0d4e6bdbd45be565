// meshtool is a CLI utility for inspecting and converting v4.00 mesh assets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/meshdedup/internal/assets"
	"github.com/Faultbox/meshdedup/internal/config"
	"github.com/Faultbox/meshdedup/internal/export"
	"github.com/Faultbox/meshdedup/internal/logger"
	"github.com/Faultbox/meshdedup/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "key":
		cmdKey(args)
	case "fetch":
		cmdFetch(args)
	case "export", "x":
		cmdExport(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - mesh asset utility

Usage:
  meshtool <command> [options]

Commands:
  info [-dump] <file>                Show header, bounds and geometry key
  key <file>...                      Print geometry keys, grouping duplicates
  fetch [-cache dir] <asset-id>...   Download assets into the cache
  export <file> <out.glb|out.gltf>   Convert a mesh to glTF
  config <path>                      Write the default configuration

Examples:
  meshtool info cache/4821304
  meshtool key cache/*
  meshtool fetch rbxassetid://4821304 rbxassetid://4821305
  meshtool export cache/4821304 rock.glb`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dump := fs.Bool("dump", false, "Dump the decoded header and bounds")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool info [-dump] <file>")
		os.Exit(1)
	}

	mesh, err := formats.ParseMeshFile(fs.Arg(0))
	if err != nil {
		fail(err)
	}

	b := mesh.Bounds
	fmt.Printf("File:      %s\n", fs.Arg(0))
	fmt.Printf("Header:    %s\n", mesh.Summary())
	fmt.Printf("Bounds:    min (%g, %g, %g) max (%g, %g, %g)\n",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	size := b.Size()
	fmt.Printf("Size:      %g x %g x %g\n", size.X, size.Y, size.Z)
	fmt.Printf("Trailing:  %d bytes\n", len(mesh.Trailing))

	if *dump {
		fmt.Println()
		fmt.Print(logger.Dump(mesh.Header, mesh.Bounds, mesh.Extremes))
	}
}

func cmdKey(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool key <file>...")
		os.Exit(1)
	}

	groups := make(map[int32][]string)
	for _, path := range args {
		mesh, err := formats.ParseMeshFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		groups[mesh.Key] = append(groups[mesh.Key], path)
	}

	keys := make([]int32, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		files := groups[k]
		marker := ""
		if len(files) > 1 {
			marker = fmt.Sprintf("  (%d duplicates)", len(files)-1)
		}
		fmt.Printf("%-8d %s%s\n", k, strings.Join(files, " "), marker)
	}
}

func cmdFetch(args []string) {
	defaults := config.Default()

	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cache := fs.String("cache", defaults.Assets.CacheDir, "Asset cache directory")
	endpoint := fs.String("endpoint", defaults.Assets.Endpoint, "Asset URL template")
	concurrency := fs.Int("concurrency", defaults.Assets.Concurrency, "Maximum concurrent downloads")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool fetch [-cache dir] <asset-id>...")
		os.Exit(1)
	}

	if err := logger.Init("info", ""); err != nil {
		fail(err)
	}
	defer logger.Sync()

	fetcher, err := assets.NewFetcher(assets.Options{
		CacheDir:    *cache,
		Endpoint:    *endpoint,
		Concurrency: *concurrency,
		Timeout:     defaults.Assets.Timeout,
		UserAgent:   defaults.Assets.UserAgent,
	})
	if err != nil {
		fail(err)
	}

	if err := fetcher.FetchAll(context.Background(), fs.Args()); err != nil {
		fail(err)
	}

	for _, assetID := range fs.Args() {
		id, _ := assets.ExtractID(assetID)
		fmt.Println(fetcher.CachePath(id))
	}
}

func cmdExport(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool export <file> <out.glb|out.gltf>")
		os.Exit(1)
	}

	mesh, err := formats.ParseMeshFile(args[0])
	if err != nil {
		fail(err)
	}

	out, err := os.Create(args[1])
	if err != nil {
		fail(err)
	}

	binary := !strings.EqualFold(filepath.Ext(args[1]), ".gltf")
	name := filepath.Base(args[0])
	if err := export.WriteMesh(out, name, mesh, binary); err != nil {
		out.Close()
		fail(err)
	}
	if err := out.Close(); err != nil {
		fail(err)
	}

	fmt.Printf("Exported %s (%d vertices, %d faces) to %s\n",
		args[0], len(mesh.Vertices), len(mesh.Faces), args[1])
}

func cmdConfig(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool config <path>")
		os.Exit(1)
	}

	if err := config.Default().SaveTo(args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %s\n", args[0])
}
