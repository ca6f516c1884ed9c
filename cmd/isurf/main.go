// Command isurf runs the build_implicit_surfaces pipeline (spec §6)
// against a binary corner file and writes the extracted surface to an
// STL or OBJ file. No CLI framework appears anywhere in the retrieval
// pack, so this mirrors the teacher's own examples/ entry points: a
// plain main using the standard flag package.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/distsurf/isosurf/driver"
	"github.com/distsurf/isosurf/gridindex"
	"github.com/distsurf/isosurf/surf"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	var (
		dim       = flag.Int("dim", 3, "lattice dimension, 2 or 3")
		nx        = flag.Int("nx", 1, "cells along x")
		ny        = flag.Int("ny", 1, "cells along y")
		nz        = flag.Int("nz", 1, "cells along z (ignored for -dim=2)")
		numRanks  = flag.Int("ranks", 1, "simulated rank count")
		threshold = flag.Float64("threshold", 127.5, "iso-surface threshold, strictly between 0 and 255")
		cornerPath = flag.String("corners", "", "path to the binary corner file")
		typePath  = flag.String("types", "", "optional path to the binary type file")
		outPath   = flag.String("out", "surface.stl", "output mesh path (.stl or .obj)")
	)
	flag.Parse()

	if err := run(*dim, *nx, *ny, *nz, *numRanks, *threshold, *cornerPath, *typePath, *outPath); err != nil {
		slog.Error("build_implicit_surfaces failed", "error", err)
		os.Exit(1)
	}
}

func run(dim, nx, ny, nz, numRanks int, threshold float64, cornerPath, typePath, outPath string) error {
	if cornerPath == "" {
		return fmt.Errorf("isurf: -corners is required")
	}
	cornerFile, err := os.Open(cornerPath)
	if err != nil {
		return err
	}
	defer cornerFile.Close()

	var opts driver.Options
	if typePath != "" {
		typeFile, err := os.Open(typePath)
		if err != nil {
			return err
		}
		defer typeFile.Close()
		opts.TypeFile = typeFile
	}

	cfg := driver.Config{
		Topo: gridindex.Topology{
			Dim: dim, Nx: nx, Ny: ny, Nz: nz,
			Hi:       r3.Vec{X: float64(nx), Y: float64(ny), Z: float64(nz)},
			NumRanks: numRanks,
		},
		CornerFile:          cornerFile,
		Threshold:           threshold,
		Options:             opts,
		GridExists:          true,
		SurfacesAreImplicit: true,
	}

	stores, stats, err := driver.BuildImplicitSurfaces(cfg)
	if err != nil {
		return err
	}
	slog.Info("extraction complete", "triangles", stats.TriangleCount, "segments", stats.SegmentCount)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var all []surf.Primitive
	for _, s := range stores {
		all = append(all, s.All()...)
	}
	if isOBJ(outPath) {
		return surf.WriteOBJ(out, all)
	}
	return surf.WriteSTL(out, all)
}

func isOBJ(path string) bool {
	return len(path) >= 4 && path[len(path)-4:] == ".obj"
}
