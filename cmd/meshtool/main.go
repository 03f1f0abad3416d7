// meshtool is a CLI utility for inspecting, converting and benchmarking
// sculptor meshes without opening a window.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/sculptor/internal/bench"
	"github.com/Faultbox/sculptor/internal/config"
	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/mesh"
	"github.com/Faultbox/sculptor/internal/sculpt/tool"
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
	case "export", "x":
		cmdExport(args)
	case "bench":
		cmdBench(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - sculptor mesh utility

Usage:
  meshtool <command> [options] [file.stl]

Commands:
  info   [file.stl]                     Show mesh and spatial index information
  export -format stl|ply -o <out>       Write the mesh to a file
  bench  [-strokes n] [-mode m]         Run scripted strokes and print ray cast statistics

Mesh options (all commands):
  -shape sphere|icosahedron|tetrahedron Generated shape when no file is given
  -divisions n                          Sphere divisions or icosahedron detail
  -variant n                            Spiral sphere variant
  -seed n                               Random seed for colors and variants
  -dim n                                Spatial index bins per axis

Examples:
  meshtool info -shape icosahedron -divisions 45
  meshtool export -format ply -o sphere.ply -shape sphere -variant 2
  meshtool bench -strokes 100 -mode inflate scan.stl`)
}

// meshFlags registers the mesh selection flags on fs.
type meshFlags struct {
	shape     *string
	divisions *int
	variant   *int
	seed      *int64
	dim       *int
}

func addMeshFlags(fs *flag.FlagSet) meshFlags {
	def := config.Default()
	return meshFlags{
		shape:     fs.String("shape", def.Mesh.Shape, "generated shape"),
		divisions: fs.Int("divisions", def.Mesh.Divisions, "sphere divisions or icosahedron detail"),
		variant:   fs.Int("variant", def.Mesh.Variant, "spiral sphere variant"),
		seed:      fs.Int64("seed", 1, "random seed"),
		dim:       fs.Int("dim", def.Index.Dimension, "spatial index bins per axis"),
	}
}

// load builds the mesh named by the flags, or reads the STL file in fs's
// first positional argument.
func (f meshFlags) load(fs *flag.FlagSet) (*mesh.Mesh, string, error) {
	if fs.NArg() > 0 {
		path := fs.Arg(0)
		m, err := mesh.LoadSTL(path, *f.dim)
		return m, path, err
	}
	cfg := config.MeshConfig{
		Shape:     *f.shape,
		Divisions: *f.divisions,
		Variant:   *f.variant,
		Seed:      *f.seed,
	}
	m, err := mesh.Generate(cfg, *f.dim, rand.New(rand.NewSource(*f.seed)))
	return m, *f.shape, err
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	mf := addMeshFlags(fs)
	fs.Parse(args)

	m, name, err := mf.load(fs)
	if err != nil {
		fail(err)
	}

	lo, hi := m.Bounds()
	size := hi.Sub(lo)
	ix := m.Index()

	fmt.Printf("Mesh: %s\n", name)
	fmt.Printf("Vertices: %d\n", m.Verts())
	fmt.Printf("Triangles: %d\n", m.Tris())
	fmt.Printf("Non-manifold edges: %d\n", m.Anomalies())
	fmt.Printf("Degenerate triangles: %v\n", m.HasDegenerates())
	fmt.Printf("Bounds: (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	fmt.Printf("Size: %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	fmt.Println()
	fmt.Printf("Index: %d bins per axis, %d bins in use\n", ix.Dimension(), ix.Len())

	// Bin occupancy
	var most, total int
	var largest float32
	for _, b := range ix.Bins() {
		n := len(ix.BinTris(b))
		total += n
		most = max(most, n)
		if _, r, ok := ix.Sphere(b); ok {
			largest = max(largest, r)
		}
	}
	if ix.Len() > 0 {
		fmt.Printf("Triangles per bin: %.1f average, %d most\n", float64(total)/float64(ix.Len()), most)
		fmt.Printf("Largest bin sphere: %.4f\n", largest)
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	mf := addMeshFlags(fs)
	format := fs.String("format", "stl", "output format: stl or ply")
	output := fs.String("o", "", "output file")
	fs.Parse(args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: meshtool export -format stl|ply -o <out> [file.stl]")
		os.Exit(1)
	}

	m, name, err := mf.load(fs)
	if err != nil {
		fail(err)
	}

	if err := writeMesh(m, strings.ToLower(*format), *output, name); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %s (%d triangles)\n", *output, m.Tris())
}

func writeMesh(m *mesh.Mesh, format, path, name string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	w := bufio.NewWriter(f)
	switch format {
	case "stl":
		err = m.WriteSTL(w, "meshtool "+name)
	case "ply":
		err = m.WritePLY(w, "meshtool "+name)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return multierr.Append(err, w.Flush())
}

func cmdBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	mf := addMeshFlags(fs)
	def := bench.DefaultOptions()
	strokes := fs.Int("strokes", def.Strokes, "number of strokes")
	length := fs.Float64("length", float64(def.Length), "stroke length in pixels")
	mode := fs.String("mode", def.Mode.String(), "brush mode: color, inflate, deflate, handle, lift")
	radius := fs.Float64("radius", float64(def.Radius), "patch radius")
	budget := fs.Int("budget", def.Budget, "work units per frame")
	verbose := fs.Bool("v", false, "log brush activity")
	fs.Parse(args)

	if *verbose {
		if err := logger.Init("debug", ""); err != nil {
			fail(err)
		}
		defer logger.Sync()
	}

	m, name, err := mf.load(fs)
	if err != nil {
		fail(err)
	}
	md, err := tool.ParseMode(*mode)
	if err != nil {
		fail(err)
	}

	opt := bench.Options{
		Strokes: *strokes,
		Length:  float32(*length),
		Mode:    md,
		Radius:  float32(*radius),
		Budget:  *budget,
		Seed:    *mf.seed,
	}
	fmt.Printf("Mesh: %s (%d triangles)\n\n", name, m.Tris())
	rep := bench.Run(m, opt)
	if err := rep.Print(os.Stdout); err != nil {
		fail(err)
	}
}
