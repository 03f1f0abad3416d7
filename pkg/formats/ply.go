package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/sculptor/pkg/math"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic   = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLY    = errors.New("unsupported PLY format")
	ErrTruncatedPLYData  = errors.New("truncated PLY data")
	ErrInvalidPLYElement = errors.New("invalid PLY element")
)

// PLYVertex is one vertex with its normal and color. Color channels are in
// [0, 1].
type PLYVertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Color    math.Vec3
}

// PLY represents an ASCII PLY mesh of triangles.
type PLY struct {
	Comment  string
	Vertices []PLYVertex
	Faces    [][3]uint32
}

var plyVertexProps = []string{"x", "y", "z", "nx", "ny", "nz", "red", "green", "blue"}

// WritePLY writes p as ASCII PLY with float positions and normals and uchar
// colors.
func WritePLY(w io.Writer, p *PLY) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format ascii 1.0")
	if p.Comment != "" {
		fmt.Fprintf(bw, "comment %s\n", strings.ReplaceAll(p.Comment, "\n", " "))
	}
	fmt.Fprintf(bw, "element vertex %d\n", len(p.Vertices))
	for _, name := range plyVertexProps[:6] {
		fmt.Fprintf(bw, "property float %s\n", name)
	}
	for _, name := range plyVertexProps[6:] {
		fmt.Fprintf(bw, "property uchar %s\n", name)
	}
	fmt.Fprintf(bw, "element face %d\n", len(p.Faces))
	fmt.Fprintln(bw, "property list uchar uint vertex_indices")
	fmt.Fprintln(bw, "end_header")

	for _, v := range p.Vertices {
		fmt.Fprintf(bw, "%g %g %g %g %g %g %d %d %d\n",
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			colorByte(v.Color.X), colorByte(v.Color.Y), colorByte(v.Color.Z),
		)
	}
	for _, f := range p.Faces {
		fmt.Fprintf(bw, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing PLY: %w", err)
	}
	return nil
}

func colorByte(c float32) int {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return int(c * 255)
}

// plyHeader is the part of a PLY header ParsePLY understands.
type plyHeader struct {
	vertices int
	faces    int
	props    map[string]int // vertex property name -> column
}

// ParsePLY parses an ASCII PLY file of triangles. Vertex properties other
// than position, normal and color are ignored; missing ones read as zero.
func ParsePLY(data []byte) (*PLY, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "ply" {
		return nil, ErrInvalidPLYMagic
	}

	p := &PLY{}
	h, err := parsePLYHeader(sc, p)
	if err != nil {
		return nil, err
	}

	p.Vertices = make([]PLYVertex, h.vertices)
	for i := range p.Vertices {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: vertex %d", ErrTruncatedPLYData, i)
		}
		fields := strings.Fields(sc.Text())
		col := func(name string) (float32, error) {
			j, ok := h.props[name]
			if !ok {
				return 0, nil
			}
			if j >= len(fields) {
				return 0, fmt.Errorf("%w: vertex %d lacks %s", ErrTruncatedPLYData, i, name)
			}
			v, err := strconv.ParseFloat(fields[j], 32)
			if err != nil {
				return 0, fmt.Errorf("%w: vertex %d %s: %v", ErrInvalidPLYElement, i, name, err)
			}
			return float32(v), nil
		}
		var vals [9]float32
		for k, name := range plyVertexProps {
			if vals[k], err = col(name); err != nil {
				return nil, err
			}
		}
		p.Vertices[i] = PLYVertex{
			Position: math.Vec3{X: vals[0], Y: vals[1], Z: vals[2]},
			Normal:   math.Vec3{X: vals[3], Y: vals[4], Z: vals[5]},
			Color:    math.Vec3{X: vals[6] / 255, Y: vals[7] / 255, Z: vals[8] / 255},
		}
	}

	p.Faces = make([][3]uint32, h.faces)
	for i := range p.Faces {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: face %d", ErrTruncatedPLYData, i)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 4 || fields[0] != "3" {
			return nil, fmt.Errorf("%w: face %d is not a triangle", ErrInvalidPLYElement, i)
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseUint(fields[j+1], 10, 32)
			if err != nil || int(v) >= h.vertices {
				return nil, fmt.Errorf("%w: face %d index %q", ErrInvalidPLYElement, i, fields[j+1])
			}
			p.Faces[i][j] = uint32(v)
		}
	}
	return p, nil
}

func parsePLYHeader(sc *bufio.Scanner, p *PLY) (plyHeader, error) {
	h := plyHeader{props: make(map[string]int)}
	element := ""
	column := 0
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 || fields[1] != "ascii" {
				return h, fmt.Errorf("%w: %s", ErrUnsupportedPLY, sc.Text())
			}
		case "comment":
			p.Comment = strings.TrimSpace(strings.TrimPrefix(sc.Text(), "comment"))
		case "element":
			if len(fields) != 3 {
				return h, fmt.Errorf("%w: %s", ErrInvalidPLYElement, sc.Text())
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return h, fmt.Errorf("%w: %s", ErrInvalidPLYElement, sc.Text())
			}
			element = fields[1]
			switch element {
			case "vertex":
				h.vertices = n
			case "face":
				h.faces = n
			default:
				return h, fmt.Errorf("%w: element %s", ErrUnsupportedPLY, element)
			}
		case "property":
			if element == "vertex" && len(fields) == 3 {
				h.props[fields[2]] = column
				column++
			}
		case "end_header":
			return h, nil
		}
	}
	return h, ErrTruncatedPLYData
}

// ParsePLYFile parses a PLY file from disk.
func ParsePLYFile(path string) (*PLY, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PLY file: %w", err)
	}
	return ParsePLY(data)
}
