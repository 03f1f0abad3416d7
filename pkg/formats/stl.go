package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/sculptor/pkg/math"
)

// STL format errors.
var (
	ErrInvalidSTL   = errors.New("invalid STL data")
	ErrTruncatedSTL = errors.New("truncated STL data")
)

const (
	stlHeaderSize = 80
	stlFacetSize  = 50 // normal, 3 vertices, attribute count
	stlMaxFacets  = 1 << 24
)

// STLFacet is one triangle of an STL file.
type STLFacet struct {
	Normal   math.Vec3
	Vertices [3]math.Vec3
	Attr     uint16 // binary attribute byte count, usually 0
}

// STL represents a parsed STL file.
type STL struct {
	Header string // binary header or ASCII solid name
	Facets []STLFacet
}

// ParseSTL parses a binary or ASCII STL file from raw bytes.
func ParseSTL(data []byte) (*STL, error) {
	if isASCIISTL(data) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

// ParseSTLFile parses an STL file from disk.
func ParseSTLFile(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return ParseSTL(data)
}

// isASCIISTL reports whether data looks like ASCII STL. Binary exporters
// sometimes start their header with "solid" too, so the size must also
// disagree with the binary facet count.
func isASCIISTL(data []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return false
	}
	if len(data) >= stlHeaderSize+4 {
		n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if stlHeaderSize+4+int(n)*stlFacetSize == len(data) {
			return false
		}
	}
	return bytes.Contains(data, []byte("facet"))
}

func parseBinarySTL(data []byte) (*STL, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTL
	}
	header := strings.TrimRight(string(data[:stlHeaderSize]), "\x00 ")
	n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	if n > stlMaxFacets {
		return nil, fmt.Errorf("%w: %d facets", ErrInvalidSTL, n)
	}
	if want := stlHeaderSize + 4 + int(n)*stlFacetSize; len(data) < want {
		return nil, fmt.Errorf("%w: %d facets need %d bytes, have %d", ErrTruncatedSTL, n, want, len(data))
	}

	r := bytes.NewReader(data[stlHeaderSize+4:])
	stl := &STL{Header: header, Facets: make([]STLFacet, n)}
	for i := range stl.Facets {
		var raw struct {
			Normal [3]float32
			Verts  [3][3]float32
			Attr   uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("%w: facet %d", ErrTruncatedSTL, i)
		}
		f := &stl.Facets[i]
		f.Normal = math.Vec3{X: raw.Normal[0], Y: raw.Normal[1], Z: raw.Normal[2]}
		for j, v := range raw.Verts {
			f.Vertices[j] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
		f.Attr = raw.Attr
	}
	return stl, nil
}

func parseASCIISTL(data []byte) (*STL, error) {
	stl := &STL{}
	sc := bufio.NewScanner(bytes.NewReader(data))

	var (
		cur    STLFacet
		verts  int
		inLoop bool
		line   int
	)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			stl.Header = strings.Join(fields[1:], " ")
		case "facet":
			cur = STLFacet{}
			verts = 0
			if len(fields) == 5 && fields[1] == "normal" {
				n, err := parseVec3(fields[2:])
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
				}
				cur.Normal = n
			}
		case "outer":
			inLoop = true
		case "vertex":
			if !inLoop || verts == 3 || len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrInvalidSTL, line)
			}
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
			}
			cur.Vertices[verts] = v
			verts++
		case "endloop":
			inLoop = false
		case "endfacet":
			if verts != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrInvalidSTL, line, verts)
			}
			stl.Facets = append(stl.Facets, cur)
		case "endsolid":
			return stl, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ASCII STL: %w", err)
	}
	return nil, fmt.Errorf("%w: missing endsolid", ErrTruncatedSTL)
}

func parseVec3(fields []string) (math.Vec3, error) {
	var out [3]float32
	for i, f := range fields[:3] {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return math.Vec3{}, err
		}
		out[i] = float32(v)
	}
	return math.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// WriteSTL writes s as binary STL. The header is truncated to 80 bytes.
func WriteSTL(w io.Writer, s *STL) error {
	bw := bufio.NewWriter(w)

	var header [stlHeaderSize]byte
	copy(header[:], s.Header)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("writing STL header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(s.Facets))); err != nil {
		return fmt.Errorf("writing STL facet count: %w", err)
	}

	for i, f := range s.Facets {
		raw := struct {
			Normal [3]float32
			Verts  [3][3]float32
			Attr   uint16
		}{Normal: f.Normal.Arr(), Attr: f.Attr}
		for j, v := range f.Vertices {
			raw.Verts[j] = v.Arr()
		}
		if err := binary.Write(bw, binary.LittleEndian, &raw); err != nil {
			return fmt.Errorf("writing STL facet %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// Weld merges vertices closer than eps and returns the shared vertex list
// with one index triple per facet, in facet order.
func (s *STL) Weld(eps float32) ([]math.Vec3, [][3]uint32) {
	if eps <= 0 {
		eps = 1e-6
	}
	type cell [3]int64
	key := func(v math.Vec3) cell {
		return cell{
			int64(v.X / eps),
			int64(v.Y / eps),
			int64(v.Z / eps),
		}
	}

	var pos []math.Vec3
	seen := make(map[cell]uint32)
	lookup := func(v math.Vec3) uint32 {
		k := key(v)
		// a point near a cell boundary may have been stored next door
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					if i, ok := seen[cell{k[0] + dx, k[1] + dy, k[2] + dz}]; ok && pos[i].Distance(v) <= eps {
						return i
					}
				}
			}
		}
		i := uint32(len(pos))
		pos = append(pos, v)
		seen[k] = i
		return i
	}

	tris := make([][3]uint32, len(s.Facets))
	for i, f := range s.Facets {
		for j, v := range f.Vertices {
			tris[i][j] = lookup(v)
		}
	}
	return pos, tris
}
