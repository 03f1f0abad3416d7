package mesh

import (
	"io"

	"github.com/Faultbox/sculptor/pkg/formats"
)

// STL returns the mesh as STL facets with their face normals.
func (m *Mesh) STL(header string) *formats.STL {
	out := &formats.STL{Header: header, Facets: make([]formats.STLFacet, len(m.tris))}
	for i, tri := range m.tris {
		f := &out.Facets[i]
		f.Normal = m.faces[i]
		for j, v := range tri {
			f.Vertices[j] = m.pos[v]
		}
	}
	return out
}

// PLY returns the mesh as PLY vertices and faces.
func (m *Mesh) PLY(comment string) *formats.PLY {
	out := &formats.PLY{
		Comment:  comment,
		Vertices: make([]formats.PLYVertex, len(m.pos)),
		Faces:    make([][3]uint32, len(m.tris)),
	}
	for i := range m.pos {
		out.Vertices[i] = formats.PLYVertex{Position: m.pos[i], Normal: m.normals[i], Color: m.colors[i]}
	}
	for i, tri := range m.tris {
		out.Faces[i] = [3]uint32{uint32(tri[0]), uint32(tri[1]), uint32(tri[2])}
	}
	return out
}

// WriteSTL writes the mesh as binary STL.
func (m *Mesh) WriteSTL(w io.Writer, header string) error {
	return formats.WriteSTL(w, m.STL(header))
}

// WritePLY writes the mesh as ASCII PLY.
func (m *Mesh) WritePLY(w io.Writer, comment string) error {
	return formats.WritePLY(w, m.PLY(comment))
}
