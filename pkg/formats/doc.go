// Package formats reads and writes mesh interchange files: binary and ASCII
// STL, and ASCII PLY with per-vertex normals and colors.
package formats
