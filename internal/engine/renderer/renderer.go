// Package renderer draws the sculpted mesh and its debug overlay with
// OpenGL.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/engine/lighting"
	"github.com/Faultbox/sculptor/internal/engine/shader"
	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

const vec3Size = int(unsafe.Sizeof(math.Vec3{}))

// Source is a mesh the renderer can upload.
type Source interface {
	Positions() []math.Vec3
	Normals() []math.Vec3
	Colors() []math.Vec3
	Indices() []sculpt.Tri
	// TakeDirty reports the vertex runs changed since the last call.
	TakeDirty(fn func(first, count int))
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	width, height int

	meshProgram *shader.Program
	lineProgram *shader.Program

	vao     uint32
	buffers [3]uint32 // positions, normals, colors
	ebo     uint32
	verts   int
	indices int32

	overlayVAO   uint32
	overlayVBO   uint32
	overlayVerts int32

	light lighting.Rig

	uploads uint64
	log     *zap.Logger
}

// New creates a renderer. The OpenGL context must already exist.
func New(width, height int) (*Renderer, error) {
	r := &Renderer{
		width:  width,
		height: height,
		light:  lighting.DefaultRig(),
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.Enable(gl.MULTISAMPLE)
	gl.ClearColor(0.12, 0.12, 0.14, 1.0)

	var err error
	if r.meshProgram, err = shader.New("mesh", meshVertexSrc, meshFragmentSrc); err != nil {
		return nil, err
	}
	if r.lineProgram, err = shader.New("line", lineVertexSrc, lineFragmentSrc); err != nil {
		r.meshProgram.Delete()
		return nil, err
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(int32(len(r.buffers)), &r.buffers[0])
	gl.GenBuffers(1, &r.ebo)
	gl.BindVertexArray(r.vao)
	for i, buf := range r.buffers {
		gl.BindBuffer(gl.ARRAY_BUFFER, buf)
		gl.VertexAttribPointer(uint32(i), 3, gl.FLOAT, false, int32(vec3Size), nil)
		gl.EnableVertexAttribArray(uint32(i))
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BindVertexArray(0)

	gl.GenVertexArrays(1, &r.overlayVAO)
	gl.GenBuffers(1, &r.overlayVBO)
	gl.BindVertexArray(r.overlayVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.overlayVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, int32(vec3Size), nil)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	gl.Viewport(0, 0, int32(width), int32(height))
	return r, nil
}

// Close releases GPU resources.
func (r *Renderer) Close() error {
	r.log.Info("closing renderer", zap.Uint64("uploads", r.uploads))
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteBuffers(int32(len(r.buffers)), &r.buffers[0])
	gl.DeleteBuffers(1, &r.ebo)
	gl.DeleteVertexArrays(1, &r.overlayVAO)
	gl.DeleteBuffers(1, &r.overlayVBO)
	r.meshProgram.Delete()
	r.lineProgram.Delete()
	return nil
}

// Resize handles a framebuffer size change.
func (r *Renderer) Resize(width, height int) {
	r.width, r.height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Load uploads a whole mesh, replacing the previous one, and clears its
// dirty record.
func (r *Renderer) Load(src Source) {
	pos := src.Positions()
	r.verts = len(pos)
	streams := [3][]math.Vec3{pos, src.Normals(), src.Colors()}
	for i, data := range streams {
		gl.BindBuffer(gl.ARRAY_BUFFER, r.buffers[i])
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*vec3Size, vec3Ptr(data), gl.DYNAMIC_DRAW)
	}

	tris := src.Indices()
	r.indices = int32(len(tris) * 3)
	var idx unsafe.Pointer
	if len(tris) > 0 {
		idx = unsafe.Pointer(&tris[0])
	}
	gl.BindVertexArray(r.vao)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(tris)*int(unsafe.Sizeof(sculpt.Tri{})), idx, gl.STATIC_DRAW)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	src.TakeDirty(func(int, int) {})
	r.uploads++
	r.log.Debug("mesh uploaded", zap.Int("verts", r.verts), zap.Int32("indices", r.indices))
}

// Sync re-uploads the vertex runs src marked dirty and returns the number
// of vertices sent.
func (r *Renderer) Sync(src Source) int {
	streams := [3][]math.Vec3{src.Positions(), src.Normals(), src.Colors()}
	sent := 0
	src.TakeDirty(func(first, count int) {
		for i, data := range streams {
			run := data[first : first+count]
			gl.BindBuffer(gl.ARRAY_BUFFER, r.buffers[i])
			gl.BufferSubData(gl.ARRAY_BUFFER, first*vec3Size, count*vec3Size, vec3Ptr(run))
		}
		sent += count
	})
	if sent > 0 {
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		r.uploads++
	}
	return sent
}

// SetOverlay replaces the overlay's line endpoints.
func (r *Renderer) SetOverlay(lines []math.Vec3) {
	r.overlayVerts = int32(len(lines))
	gl.BindBuffer(gl.ARRAY_BUFFER, r.overlayVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(lines)*vec3Size, vec3Ptr(lines), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// SetLighting replaces the light rig.
func (r *Renderer) SetLighting(rig lighting.Rig) { r.light = rig }

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw renders the lit mesh, then the overlay when asked.
func (r *Renderer) Draw(viewProj math.Mat4, eye math.Vec3, overlay bool) {
	if r.indices > 0 {
		r.meshProgram.Use()
		gl.UniformMatrix4fv(r.meshProgram.Uniform("uViewProj"), 1, false, viewProj.Ptr())
		gl.Uniform3f(r.meshProgram.Uniform("uEye"), eye.X, eye.Y, eye.Z)
		sun := r.light.SunDirection()
		gl.Uniform3f(r.meshProgram.Uniform("uSunDir"), sun.X, sun.Y, sun.Z)
		gl.Uniform3f(r.meshProgram.Uniform("uLight"), r.light.Ambient, r.light.Sun, r.light.Headlight)
		gl.BindVertexArray(r.vao)
		gl.DrawElements(gl.TRIANGLES, r.indices, gl.UNSIGNED_INT, nil)
	}

	if overlay && r.overlayVerts > 0 {
		r.lineProgram.Use()
		gl.UniformMatrix4fv(r.lineProgram.Uniform("uViewProj"), 1, false, viewProj.Ptr())
		gl.Uniform3f(r.lineProgram.Uniform("uColor"), 0.2, 0.9, 0.4)
		gl.BindVertexArray(r.overlayVAO)
		gl.DrawArrays(gl.LINES, 0, r.overlayVerts)
	}
	gl.BindVertexArray(0)
}

// End finishes the current frame.
func (r *Renderer) End() {}

func vec3Ptr(v []math.Vec3) unsafe.Pointer {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Pointer(&v[0])
}

const meshVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec3 aColor;

uniform mat4 uViewProj;

out vec3 vPos;
out vec3 vNormal;
out vec3 vColor;

void main() {
	vPos = aPos;
	vNormal = aNormal;
	vColor = aColor;
	gl_Position = uViewProj * vec4(aPos, 1.0);
}
`

const meshFragmentSrc = `
#version 410 core

in vec3 vPos;
in vec3 vNormal;
in vec3 vColor;

uniform vec3 uEye;
uniform vec3 uSunDir;
uniform vec3 uLight; // ambient, sun, headlight

out vec4 FragColor;

void main() {
	vec3 n = normalize(vNormal);
	vec3 l = normalize(uEye - vPos);
	float head = max(dot(n, l), 0.0);
	float sun = max(dot(n, uSunDir), 0.0);
	float shine = pow(head, 32.0) * 0.2;
	FragColor = vec4(vColor * (uLight.x + uLight.y * sun + uLight.z * head) + shine, 1.0);
}
`

const lineVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;

uniform mat4 uViewProj;

void main() {
	gl_Position = uViewProj * vec4(aPos, 1.0);
}
`

const lineFragmentSrc = `
#version 410 core

uniform vec3 uColor;

out vec4 FragColor;

void main() {
	FragColor = vec4(uColor, 1.0);
}
`
