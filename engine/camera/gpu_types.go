package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniform is the GPU-aligned per-view uniform read by the clustered
// shading pass. It carries the matrices needed to reconstruct a fragment's
// view depth and the factors that map that depth to a cluster Z slice.
// Size: 240 bytes (std140 / WGSL aligned).
//
// Layout:
//
//	mat4x4<f32> view_proj        (64 bytes, offset   0)
//	mat4x4<f32> inverse_proj     (64 bytes, offset  64)
//	mat4x4<f32> view             (64 bytes, offset 128)
//	vec3<f32>   camera_position  (12 bytes, offset 192)
//	f32         near             ( 4 bytes, offset 204)
//	vec3<u32>   cluster_dims     (12 bytes, offset 208)
//	f32         far              ( 4 bytes, offset 220)
//	vec2<f32>   viewport_size    ( 8 bytes, offset 224)
//	f32         z_slice_scale    ( 4 bytes, offset 232)
//	f32         z_slice_bias     ( 4 bytes, offset 236)
type GPUCameraUniform struct {
	ViewProj       [16]float32
	InverseProj    [16]float32
	View           [16]float32
	CameraPosition [3]float32
	Near           float32
	ClusterDims    [3]uint32
	Far            float32
	ViewportSize   [2]float32
	ZSliceScale    float32
	ZSliceBias     float32
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (240)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.InverseProj[i]))
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.View[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[192+i*4:], math.Float32bits(g.CameraPosition[i]))
		binary.LittleEndian.PutUint32(buf[208+i*4:], g.ClusterDims[i])
	}
	binary.LittleEndian.PutUint32(buf[204:], math.Float32bits(g.Near))
	binary.LittleEndian.PutUint32(buf[220:], math.Float32bits(g.Far))
	binary.LittleEndian.PutUint32(buf[224:], math.Float32bits(g.ViewportSize[0]))
	binary.LittleEndian.PutUint32(buf[228:], math.Float32bits(g.ViewportSize[1]))
	binary.LittleEndian.PutUint32(buf[232:], math.Float32bits(g.ZSliceScale))
	binary.LittleEndian.PutUint32(buf[236:], math.Float32bits(g.ZSliceBias))
	return buf
}

// ToGPUCameraUniform packs a camera's current state into a GPUCameraUniform.
//
// Parameters:
//   - c: the camera
//   - clusterDims: resolved cluster grid counts for the camera
//   - zScale, zBias: cluster Z slice factors from the camera's grid
//
// Returns:
//   - GPUCameraUniform: the GPU-aligned uniform
func ToGPUCameraUniform(c Camera, clusterDims [3]uint32, zScale, zBias float32) GPUCameraUniform {
	w, h := c.Viewport()
	return GPUCameraUniform{
		ViewProj:       c.ViewProjectionMatrix(),
		InverseProj:    c.InverseProjectionMatrix(),
		View:           c.ViewMatrix(),
		CameraPosition: c.Position(),
		Near:           c.Near(),
		ClusterDims:    clusterDims,
		Far:            c.Far(),
		ViewportSize:   [2]float32{float32(w), float32(h)},
		ZSliceScale:    zScale,
		ZSliceBias:     zBias,
	}
}
