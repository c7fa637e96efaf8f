package light_meta

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUClusterOffset locates one cluster's run in the light index buffer.
// Size: 8 bytes.
type GPUClusterOffset struct {
	Offset uint32 // offset 0: first entry in the light index buffer
	Count  uint32 // offset 4: number of entries
}

// Size returns the size of the GPUClusterOffset struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (8)
func (o *GPUClusterOffset) Size() int {
	return int(unsafe.Sizeof(*o))
}

// Marshal serializes the GPUClusterOffset into an 8-byte little-endian buffer.
//
// Returns:
//   - []byte: 8-byte buffer ready for GPU upload
func (o *GPUClusterOffset) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], o.Offset)
	binary.LittleEndian.PutUint32(buf[4:8], o.Count)
	return buf
}

// GPUClusterUniforms is the per-camera header read by the shading pass to find
// a fragment's cluster.
// Size: 32 bytes (std430 / WGSL aligned).
//
// Layout:
//
//	vec3<u32> cluster_dims      (12 bytes, offset  0)
//	u32       light_count       ( 4 bytes, offset 12)
//	u32       index_count       ( 4 bytes, offset 16)
//	u32       shadow_view_count ( 4 bytes, offset 20)
//	f32       z_slice_scale     ( 4 bytes, offset 24)
//	f32       z_slice_bias      ( 4 bytes, offset 28)
type GPUClusterUniforms struct {
	ClusterDims     [3]uint32
	LightCount      uint32
	IndexCount      uint32
	ShadowViewCount uint32
	ZSliceScale     float32
	ZSliceBias      float32
}

// Size returns the size of the GPUClusterUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (u *GPUClusterUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes GPUClusterUniforms into a 32-byte little-endian buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (u *GPUClusterUniforms) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], u.ClusterDims[0])
	binary.LittleEndian.PutUint32(buf[4:8], u.ClusterDims[1])
	binary.LittleEndian.PutUint32(buf[8:12], u.ClusterDims[2])
	binary.LittleEndian.PutUint32(buf[12:16], u.LightCount)
	binary.LittleEndian.PutUint32(buf[16:20], u.IndexCount)
	binary.LittleEndian.PutUint32(buf[20:24], u.ShadowViewCount)
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(u.ZSliceScale))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(u.ZSliceBias))
	return buf
}

// MarshalOffsets packs a cluster offset table into one contiguous buffer.
//
// Parameters:
//   - offsets: per-cluster (offset, count) pairs in cell order
//
// Returns:
//   - []byte: 8 bytes per cluster
func MarshalOffsets(offsets []GPUClusterOffset) []byte {
	buf := make([]byte, 8*len(offsets))
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(buf[i*8:], o.Offset)
		binary.LittleEndian.PutUint32(buf[i*8+4:], o.Count)
	}
	return buf
}

// MarshalIndices packs the light index buffer.
//
// Parameters:
//   - indices: light indices
//
// Returns:
//   - []byte: 4 bytes per index
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
