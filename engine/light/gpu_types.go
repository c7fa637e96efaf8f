package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// MaxGPULights is the default maximum number of lights marshaled into the GPU
// storage buffer per frame. The CPU-side light list is unbounded; when the
// enabled light count exceeds the budget the light_meta priority order picks
// which lights survive.
const MaxGPULights = 1024

// GPULight flag bits.
const (
	// FlagCastsShadows is set for lights that cast shadows.
	FlagCastsShadows uint32 = 1 << 0
)

// GPULight is the GPU-aligned representation of a single light source.
// Size: 64 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position    [3]float32 // offset  0: world-space position (point/spot) or unused (directional)
	LightType   uint32     // offset 12: 0 = directional, 1 = point, 2 = spot
	Color       [3]float32 // offset 16: RGB color
	Intensity   float32    // offset 28: scalar multiplier
	Direction   [3]float32 // offset 32: normalized direction (directional/spot) or unused (point)
	LightRange  float32    // offset 44: attenuation cutoff distance
	InnerCone   float32    // offset 48: cos(inner half-angle) for spot
	OuterCone   float32    // offset 52: cos(outer half-angle) for spot
	ShadowIndex uint32     // offset 56: first entry in the shadow view table, or NoShadow
	Flags       uint32     // offset 60: FlagCastsShadows
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Direction[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Direction[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Direction[2]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.LightRange))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.InnerCone))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[56:60], g.ShadowIndex)
	binary.LittleEndian.PutUint32(buf[60:64], g.Flags)
	return buf
}

// GPULightHeader is the header prepended to the light storage buffer.
// Contains the ambient color and the active light count.
// Size: 16 bytes (vec3 + u32, std430 aligned).
type GPULightHeader struct {
	AmbientColor [3]float32 // offset 0: scene ambient RGB
	LightCount   uint32     // offset 12: number of active lights following the header
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(h.AmbientColor[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(h.AmbientColor[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(h.AmbientColor[2]))
	binary.LittleEndian.PutUint32(buf[12:16], h.LightCount)
	return buf
}

// GPUShadowData is the GPU-aligned representation of one shadow view: a
// directional cascade, a point light cube face, or a spot light view.
// Size: 80 bytes (std430 / WGSL aligned).
//
// Layout:
//
//	mat4x4<f32> light_vp       (64 bytes, offset 0)
//	vec2<f32>   texel_size     ( 8 bytes, offset 64)
//	f32         bias           ( 4 bytes, offset 72)
//	f32         normal_bias    ( 4 bytes, offset 76)
type GPUShadowData struct {
	LightVP    [16]float32 // view-projection from the light's perspective
	TexelSize  [2]float32  // 1.0 / shadow_map_resolution for PCF offset calculations
	Bias       float32     // depth comparison bias to reduce shadow acne
	NormalBias float32     // world-space normal-offset distance for shadow lookup
}

// Size returns the size of the GPUShadowData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (s *GPUShadowData) Size() int {
	return int(unsafe.Sizeof(*s))
}

// ComputeNormalBias derives the world-space normal-offset bias from the size of
// one shadow map texel and stores it in the receiver's NormalBias field. The
// result is the distance (in world units) that fragment positions are shifted
// along their surface normal before projecting into light clip space.
//
// Parameters:
//   - texelWorldSize: world-space width of one shadow map texel
//   - scale: multiplier on the texel size (typically 2.0–4.0)
func (s *GPUShadowData) ComputeNormalBias(texelWorldSize, scale float32) {
	s.NormalBias = texelWorldSize * scale
}

// Marshal serializes the GPUShadowData struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (s *GPUShadowData) Marshal() []byte {
	buf := make([]byte, 80)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(s.LightVP[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(s.TexelSize[0]))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(s.TexelSize[1]))
	binary.LittleEndian.PutUint32(buf[72:76], math.Float32bits(s.Bias))
	binary.LittleEndian.PutUint32(buf[76:80], math.Float32bits(s.NormalBias))
	return buf
}

// NewGPUShadowData builds the shadow table entry for one shadow view of a light.
//
// Parameters:
//   - l: the light owning the view
//   - viewProj: the view's view-projection matrix
//   - texelWorldSize: world-space width of one texel at the view's focus
//   - resolution: shadow map size in texels per side
//
// Returns:
//   - GPUShadowData: the GPU-aligned entry
func NewGPUShadowData(l Light, viewProj [16]float32, texelWorldSize float32, resolution uint32) GPUShadowData {
	s := GPUShadowData{LightVP: viewProj, Bias: l.ShadowBias()}
	if resolution > 0 {
		inv := 1 / float32(resolution)
		s.TexelSize = [2]float32{inv, inv}
	}
	s.ComputeNormalBias(texelWorldSize, l.NormalBiasScale())
	return s
}

// ToGPULight converts a Light interface value into the GPU-aligned GPULight struct
// suitable for writing into the light storage buffer.
//
// Parameters:
//   - l: the Light to convert
//   - shadowIndex: the light's first shadow view table entry, or NoShadow
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light, shadowIndex uint32) GPULight {
	var flags uint32
	if l.CastsShadows() {
		flags |= FlagCastsShadows
	}
	return GPULight{
		Position:    l.Position(),
		LightType:   uint32(l.Type()),
		Color:       l.Color(),
		Intensity:   l.Intensity(),
		Direction:   l.Direction(),
		LightRange:  l.Range(),
		InnerCone:   l.InnerCone(),
		OuterCone:   l.OuterCone(),
		ShadowIndex: shadowIndex,
		Flags:       flags,
	}
}

// MarshalLightBuffer marshals already-selected lights into a byte buffer
// suitable for GPU upload. The buffer layout is:
//
//	[GPULightHeader (16 bytes)] [GPULight × count (64 bytes each)]
//
// Parameters:
//   - lights: the frame's GPU lights, in frame index order
//   - ambient: the scene ambient color as RGB
//
// Returns:
//   - []byte: the marshaled buffer ready for GPU upload
func MarshalLightBuffer(lights []GPULight, ambient [3]float32) []byte {
	header := GPULightHeader{AmbientColor: ambient, LightCount: uint32(len(lights))}
	headerSize := header.Size()
	lightSize := (&GPULight{}).Size()

	buf := make([]byte, headerSize+len(lights)*lightSize)
	copy(buf[:headerSize], header.Marshal())

	offset := headerSize
	for i := range lights {
		copy(buf[offset:offset+lightSize], lights[i].Marshal())
		offset += lightSize
	}
	return buf
}
